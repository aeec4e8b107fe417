// package media canonicalises attachments before they are staged for upload.
//
// Mastodon instances reject images larger than roughly two megapixels, so
// oversized images are scaled down when a draft is staged rather than
// failing at send time. Non image attachments pass through untouched.
package media

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/nfnt/resize"
)

// MaxPixels is the largest image area accepted without downscaling.
// Matches the mastodon default of 1920x1080.
const MaxPixels = 1920 * 1080

// Stage copies the attachment at src to dst, downscaling images whose
// pixel area exceeds MaxPixels. Files that do not decode as images are
// copied verbatim.
func Stage(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	cfg, format, err := image.DecodeConfig(in)
	if err != nil || cfg.Width*cfg.Height <= MaxPixels {
		// not an image we understand, or already small enough
		if _, err := in.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return copyFile(in, dst)
	}

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return err
	}
	img, _, err := image.Decode(in)
	if err != nil {
		return err
	}
	img = shrink(img, cfg.Width, cfg.Height)

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	switch format {
	case "png":
		err = png.Encode(out, img)
	default:
		// gif and webp re-encode as jpeg; the server transcodes anyway
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// shrink scales img so that width*height <= MaxPixels, preserving the
// aspect ratio.
func shrink(img image.Image, w, h int) image.Image {
	for w*h > MaxPixels {
		w, h = w*9/10, h*9/10
	}
	return resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
}

func copyFile(in io.Reader, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
