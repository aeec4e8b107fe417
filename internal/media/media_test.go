package media

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
	require.NoError(t, f.Close())
}

func TestStage(t *testing.T) {
	t.Run("small image copied verbatim", func(t *testing.T) {
		require := require.New(t)

		dir := t.TempDir()
		src := filepath.Join(dir, "small.png")
		dst := filepath.Join(dir, "staged.png")
		writePNG(t, src, 64, 64)

		require.NoError(Stage(src, dst))
		want, err := os.ReadFile(src)
		require.NoError(err)
		got, err := os.ReadFile(dst)
		require.NoError(err)
		require.Equal(got, want)
	})
	t.Run("oversized image is downscaled", func(t *testing.T) {
		require := require.New(t)

		dir := t.TempDir()
		src := filepath.Join(dir, "big.png")
		dst := filepath.Join(dir, "staged.png")
		writePNG(t, src, 2500, 2000)

		require.NoError(Stage(src, dst))
		f, err := os.Open(dst)
		require.NoError(err)
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		require.NoError(err)
		require.LessOrEqual(cfg.Width*cfg.Height, MaxPixels)
	})
	t.Run("non image copied verbatim", func(t *testing.T) {
		require := require.New(t)

		dir := t.TempDir()
		src := filepath.Join(dir, "notes.txt")
		dst := filepath.Join(dir, "staged.txt")
		require.NoError(os.WriteFile(src, []byte("not an image"), 0o644))

		require.NoError(Stage(src, dst))
		got, err := os.ReadFile(dst)
		require.NoError(err)
		require.Equal(string(got), "not an image")
	})
	t.Run("missing source is an error", func(t *testing.T) {
		require := require.New(t)

		dir := t.TempDir()
		require.Error(Stage(filepath.Join(dir, "nope.png"), filepath.Join(dir, "out.png")))
	})
}
