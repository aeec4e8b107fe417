// Package draft reads and writes outgoing post files.
//
// A draft is a plain text file: a run of "key: value" header lines, a blank
// line, then the post body. Recognised headers are reply-to, thread, cw,
// visibility and attach (repeatable, "path | description").
package draft

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Attachment is one attach: header of a draft.
type Attachment struct {
	Path        string
	Description string
}

// Post is a parsed draft.
type Post struct {
	Text           string
	ReplyToID      string // remote status id this post replies to
	Thread         string // local tag naming this post within a queued thread
	ContentWarning string
	Visibility     string
	Attachments    []Attachment
}

// ParseVisibility maps the visibility spellings accepted in drafts onto the
// values the server accepts. Both "followersonly" and "private" map to
// "private"; callers depend on both spellings working, so the collapse is
// deliberate.
func ParseVisibility(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "public":
		return "public", nil
	case "unlisted":
		return "unlisted", nil
	case "followersonly", "private":
		return "private", nil
	case "direct":
		return "direct", nil
	default:
		return "", fmt.Errorf("draft: unknown visibility %q", s)
	}
}

// Read parses the draft file at path.
func Read(path string) (*Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var post Post
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	inBody := false
	var body strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if inBody {
			if body.Len() > 0 {
				body.WriteByte('\n')
			}
			body.WriteString(line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			inBody = true
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("draft: malformed header %q in %s", line, path)
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "reply-to":
			post.ReplyToID = value
		case "thread":
			post.Thread = value
		case "cw":
			post.ContentWarning = value
		case "visibility":
			v, err := ParseVisibility(value)
			if err != nil {
				return nil, err
			}
			post.Visibility = v
		case "attach":
			path, description, _ := strings.Cut(value, "|")
			post.Attachments = append(post.Attachments, Attachment{
				Path:        strings.TrimSpace(path),
				Description: strings.TrimSpace(description),
			})
		default:
			return nil, fmt.Errorf("draft: unknown header %q in %s", key, path)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if post.Visibility == "" {
		post.Visibility = "public"
	}
	post.Text = body.String()
	if strings.TrimSpace(post.Text) == "" {
		return nil, fmt.Errorf("draft: %s has no body", path)
	}
	return &post, nil
}

// Write serialises post to path. Only non empty headers are emitted.
func Write(path string, post *Post) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if post.ReplyToID != "" {
		fmt.Fprintf(w, "reply-to: %s\n", post.ReplyToID)
	}
	if post.Thread != "" {
		fmt.Fprintf(w, "thread: %s\n", post.Thread)
	}
	if post.ContentWarning != "" {
		fmt.Fprintf(w, "cw: %s\n", post.ContentWarning)
	}
	if post.Visibility != "" {
		fmt.Fprintf(w, "visibility: %s\n", post.Visibility)
	}
	for _, a := range post.Attachments {
		if a.Description != "" {
			fmt.Fprintf(w, "attach: %s | %s\n", a.Path, a.Description)
		} else {
			fmt.Fprintf(w, "attach: %s\n", a.Path)
		}
	}
	fmt.Fprintf(w, "\n%s\n", post.Text)
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
