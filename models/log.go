package models

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Separator terminates each record in an append only log file.
const Separator = "--------------"

// A LogRecord can append itself to an account's log file.
type LogRecord interface {
	// LogID is the remote id used for high water mark bookkeeping.
	LogID() string
	WriteRecord(w io.Writer) error
}

func (s *Status) LogID() string { return s.ID }

func (n *Notification) LogID() string { return n.ID }

// WriteRecord appends the status to w in log record form. Fields are
// key: value lines, emitted only when non empty, terminated by Separator.
func (s *Status) WriteRecord(w io.Writer) error {
	return writeRecord(w, s.fields())
}

func (s *Status) fields() []field {
	subject := s
	var fields []field
	fields = append(fields, field{"id", s.ID}, field{"time", s.CreatedAt})
	if s.Account != nil {
		fields = append(fields, field{"from", s.Account.Acct})
	}
	if s.Reblog != nil {
		subject = s.Reblog
		if subject.Account != nil {
			fields = append(fields, field{"boost-of", subject.Account.Acct})
		}
	}
	fields = append(fields,
		field{"visibility", subject.Visibility},
		field{"cw", subject.SpoilerText},
		field{"url", subject.URL},
		field{"text", Flatten(subject.Content)},
	)
	for _, a := range subject.Attachments {
		if a.Description != "" {
			fields = append(fields, field{"attachment", fmt.Sprintf("%s (%s)", a.URL, a.Description)})
		} else {
			fields = append(fields, field{"attachment", a.URL})
		}
	}
	return fields
}

// WriteRecord appends the notification to w in log record form.
func (n *Notification) WriteRecord(w io.Writer) error {
	fields := []field{
		{"id", n.ID},
		{"time", n.CreatedAt},
		{"type", n.Type},
	}
	if n.Account != nil {
		fields = append(fields, field{"from", n.Account.Acct})
	}
	if n.Status != nil {
		fields = append(fields,
			field{"status", n.Status.ID},
			field{"text", Flatten(n.Status.Content)},
		)
	}
	return writeRecord(w, fields)
}

type field struct {
	key   string
	value string
}

func writeRecord(w io.Writer, fields []field) error {
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", f.key, f.value); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, Separator)
	return err
}

// Flatten reduces status HTML content to plain text. Paragraphs become
// blank line separated blocks and <br> becomes a newline; every other tag
// contributes only its text.
func Flatten(content string) string {
	nodes, err := html.ParseFragment(strings.NewReader(content), nil)
	if err != nil {
		return content
	}
	var b strings.Builder
	for _, n := range nodes {
		flatten(&b, n)
	}
	return strings.TrimSpace(b.String())
}

func flatten(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteByte('\n')
		case "p", "blockquote":
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(b, c)
	}
}
