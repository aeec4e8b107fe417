// Package outbox drains an account's durable queue against the remote
// instance.
//
// Queue order is send order. A terminal failure on a favourite, boost or
// bookmark halts the account's queue so no later action overtakes an
// earlier one. A failed status create leaves that draft queued, blocks any
// later draft that replies to it, and lets unrelated entries proceed.
package outbox

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-json-experiment/json"
	"golang.org/x/exp/slog"

	"github.com/davecheney/ferry/internal/draft"
	"github.com/davecheney/ferry/internal/ferry"
	"github.com/davecheney/ferry/internal/queue"
	"github.com/davecheney/ferry/internal/snowflake"
	"github.com/davecheney/ferry/internal/wire"
	"github.com/davecheney/ferry/models"
)

// suffixes maps the simple routes onto their API path suffix under
// /api/v1/statuses/{id}.
var suffixes = map[queue.Route]string{
	queue.Fav:        "/favourite",
	queue.Unfav:      "/unfavourite",
	queue.Boost:      "/reblog",
	queue.Unboost:    "/unreblog",
	queue.Bookmark:   "/bookmark",
	queue.Unbookmark: "/unbookmark",
}

// Sender drains one account's queue. A Sender is good for one run; the
// thread link table it accumulates must not leak across runs or accounts.
type Sender struct {
	Client  wire.Caller
	Driver  *wire.Driver
	Account *ferry.Account
	Keys    *snowflake.Generator
	Log     *slog.Logger

	// links maps a draft's local thread tag to the remote id the server
	// assigned once the draft was posted.
	links map[string]string
	// blocked holds thread tags whose draft failed to send; replies to a
	// blocked tag are skipped, not sent into the void.
	blocked map[string]bool
}

// Run processes the queue to completion or to the first failure that would
// break ordering. The queue is mutated in place; the caller owns Flush.
func (s *Sender) Run(ctx context.Context, q *queue.Queue) error {
	s.links = make(map[string]string)
	s.blocked = make(map[string]bool)
	for _, e := range q.Entries() {
		switch e.Route {
		case queue.Post:
			s.sendPost(ctx, q, e)
		case queue.Context:
			s.fetchContext(ctx, e)
			// best effort; the entry goes whether the fetch landed or not
			q.Complete(e)
		case queue.Unpost:
			url := fmt.Sprintf("%s/api/v1/statuses/%s", s.Account.BaseURL(), e.Argument)
			result := s.Driver.Do(ctx, url, func(ctx context.Context) wire.Response {
				return s.Client.SimpleDelete(ctx, url)
			})
			if !result.Success {
				return fmt.Errorf("outbox: %s %s: %s", e.Route, e.Argument, failureText(result))
			}
			q.Complete(e)
		default:
			url := fmt.Sprintf("%s/api/v1/statuses/%s%s", s.Account.BaseURL(), e.Argument, suffixes[e.Route])
			result := s.Driver.Do(ctx, url, func(ctx context.Context) wire.Response {
				return s.Client.SimplePost(ctx, url)
			})
			if !result.Success {
				return fmt.Errorf("outbox: %s %s: %s", e.Route, e.Argument, failureText(result))
			}
			q.Complete(e)
		}
	}
	return nil
}

// sendPost uploads a staged draft's attachments and creates the status.
// Failures leave the entry queued and block the draft's thread tag.
func (s *Sender) sendPost(ctx context.Context, q *queue.Queue, e queue.Entry) {
	post, err := draft.Read(q.StagedPath(e.Argument))
	if err != nil {
		s.Log.Error("outbox: unreadable staged draft", "draft", e.Argument, "err", err)
		return
	}

	replyTo := post.ReplyToID
	if remote, ok := s.links[replyTo]; ok {
		replyTo = remote
	} else if s.blocked[replyTo] {
		s.Log.Warn("outbox: skipping reply to a draft that failed to send",
			"draft", e.Argument, "reply-to", post.ReplyToID)
		s.block(post.Thread)
		return
	}

	var mediaIDs []string
	for _, a := range post.Attachments {
		url := s.Account.BaseURL() + "/api/v2/media"
		path := q.StagedPath(a.Path)
		result := s.Driver.Do(ctx, url, func(ctx context.Context) wire.Response {
			return s.Client.UploadAttachment(ctx, url, path, a.Description)
		})
		if !result.Success {
			s.Log.Error("outbox: attachment upload failed",
				"draft", e.Argument, "attachment", a.Path, "err", failureText(result))
			s.block(post.Thread)
			return
		}
		id, err := idFromBody(result.Message)
		if err != nil {
			s.Log.Error("outbox: attachment response", "attachment", a.Path, "err", err)
			s.block(post.Thread)
			return
		}
		mediaIDs = append(mediaIDs, id)
	}

	// one key per logical post, reused across the retries inside Do
	req := wire.CreateStatusRequest{
		IdempotencyKey: s.Keys.Next(),
		Status:         post.Text,
		InReplyToID:    replyTo,
		SpoilerText:    post.ContentWarning,
		Visibility:     post.Visibility,
		MediaIDs:       mediaIDs,
	}
	url := s.Account.BaseURL() + "/api/v1/statuses"
	result := s.Driver.Do(ctx, url, func(ctx context.Context) wire.Response {
		return s.Client.CreateStatus(ctx, url, req)
	})
	if !result.Success {
		s.Log.Error("outbox: create status failed", "draft", e.Argument, "err", failureText(result))
		s.block(post.Thread)
		return
	}
	id, err := idFromBody(result.Message)
	if err != nil {
		s.Log.Error("outbox: create status response", "draft", e.Argument, "err", err)
		s.block(post.Thread)
		return
	}
	if post.Thread != "" {
		s.links[post.Thread] = id
	}
	q.Complete(e)
}

// fetchContext writes a status's ancestor/descendant thread to
// <id>.context in the account directory.
func (s *Sender) fetchContext(ctx context.Context, e queue.Entry) {
	url := fmt.Sprintf("%s/api/v1/statuses/%s/context", s.Account.BaseURL(), e.Argument)
	result := s.Driver.Do(ctx, url, func(ctx context.Context) wire.Response {
		return s.Client.GetTimelinePage(ctx, url, wire.PageQuery{})
	})
	if !result.Success {
		s.Log.Error("outbox: context fetch failed", "status", e.Argument, "err", failureText(result))
		return
	}
	thread, err := models.DecodeContext(result.Message)
	if err != nil {
		s.Log.Error("outbox: context response", "status", e.Argument, "err", err)
		return
	}
	f, err := os.Create(s.Account.ContextPath(e.Argument))
	if err != nil {
		s.Log.Error("outbox: context file", "status", e.Argument, "err", err)
		return
	}
	for _, status := range append(thread.Ancestors, thread.Descendants...) {
		if err := status.WriteRecord(f); err != nil {
			f.Close()
			s.Log.Error("outbox: context write", "status", e.Argument, "err", err)
			return
		}
	}
	if err := f.Close(); err != nil {
		s.Log.Error("outbox: context close", "status", e.Argument, "err", err)
	}
}

func (s *Sender) block(tag string) {
	if tag != "" {
		s.blocked[tag] = true
	}
}

func idFromBody(body string) (string, error) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.UnmarshalFull(strings.NewReader(body), &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", fmt.Errorf("response has no id")
	}
	return payload.ID, nil
}

func failureText(result wire.Result) string {
	msg := wire.ErrorText(result.Message)
	if msg == "" {
		msg = strings.TrimSpace(result.Message)
	}
	if msg != "" {
		return fmt.Sprintf("%s (after %d attempts)", msg, result.Attempts)
	}
	return fmt.Sprintf("failed after %d attempts", result.Attempts)
}
