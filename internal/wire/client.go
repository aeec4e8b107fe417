package wire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/go-json-experiment/json"
)

// Client implements Caller against a real instance using a bearer token.
type Client struct {
	Token string

	// Transport overrides the http transport, for tests.
	Transport http.RoundTripper

	// Now is the clock used to compute rate limit waits. Defaults to time.Now.
	Now func() time.Time
}

func (c *Client) builder(url string) *requests.Builder {
	rb := requests.URL(url).Bearer(c.Token)
	if c.Transport != nil {
		rb = rb.Transport(c.Transport)
	}
	return rb
}

// do runs the request, swallowing status validation so that every HTTP
// outcome, 4xx and 5xx included, lands in a normalised Response.
func (c *Client) do(ctx context.Context, rb *requests.Builder) Response {
	var resp Response
	start := time.Now()
	err := rb.
		AddValidator(nil).
		Handle(func(r *http.Response) error {
			resp.StatusCode = r.StatusCode
			body, err := io.ReadAll(r.Body)
			resp.Message = string(body)
			c.classify(&resp, r.Header)
			return err
		}).
		Fetch(ctx)
	resp.Elapsed = time.Since(start)
	if err != nil && resp.StatusCode == 0 {
		// transport failure: timeouts and connection errors are retryable
		resp.Message = err.Error()
		resp.Retryable = true
	}
	return resp
}

// classify fills in OK, Retryable and the rate limit fields from the status
// code and response headers.
func (c *Client) classify(resp *Response, h http.Header) {
	resp.OK = resp.StatusCode >= 200 && resp.StatusCode < 300
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.RateLimited = true
	case resp.OK && h.Get("X-RateLimit-Remaining") == "0":
		resp.RateLimited = true
	}
	if resp.RateLimited {
		resp.ResetAt = parseReset(h, c.now())
		resp.Retryable = true
	}
	if resp.StatusCode >= 500 {
		resp.Retryable = true
	}
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// parseReset extracts the quota reset time from X-RateLimit-Reset (RFC 3339)
// or Retry-After (delay seconds), falling back to now for garbage input so
// the caller waits zero rather than forever.
func parseReset(h http.Header, now time.Time) time.Time {
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return now.Add(time.Duration(secs) * time.Second)
		}
	}
	return now
}

// ErrorText extracts the "error" field from a JSON error body, if present.
func ErrorText(body string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.UnmarshalFull(strings.NewReader(body), &payload); err != nil {
		return ""
	}
	return payload.Error
}

// SimplePost issues a bodyless POST, used for favourites, boosts and
// bookmarks.
func (c *Client) SimplePost(ctx context.Context, url string) Response {
	return c.do(ctx, c.builder(url).Method(http.MethodPost))
}

// SimpleDelete issues a DELETE, used to remove a published status.
func (c *Client) SimpleDelete(ctx context.Context, url string) Response {
	return c.do(ctx, c.builder(url).Method(http.MethodDelete))
}

// CreateStatus publishes a status. The Idempotency-Key header makes retried
// submissions of the same logical status safe.
func (c *Client) CreateStatus(ctx context.Context, url string, req CreateStatusRequest) Response {
	payload := map[string]any{
		"status":     req.Status,
		"visibility": req.Visibility,
	}
	if req.InReplyToID != "" {
		payload["in_reply_to_id"] = req.InReplyToID
	}
	if req.SpoilerText != "" {
		payload["spoiler_text"] = req.SpoilerText
		payload["sensitive"] = true
	}
	if len(req.MediaIDs) > 0 {
		payload["media_ids"] = req.MediaIDs
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{Message: err.Error()}
	}
	return c.do(ctx, c.builder(url).
		Header("Idempotency-Key", fmt.Sprintf("%d", req.IdempotencyKey)).
		ContentType("application/json").
		BodyBytes(body).
		Method(http.MethodPost))
}

// UploadAttachment uploads one media file as multipart form data. The
// response body carries the JSON for the created attachment.
func (c *Client) UploadAttachment(ctx context.Context, url, path, description string) Response {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return Response{Message: err.Error()}
	}
	f, err := os.Open(path)
	if err != nil {
		return Response{Message: err.Error()}
	}
	_, err = io.Copy(part, f)
	f.Close()
	if err != nil {
		return Response{Message: err.Error()}
	}
	if description != "" {
		if err := mw.WriteField("description", description); err != nil {
			return Response{Message: err.Error()}
		}
	}
	if err := mw.Close(); err != nil {
		return Response{Message: err.Error()}
	}
	return c.do(ctx, c.builder(url).
		ContentType(mw.FormDataContentType()).
		BodyBytes(buf.Bytes()).
		Method(http.MethodPost))
}

// GetTimelinePage fetches one page of a timeline or notification stream.
// The response body is the JSON array of entities, newest first.
func (c *Client) GetTimelinePage(ctx context.Context, url string, q PageQuery) Response {
	rb := c.builder(url)
	if q.MinID != "" {
		rb = rb.Param("min_id", q.MinID)
	}
	if q.MaxID != "" {
		rb = rb.Param("max_id", q.MaxID)
	}
	if q.SinceID != "" {
		rb = rb.Param("since_id", q.SinceID)
	}
	if q.Limit > 0 {
		rb = rb.Param("limit", strconv.Itoa(q.Limit))
	}
	if len(q.ExcludeTypes) > 0 {
		rb = rb.Param("exclude_types[]", q.ExcludeTypes...)
	}
	return c.do(ctx, rb)
}
