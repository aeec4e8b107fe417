// Package wire is the network layer of the sync engine. It exposes the five
// operations the pipelines need as a small interface, normalises every HTTP
// outcome into a Response, and wraps operations with bounded retry and rate
// limit handling.
package wire

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Response is the normalised outcome of one network call.
type Response struct {
	StatusCode int           // zero when the transport failed outright
	OK         bool          // no transport error and a 2xx status
	Retryable  bool          // transport error, 5xx, or rate limited
	Message    string        // response body, or transport error text
	Elapsed    time.Duration // wall time for this call

	// RateLimited reports a 429, or a 2xx that exhausted the quota.
	// ResetAt is the server supplied time the quota reopens.
	RateLimited bool
	ResetAt     time.Time
}

// Err converts a failed response into an error carrying the server's parsed
// error text, if any. Returns nil for an OK response.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	if r.StatusCode == 0 {
		return fmt.Errorf("transport: %s", r.Message)
	}
	if msg := ErrorText(r.Message); msg != "" {
		return &StatusError{Code: r.StatusCode, Err: fmt.Errorf("%s", msg)}
	}
	return &StatusError{Code: r.StatusCode, Err: fmt.Errorf("%s", http.StatusText(r.StatusCode))}
}

// StatusError represents a rejection with an associated HTTP status code.
type StatusError struct {
	Code int
	Err  error
}

func (se *StatusError) Error() string {
	return fmt.Sprintf("%d %s", se.Code, se.Err.Error())
}

// Status returns the HTTP status code.
func (se *StatusError) Status() int {
	return se.Code
}

// CreateStatusRequest carries the parameters for one status create.
type CreateStatusRequest struct {
	IdempotencyKey uint64
	Status         string
	InReplyToID    string
	SpoilerText    string
	Visibility     string
	MediaIDs       []string
}

// PageQuery carries the cursor parameters for one timeline page fetch.
type PageQuery struct {
	MinID        string
	MaxID        string
	SinceID      string
	Limit        int
	ExcludeTypes []string
}

// Caller is the abstract network surface the pipelines depend on.
type Caller interface {
	SimplePost(ctx context.Context, url string) Response
	SimpleDelete(ctx context.Context, url string) Response
	CreateStatus(ctx context.Context, url string, req CreateStatusRequest) Response
	UploadAttachment(ctx context.Context, url, path, description string) Response
	GetTimelinePage(ctx context.Context, url string, q PageQuery) Response
}
