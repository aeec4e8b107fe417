package wire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSimplePost(t *testing.T) {
	t.Run("2xx is okay", func(t *testing.T) {
		require := require.New(t)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(r.Method, "POST")
			require.Equal(r.Header.Get("Authorization"), "Bearer s3kr1t")
			w.Write([]byte(`{"id":"1"}`))
		}))
		defer srv.Close()

		c := &Client{Token: "s3kr1t"}
		resp := c.SimplePost(context.Background(), srv.URL+"/api/v1/statuses/1/favourite")
		require.True(resp.OK)
		require.False(resp.Retryable)
		require.Equal(resp.StatusCode, 200)
		require.Equal(resp.Message, `{"id":"1"}`)
	})
	t.Run("5xx is retryable", func(t *testing.T) {
		require := require.New(t)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "oops", http.StatusBadGateway)
		}))
		defer srv.Close()

		resp := (&Client{}).SimplePost(context.Background(), srv.URL)
		require.False(resp.OK)
		require.True(resp.Retryable)
		require.Equal(resp.StatusCode, 502)
	})
	t.Run("4xx is fatal with parsed server error", func(t *testing.T) {
		require := require.New(t)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"Validation failed"}`))
		}))
		defer srv.Close()

		resp := (&Client{}).SimplePost(context.Background(), srv.URL)
		require.False(resp.OK)
		require.False(resp.Retryable)
		require.EqualError(resp.Err(), "422 Validation failed")
	})
	t.Run("connection failure is retryable", func(t *testing.T) {
		require := require.New(t)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // nothing listening

		resp := (&Client{}).SimplePost(context.Background(), srv.URL)
		require.False(resp.OK)
		require.True(resp.Retryable)
		require.Equal(resp.StatusCode, 0)
	})
}

func TestRateLimitClassification(t *testing.T) {
	now := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	reset := now.Add(90 * time.Second)

	t.Run("429 with reset header", func(t *testing.T) {
		require := require.New(t)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Reset", reset.Format(time.RFC3339))
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := &Client{Now: func() time.Time { return now }}
		resp := c.SimplePost(context.Background(), srv.URL)
		require.True(resp.RateLimited)
		require.True(resp.Retryable)
		require.Equal(resp.ResetAt.UTC(), reset)
	})
	t.Run("2xx with zero remaining quota", func(t *testing.T) {
		require := require.New(t)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "90")
			w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		c := &Client{Now: func() time.Time { return now }}
		resp := c.GetTimelinePage(context.Background(), srv.URL, PageQuery{})
		require.True(resp.OK)
		require.True(resp.RateLimited)
		require.Equal(resp.ResetAt, now.Add(90*time.Second))
	})
}

func TestGetTimelinePageParams(t *testing.T) {
	require := require.New(t)

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	(&Client{}).GetTimelinePage(context.Background(), srv.URL, PageQuery{
		MinID:        "100",
		Limit:        30,
		ExcludeTypes: []string{"reblog", "follow"},
	})
	require.Contains(got, "min_id=100")
	require.Contains(got, "limit=30")
	require.Contains(got, "exclude_types%5B%5D=reblog")
	require.Contains(got, "exclude_types%5B%5D=follow")
	require.NotContains(got, "max_id")
}

func TestDriver(t *testing.T) {
	noSleep := func(time.Duration) {}

	t.Run("success on first attempt", func(t *testing.T) {
		require := require.New(t)

		d := &Driver{Retries: 3, Sleep: noSleep}
		calls := 0
		result := d.Do(context.Background(), "test", func(context.Context) Response {
			calls++
			return Response{StatusCode: 200, OK: true}
		})
		require.True(result.Success)
		require.Equal(result.Attempts, 1)
		require.Equal(calls, 1)
	})
	t.Run("retryable failure exhausts the budget", func(t *testing.T) {
		require := require.New(t)

		d := &Driver{Retries: 3, Sleep: noSleep}
		calls := 0
		result := d.Do(context.Background(), "test", func(context.Context) Response {
			calls++
			return Response{StatusCode: 503, Retryable: true, Message: "unavailable"}
		})
		require.False(result.Success)
		require.Equal(result.Attempts, 3)
		require.Equal(calls, 3)
	})
	t.Run("fatal failure stops immediately", func(t *testing.T) {
		require := require.New(t)

		d := &Driver{Retries: 3, Sleep: noSleep}
		calls := 0
		result := d.Do(context.Background(), "test", func(context.Context) Response {
			calls++
			return Response{StatusCode: 404, Message: `{"error":"Record not found"}`}
		})
		require.False(result.Success)
		require.Equal(result.Attempts, 1)
		require.Equal(calls, 1)
	})
	t.Run("zero retries normalises to the default", func(t *testing.T) {
		require := require.New(t)

		d := &Driver{Sleep: noSleep}
		result := d.Do(context.Background(), "test", func(context.Context) Response {
			return Response{StatusCode: 500, Retryable: true}
		})
		require.Equal(result.Attempts, DefaultRetries)
	})
	t.Run("rate limit wait does not consume an attempt", func(t *testing.T) {
		require := require.New(t)

		now := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
		reset := now.Add(30 * time.Second)
		var slept time.Duration
		d := &Driver{
			Retries: 2,
			Sleep:   func(dur time.Duration) { slept += dur },
			Now:     func() time.Time { return now },
		}
		calls := 0
		result := d.Do(context.Background(), "test", func(context.Context) Response {
			calls++
			if calls == 1 {
				return Response{
					StatusCode:  429,
					Retryable:   true,
					RateLimited: true,
					ResetAt:     reset,
				}
			}
			return Response{StatusCode: 200, OK: true}
		})
		require.True(result.Success)
		require.Equal(calls, 2)
		require.Equal(result.Attempts, 1)
		require.Equal(slept, 30*time.Second)
	})
	t.Run("reset time in the past waits zero", func(t *testing.T) {
		require := require.New(t)

		now := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
		var slept []time.Duration
		d := &Driver{
			Retries: 2,
			Sleep:   func(dur time.Duration) { slept = append(slept, dur) },
			Now:     func() time.Time { return now },
		}
		calls := 0
		d.Do(context.Background(), "test", func(context.Context) Response {
			calls++
			if calls == 1 {
				return Response{StatusCode: 429, Retryable: true, RateLimited: true, ResetAt: now.Add(-time.Minute)}
			}
			return Response{StatusCode: 200, OK: true}
		})
		require.Equal(slept, []time.Duration{0})
	})
}

func TestErrorText(t *testing.T) {
	require := require.New(t)

	require.Equal(ErrorText(`{"error":"Too many requests"}`), "Too many requests")
	require.Equal(ErrorText("<html>not json</html>"), "")
	require.Equal(ErrorText(""), "")
}

func TestResponseErr(t *testing.T) {
	require := require.New(t)

	require.NoError(Response{OK: true}.Err())

	err := Response{StatusCode: 403, Message: "forbidden but not json"}.Err()
	require.EqualError(err, "403 Forbidden")

	err = Response{Message: "dial tcp: i/o timeout"}.Err()
	require.True(strings.HasPrefix(err.Error(), "transport:"))
}
