package wire

import (
	"context"
	"time"

	"golang.org/x/exp/slog"
)

// DefaultRetries is used when a configured retry count is zero or negative.
const DefaultRetries = 3

// Result summarises one logical operation after retries.
type Result struct {
	Success  bool
	Message  string // final response body, or error text
	Attempts int
	Elapsed  time.Duration
}

// Driver retries a single logical network operation. A retryable failure is
// retried immediately up to Retries attempts. A rate limited response is
// slept out and retried without consuming an attempt. A non retryable
// failure stops the operation at once.
type Driver struct {
	Retries int

	// Sleep is the blocking wait used for rate limit pauses.
	// Defaults to time.Sleep.
	Sleep func(time.Duration)

	// Now is the clock used to compute rate limit waits. Defaults to time.Now.
	Now func() time.Time

	Log *slog.Logger
}

func (d *Driver) retries() int {
	if d.Retries <= 0 {
		return DefaultRetries
	}
	return d.Retries
}

func (d *Driver) sleep(dur time.Duration) {
	if d.Sleep != nil {
		d.Sleep(dur)
		return
	}
	time.Sleep(dur)
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Driver) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

// Do runs op until it succeeds, fails fatally, or the attempt budget is
// exhausted. url is used only for logging.
func (d *Driver) Do(ctx context.Context, url string, op func(context.Context) Response) Result {
	var result Result
	start := time.Now()
	for result.Attempts < d.retries() {
		resp := op(ctx)
		result.Attempts++
		result.Message = resp.Message
		d.log().Info("request",
			"url", url,
			"status", resp.StatusCode,
			"ms", resp.Elapsed.Milliseconds(),
			"attempt", result.Attempts)

		if resp.RateLimited && !resp.OK {
			// the wait is the server's doing, not a failed attempt
			result.Attempts--
			d.waitForReset(resp)
			continue
		}
		if resp.OK {
			if resp.RateLimited {
				// the call landed but drained the quota; pause here so the
				// next request does not bounce off a 429
				d.waitForReset(resp)
			}
			result.Success = true
			break
		}
		if !resp.Retryable {
			break
		}
	}
	result.Elapsed = time.Since(start)
	return result
}

func (d *Driver) waitForReset(resp Response) {
	wait := resp.ResetAt.Sub(d.now())
	if wait < 0 {
		wait = 0
	}
	d.log().Info("rate limited", "wait", wait.String())
	d.sleep(wait)
}
