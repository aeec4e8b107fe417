// Package inbox incrementally fetches an account's home timeline and
// notifications into append only log files.
//
// Each stream keeps a high water mark, the highest remote id already
// durably written. Pagination direction depends on the stream's mode:
// "newest" pages backward from the top and buffers before writing,
// "oldest" pages forward from the mark and writes page by page. The log
// file is always chronological, oldest record first.
package inbox

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/exp/slog"

	"github.com/davecheney/ferry/internal/algorithms"
	"github.com/davecheney/ferry/internal/ferry"
	"github.com/davecheney/ferry/internal/options"
	"github.com/davecheney/ferry/internal/wire"
	"github.com/davecheney/ferry/models"
)

const (
	// pages fetched on a stream's very first run
	defaultMaxRequests = 5

	statusPageSize       = 40
	notificationPageSize = 30
)

// Receiver fetches new entries for one account.
type Receiver struct {
	Client  wire.Caller
	Driver  *wire.Driver
	Account *ferry.Account
	Log     *slog.Logger
}

type stream struct {
	name    string
	url     string
	markKey string
	modeKey string
	limit   int
	exclude []string
	decode  func(body string) ([]models.LogRecord, error)
}

func (r *Receiver) streams() []stream {
	return []stream{
		{
			name:    "home",
			url:     r.Account.BaseURL() + "/api/v1/timelines/home",
			markKey: options.LastHomeID,
			modeKey: options.PullHome,
			limit:   statusPageSize,
			decode: func(body string) ([]models.LogRecord, error) {
				statuses, err := models.DecodeStatuses(body)
				if err != nil {
					return nil, err
				}
				return algorithms.Map(statuses, func(s *models.Status) models.LogRecord { return s }), nil
			},
		},
		{
			name:    "notifications",
			url:     r.Account.BaseURL() + "/api/v1/notifications",
			markKey: options.LastNotificationID,
			modeKey: options.PullNotifications,
			limit:   notificationPageSize,
			exclude: r.excludedTypes(),
			decode: func(body string) ([]models.LogRecord, error) {
				notifications, err := models.DecodeNotifications(body)
				if err != nil {
					return nil, err
				}
				return algorithms.Map(notifications, func(n *models.Notification) models.LogRecord { return n }), nil
			},
		},
	}
}

// excludedTypes translates the account's exclusion options into the
// notification types the server should withhold.
func (r *Receiver) excludedTypes() []string {
	byOption := []struct{ key, kind string }{
		{options.ExcludeBoosts, "reblog"},
		{options.ExcludeFavourites, "favourite"},
		{options.ExcludeFollows, "follow"},
		{options.ExcludeMentions, "mention"},
		{options.ExcludePolls, "poll"},
	}
	var kinds []string
	for _, e := range byOption {
		switch r.Account.Options.GetDefault(e.key, "") {
		case "true", "yes", "1":
			kinds = append(kinds, e.kind)
		}
	}
	return kinds
}

// Run fetches both streams. A failure in one stream does not stop the
// other; the first failure is returned after both have run.
func (r *Receiver) Run(ctx context.Context) error {
	var firstErr error
	for _, st := range r.streams() {
		if err := r.runStream(ctx, st); err != nil {
			r.Log.Error("inbox: stream failed", "stream", st.name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Receiver) runStream(ctx context.Context, st stream) error {
	mode := r.Account.Options.GetDefault(st.modeKey, "newest")
	if mode == "off" {
		return nil
	}
	mark := r.Account.Options.GetDefault(st.markKey, "")
	if mark == "" || mode == "newest" {
		return r.pullNewestFirst(ctx, st, mark)
	}
	return r.pullOldestFirst(ctx, st, mark)
}

// fetchPage fetches and decodes one page through the retry driver.
func (r *Receiver) fetchPage(ctx context.Context, st stream, q wire.PageQuery) ([]models.LogRecord, error) {
	result := r.Driver.Do(ctx, st.url, func(ctx context.Context) wire.Response {
		return r.Client.GetTimelinePage(ctx, st.url, q)
	})
	if !result.Success {
		if msg := wire.ErrorText(result.Message); msg != "" {
			return nil, fmt.Errorf("page fetch: %s (after %d attempts)", msg, result.Attempts)
		}
		return nil, fmt.Errorf("page fetch failed after %d attempts", result.Attempts)
	}
	return st.decode(result.Message)
}

// pullNewestFirst pages backward from the most recent entries, buffers
// everything fetched, then writes it oldest first in one pass. The mark
// only advances after the buffered write lands, so a failure mid way
// refetches next run rather than leaving a hole in the log.
func (r *Receiver) pullNewestFirst(ctx context.Context, st stream, mark string) error {
	maxRequests := 0 // unbounded once a mark exists
	if mark == "" {
		maxRequests = defaultMaxRequests
	}

	var all []models.LogRecord
	maxID := ""
	for page := 0; maxRequests == 0 || page < maxRequests; page++ {
		records, err := r.fetchPage(ctx, st, wire.PageQuery{
			MaxID:        maxID,
			SinceID:      mark,
			Limit:        st.limit,
			ExcludeTypes: st.exclude,
		})
		if err != nil {
			// nothing was written; the old mark stands and the whole
			// window is refetched next run
			return err
		}
		if len(records) == 0 {
			break
		}
		all = append(all, records...)
		maxID = records[len(records)-1].LogID()
		if len(records) < st.limit {
			break
		}
	}
	if len(all) == 0 {
		return nil
	}

	algorithms.Reverse(all)
	if err := r.appendRecords(st, all); err != nil {
		return err
	}
	return r.setMark(st, highestID(all))
}

// pullOldestFirst pages forward from the mark, writing each page as it
// arrives and advancing the mark behind it.
func (r *Receiver) pullOldestFirst(ctx context.Context, st stream, mark string) error {
	for {
		records, err := r.fetchPage(ctx, st, wire.PageQuery{
			MinID:        mark,
			Limit:        st.limit,
			ExcludeTypes: st.exclude,
		})
		if err != nil {
			// pages already written are durable; the mark stays with them
			return err
		}
		if len(records) == 0 {
			return nil
		}
		short := len(records) < st.limit
		algorithms.Reverse(records) // pages arrive newest first
		if err := r.appendRecords(st, records); err != nil {
			return err
		}
		mark = highestID(records)
		if err := r.setMark(st, mark); err != nil {
			return err
		}
		if short {
			return nil
		}
	}
}

func (r *Receiver) appendRecords(st stream, records []models.LogRecord) error {
	f, err := os.OpenFile(r.Account.LogPath(st.name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := record.WriteRecord(f); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	r.Log.Info("inbox: wrote records", "stream", st.name, "count", len(records))
	return nil
}

// setMark records and flushes the stream's new high water mark.
func (r *Receiver) setMark(st stream, mark string) error {
	r.Account.Options.Set(st.markKey, mark)
	return r.Account.Options.Flush()
}

// highestID returns the largest remote id among records. Remote ids are
// decimal strings; a longer string is always the larger id.
func highestID(records []models.LogRecord) string {
	best := ""
	for _, record := range records {
		if idLess(best, record.LogID()) {
			best = record.LogID()
		}
	}
	return best
}

func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
