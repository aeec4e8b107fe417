// Package snowflake provides a Mastodon compatible Snowflake ID generator.
//
// ferry uses these IDs as Idempotency-Key values: one ID is minted per
// logical status create and reused verbatim across retries of that create.
package snowflake

import (
	"math/rand"
	"sync"
	"time"
)

// TimeToID converts a time.Time to a Snowflake ID.
func TimeToID(ts time.Time) uint64 {
	// 48 bits for time in milliseconds.
	// 0 bits for worker ID.
	// 0 bits for sequence.
	// 16 bits for random.
	return uint64(ts.UnixNano()/int64(time.Millisecond))<<16 | uint64(rand.Intn(1<<16))
}

// IDToTime converts a Snowflake ID to a time.Time.
func IDToTime(id uint64) time.Time {
	return time.Unix(0, int64(id>>16)*1e6)
}

// Generator mints IDs that are unique within the process even when
// several are requested inside the same millisecond.
type Generator struct {
	mu   sync.Mutex
	last uint64
}

// Next returns a fresh ID, strictly greater than any previous ID
// returned by this generator.
func (g *Generator) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := TimeToID(time.Now())
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
