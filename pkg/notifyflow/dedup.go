package notifyflow

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/randalmurphal/notifyflow/pkg/notifyflow/event"
)

// dedupKeySeparator joins pattern and status into a cache key.
const dedupKeySeparator = "|"

// dedupKey derives the deduplication key for a completion event.
// Malformed payloads fall back to the event ID, which disables
// deduplication for them without failing the notification.
func dedupKey(evt event.Event, p CompletionPayload) string {
	if !p.wellFormed() {
		return evt.ID()
	}
	return p.Pattern + dedupKeySeparator + p.Status
}

// dedupCache is a bounded last-sent cache.
//
// Records older than the window are expired; when the cache is full the
// least-recently-updated record is evicted. Callers must serialize access
// (the router's mutex): admit is a check-and-update that must not race.
type dedupCache struct {
	records *lru.Cache[string, time.Time]
	window  time.Duration
	now     func() time.Time
}

func newDedupCache(size int, window time.Duration, now func() time.Time) (*dedupCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("dedup cache size must be positive, got %d", size)
	}
	if now == nil {
		now = time.Now
	}

	records, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}

	return &dedupCache{
		records: records,
		window:  window,
		now:     now,
	}, nil
}

// admit decides whether a key passes deduplication. A fresh record (sent
// within the window) rejects the key; otherwise the record is upserted to
// now and the key passes. Check and update are one step so concurrent
// same-key events cannot both pass.
func (c *dedupCache) admit(key string) (ok bool, age time.Duration) {
	now := c.now()
	// Peek keeps a rejected duplicate from refreshing the record's
	// recency, so capacity eviction stays least-recently-updated.
	if last, found := c.records.Peek(key); found {
		if elapsed := now.Sub(last); elapsed < c.window {
			return false, elapsed
		}
	}
	c.records.Add(key, now)
	return true, 0
}

// len returns the number of records, expired ones included until the next
// cleanup sweep.
func (c *dedupCache) len() int {
	return c.records.Len()
}

// cleanup purges expired records and returns how many were removed.
// Idempotent: a second sweep with the same clock removes nothing.
func (c *dedupCache) cleanup() int {
	cutoff := c.now().Add(-c.window)
	purged := 0
	for _, key := range c.records.Keys() {
		if last, found := c.records.Peek(key); found && last.Before(cutoff) {
			c.records.Remove(key)
			purged++
		}
	}
	return purged
}
