package notifyflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/notifyflow/pkg/notifyflow/load"
)

// Routing outcomes recorded in the history journal.
const (
	OutcomeSent         = "sent"
	OutcomeDeduplicated = "deduplicated"
)

// HistoryEntry is one recorded routing decision.
type HistoryEntry struct {
	EventID       string      `json:"event_id"`
	CorrelationID string      `json:"correlation_id"`
	Pattern       string      `json:"pattern"`
	Status        string      `json:"status"`
	Outcome       string      `json:"outcome"`
	DetailLevel   DetailLevel `json:"detail_level"`
	LoadLevel     load.Level  `json:"load_level"`
	Message       string      `json:"message,omitempty"`
	RecordedAt    time.Time   `json:"recorded_at"`
}

// HistoryFilter specifies criteria for listing entries.
type HistoryFilter struct {
	// Pattern filters by completion pattern.
	Pattern string

	// Outcome filters by routing outcome.
	Outcome string

	// Limit is the maximum number of results (0 = no limit).
	Limit int
}

// ErrHistoryClosed is returned by operations on a closed store.
var ErrHistoryClosed = fmt.Errorf("history store is closed")

// HistoryStore journals routing decisions for later inspection.
// Implementations must be safe for concurrent use. Writes are best-effort
// from the router's perspective: an error is logged, never escalated.
type HistoryStore interface {
	// Record persists one routing decision.
	Record(ctx context.Context, entry *HistoryEntry) error

	// List returns entries matching the filter, newest first.
	List(ctx context.Context, filter HistoryFilter) ([]*HistoryEntry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}

// MemoryHistory is an in-memory HistoryStore.
// Suitable for testing and short-lived processes. Bounded: when full, the
// oldest entries are evicted.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []*HistoryEntry
	max     int
	closed  bool
}

// DefaultHistorySize bounds the in-memory journal.
const DefaultHistorySize = 1000

// NewMemoryHistory creates a bounded in-memory journal.
// A non-positive max defaults to DefaultHistorySize.
func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &MemoryHistory{max: max}
}

// Record persists one routing decision.
func (h *MemoryHistory) Record(_ context.Context, entry *HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history entry is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHistoryClosed
	}

	cp := *entry
	h.entries = append(h.entries, &cp)
	if len(h.entries) > h.max {
		h.entries = append(h.entries[:0], h.entries[len(h.entries)-h.max:]...)
	}
	return nil
}

// List returns entries matching the filter, newest first.
func (h *MemoryHistory) List(_ context.Context, filter HistoryFilter) ([]*HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, ErrHistoryClosed
	}

	var result []*HistoryEntry
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if filter.Pattern != "" && e.Pattern != filter.Pattern {
			continue
		}
		if filter.Outcome != "" && e.Outcome != filter.Outcome {
			continue
		}
		cp := *e
		result = append(result, &cp)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

// Count returns the number of stored entries.
func (h *MemoryHistory) Count(_ context.Context) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return 0, ErrHistoryClosed
	}
	return len(h.entries), nil
}

// Close marks the store closed.
func (h *MemoryHistory) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.entries = nil
	return nil
}
