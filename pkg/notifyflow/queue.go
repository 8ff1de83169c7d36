package notifyflow

import (
	"github.com/randalmurphal/notifyflow/pkg/notifyflow/event"
)

// outputQueue holds constructed output events awaiting dispatch.
//
// The queue is bounded: admission drains (dispatches) the oldest entries
// to make room, never silently discarding anything. Callers must
// serialize access (the router's mutex).
type outputQueue struct {
	items []event.Event
	max   int
}

func newOutputQueue(max int) *outputQueue {
	if max <= 0 {
		max = DefaultMaxQueueDepth
	}
	return &outputQueue{max: max}
}

// len returns the current queue depth.
func (q *outputQueue) len() int {
	return len(q.items)
}

// push appends events and returns the oldest entries popped to keep the
// queue within its bound. When a single batch overflows the bound on its
// own, the overflow comes out of the batch itself, oldest first. The
// popped entries are returned for dispatch by the caller.
func (q *outputQueue) push(events ...event.Event) []event.Event {
	q.items = append(q.items, events...)

	excess := len(q.items) - q.max
	if excess <= 0 {
		return nil
	}

	popped := make([]event.Event, excess)
	copy(popped, q.items[:excess])
	q.items = append(q.items[:0], q.items[excess:]...)
	return popped
}

// drainAll removes and returns every queued event, oldest first.
func (q *outputQueue) drainAll() []event.Event {
	if len(q.items) == 0 {
		return nil
	}
	out := make([]event.Event, len(q.items))
	copy(out, q.items)
	q.items = q.items[:0]
	return out
}
