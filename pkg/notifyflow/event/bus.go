package event

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Bus is an in-process pub/sub router with pattern-based subscriptions
// and priority-ordered, synchronous delivery.
//
// Dispatch happens in the emitter's goroutine, so events sharing a
// correlation ID reach a given subscriber in emission order. Handlers that
// perform blocking I/O should offload it to their own goroutine rather
// than stall the dispatch loop.
type Bus struct {
	logger   *slog.Logger
	registry *Registry
	maxDepth int

	mu      sync.RWMutex
	subs    []*Subscription
	nextSeq int64

	closed atomic.Bool
}

// DefaultMaxDepth bounds cascades of derived events.
const DefaultMaxDepth = 10

// BusOption configures bus behavior.
type BusOption func(*Bus)

// WithBusLogger sets the logger used for handler failures.
// Default: slog.Default().
func WithBusLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMaxDepth sets the maximum derived-event cascade depth.
// Default: DefaultMaxDepth.
func WithMaxDepth(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

// WithRegistry enables advisory schema validation of emitted events.
// Validation failures are logged, never returned to the emitter.
func WithRegistry(r *Registry) BusOption {
	return func(b *Bus) {
		b.registry = r
	}
}

// NewBus creates a new in-process event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription represents an active pattern subscription.
type Subscription struct {
	pattern  Pattern
	handler  Handler
	priority Priority
	seq      int64

	bus     *Bus
	removed atomic.Bool
}

// Pattern returns the subscription's compiled pattern.
func (s *Subscription) Pattern() Pattern {
	return s.pattern
}

// Unsubscribe removes the subscription. It is a no-op when called again.
func (s *Subscription) Unsubscribe() {
	if !s.removed.CompareAndSwap(false, true) {
		return
	}

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	for i, sub := range s.bus.subs {
		if sub == s {
			s.bus.subs = append(s.bus.subs[:i], s.bus.subs[i+1:]...)
			break
		}
	}
}

// subscribeConfig holds per-subscription settings.
type subscribeConfig struct {
	priority Priority
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscribeConfig)

// WithSubscriptionPriority sets the delivery priority.
// Higher priorities are invoked first; ties are broken by registration
// order. Default: PriorityNormal.
func WithSubscriptionPriority(p Priority) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.priority = p
	}
}

// Subscribe registers a handler for all events whose type matches the
// pattern. Multiple handlers may share a pattern. An invalid pattern is
// the only error that crosses this boundary.
func (b *Bus) Subscribe(pattern string, handler Handler, opts ...SubscribeOption) (*Subscription, error) {
	if b.closed.Load() {
		return nil, fmt.Errorf("subscribe %q: bus is closed", pattern)
	}
	if handler == nil {
		return nil, fmt.Errorf("subscribe %q: handler must not be nil", pattern)
	}

	compiled, err := CompilePattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	cfg := subscribeConfig{priority: PriorityNormal}
	for _, opt := range opts {
		opt(&cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	sub := &Subscription{
		pattern:  compiled,
		handler:  handler,
		priority: cfg.priority,
		seq:      b.nextSeq,
		bus:      b,
	}
	b.subs = append(b.subs, sub)

	return sub, nil
}

// Emit delivers an event to all matching subscriptions.
//
// Handlers run synchronously in descending priority order. A handler
// error or panic is logged and does not prevent delivery to the remaining
// handlers; the bus does not retry. Derived events returned by handlers
// are re-emitted, bounded by the cascade depth guard.
func (b *Bus) Emit(ctx context.Context, evt Event) error {
	if evt == nil {
		return &EventError{Message: "emit: event must not be nil"}
	}
	if b.closed.Load() {
		return &EventError{Event: evt, Message: "bus is closed"}
	}

	depth := eventDepth(ctx)
	if depth >= b.maxDepth {
		b.logger.Warn("event cascade depth exceeded, dropping derived event",
			slog.String("event_type", evt.Type()),
			slog.String("correlation_id", evt.CorrelationID()),
			slog.Int("depth", depth),
		)
		return &EventError{
			Event:   evt,
			Message: fmt.Sprintf("max event depth exceeded (%d)", b.maxDepth),
		}
	}

	if b.registry != nil {
		if err := b.registry.Validate(evt); err != nil {
			// Advisory only: a producer bug must not turn into a lost event.
			b.logger.Warn("event failed schema validation",
				slog.String("event_type", evt.Type()),
				slog.String("event_id", evt.ID()),
				slog.String("error", err.Error()),
			)
		}
	}

	subs := b.matching(evt.Type())
	if len(subs) == 0 {
		return nil
	}

	childCtx := withEventDepth(ctx, depth+1)

	var derived []Event
	for _, sub := range subs {
		events, err := b.invoke(childCtx, sub, evt)
		if err != nil {
			b.logger.Error("event handler failed",
				slog.String("event_type", evt.Type()),
				slog.String("event_id", evt.ID()),
				slog.String("handler", handlerName(sub.handler)),
				slog.String("error", err.Error()),
			)
			continue
		}
		derived = append(derived, events...)
	}

	for _, d := range derived {
		if err := b.Emit(childCtx, d); err != nil {
			b.logger.Error("derived event emission failed",
				slog.String("event_type", d.Type()),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// matching returns a snapshot of matching subscriptions sorted by
// descending priority, then registration order.
func (b *Bus) matching(eventType string) []*Subscription {
	b.mu.RLock()
	var subs []*Subscription
	for _, sub := range b.subs {
		if sub.pattern.Match(eventType) {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority > subs[j].priority
		}
		return subs[i].seq < subs[j].seq
	})

	return subs
}

// invoke runs a single handler with panic isolation.
func (b *Bus) invoke(ctx context.Context, sub *Subscription, evt Event) (derived []Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			derived = nil
			err = &EventError{
				Event:   evt,
				Handler: handlerName(sub.handler),
				Message: fmt.Sprintf("handler panic: %v", r),
			}
		}
	}()

	if sub.removed.Load() {
		return nil, nil
	}
	return sub.handler.Handle(ctx, evt)
}

// Close shuts down the bus. Emit and Subscribe fail afterwards.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		sub.removed.Store(true)
	}
	b.subs = nil

	return nil
}

// handlerName extracts a name for a handler (for logging).
func handlerName(h Handler) string {
	return fmt.Sprintf("%T", h)
}

// Context keys for cascade depth tracking

type contextKey string

const eventDepthKey contextKey = "event_depth"

func eventDepth(ctx context.Context) int {
	if v := ctx.Value(eventDepthKey); v != nil {
		return v.(int)
	}
	return 0
}

func withEventDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, eventDepthKey, depth)
}
