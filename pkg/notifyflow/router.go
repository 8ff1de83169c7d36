package notifyflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/notifyflow/pkg/notifyflow/event"
	"github.com/randalmurphal/notifyflow/pkg/notifyflow/load"
	"github.com/randalmurphal/notifyflow/pkg/notifyflow/observability"
)

// Router consumes completion events, deduplicates them, scales message
// verbosity with ambient load, and emits display, sound, and
// accessibility output events back onto the bus.
//
// Per inbound event: dedup check, load assessment, detail selection,
// message construction, bounded queueing, emission. Everything is
// best-effort: a failure along the way degrades the notification, it
// never propagates to the producer.
type Router struct {
	bus       *event.Bus
	estimator load.Estimator
	opts      Options
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	now       func() time.Time

	history     HistoryStore
	ownsHistory bool

	// One mutex guards the dedup cache, the pending queue, and the sound
	// window: the critical sections are short and the structures small.
	mu         sync.Mutex
	dedup      *dedupCache
	queue      *outputQueue
	soundMarks []time.Time

	sent     atomic.Int64
	deduped  atomic.Int64
	drainOps atomic.Int64

	sub    *event.Subscription
	closed atomic.Bool
}

// Metrics is a read-only snapshot of router counters.
type Metrics struct {
	Sent             int64
	Deduplicated     int64
	QueueDepth       int
	DedupCacheSize   int
	SoundsLastMinute int
	QueueDrains      int64
}

// New creates a Router and subscribes it to the completion-event pattern
// on the given bus. Close releases the subscription.
func New(bus *event.Bus, estimator load.Estimator, opts ...Option) (*Router, error) {
	if bus == nil {
		return nil, fmt.Errorf("router: bus is required")
	}
	if estimator == nil {
		return nil, fmt.Errorf("router: load estimator is required")
	}

	cfg := routerConfig{
		opts:    DefaultOptions(),
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.opts.MaxQueueDepth <= 0 {
		cfg.opts.MaxQueueDepth = DefaultMaxQueueDepth
	}
	cacheSize := cfg.opts.DedupCacheSize
	if cacheSize <= 0 {
		cacheSize = cfg.opts.MaxQueueDepth
	}

	dedup, err := newDedupCache(cacheSize, cfg.opts.DedupWindow, cfg.now)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := &Router{
		bus:       bus,
		estimator: load.Safe(estimator, cfg.logger),
		opts:      cfg.opts,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		spans:     cfg.spans,
		now:       cfg.now,
		history:   cfg.history,
		dedup:     dedup,
		queue:     newOutputQueue(cfg.opts.MaxQueueDepth),
	}

	if r.history == nil && cfg.opts.PersistentContext {
		if cfg.opts.HistoryPath != "" {
			store, err := NewSQLiteHistory(cfg.opts.HistoryPath)
			if err != nil {
				return nil, fmt.Errorf("router: open history journal: %w", err)
			}
			r.history = store
		} else {
			r.history = NewMemoryHistory(cfg.opts.HistorySize)
		}
		r.ownsHistory = true
	}

	sub, err := bus.Subscribe(cfg.opts.Pattern, event.HandlerFunc(
		func(ctx context.Context, evt event.Event) ([]event.Event, error) {
			r.Route(ctx, evt)
			return nil, nil
		},
	), event.WithSubscriptionPriority(event.PriorityHigh))
	if err != nil {
		if r.ownsHistory {
			_ = r.history.Close()
		}
		return nil, fmt.Errorf("router: %w", err)
	}
	r.sub = sub

	return r, nil
}

// Route processes one completion event end to end. It is normally driven
// by the bus subscription but may be called directly. Once processing
// starts it runs to completion (emit or drop); nothing cancels an
// in-flight notification.
func (r *Router) Route(ctx context.Context, evt event.Event) {
	if evt == nil || r.closed.Load() {
		return
	}

	done := observability.TimedOperation()
	ctx, span := r.spans.StartRouteSpan(ctx, evt.Type(), evt.CorrelationID())

	p := completionFromEvent(evt)
	key := dedupKey(evt, p)

	// The dedup check-and-update is one critical section so
	// near-simultaneous same-key events admit at most one.
	r.mu.Lock()
	admitted, age := r.dedup.admit(key)
	r.mu.Unlock()

	if !admitted {
		r.deduped.Add(1)
		r.metrics.RecordDeduplicated(ctx, p.Pattern)
		observability.LogNotificationDeduplicated(r.logger, key, age)
		r.record(ctx, evt, p, OutcomeDeduplicated, DetailMinimal, load.LevelIdle, "")
		r.spans.EndSpanWithError(span, nil)
		return
	}

	level := r.estimator.Estimate()
	detail := DetailFor(level)
	message := buildMessage(p, detail)
	outputs := r.buildOutputs(evt, p, message, detail, level)

	r.mu.Lock()
	drained := r.queue.push(outputs...)
	var flush []event.Event
	if !r.opts.DeferredDispatch {
		flush = r.queue.drainAll()
	}
	r.mu.Unlock()

	r.dispatch(ctx, drained, true)
	r.dispatch(ctx, flush, false)

	r.sent.Add(1)
	elapsed := time.Duration(done() * float64(time.Millisecond))
	r.metrics.RecordNotification(ctx, p.Pattern, detail.String(), level.String(), elapsed)
	observability.LogNotificationSent(r.logger, p.Pattern, p.Status, detail.String(), level.String(), elapsed.Seconds()*1000)
	r.record(ctx, evt, p, OutcomeSent, detail, level, message)

	r.spans.EndSpanWithError(span, nil)
}

// buildOutputs constructs the derived output events for one accepted
// notification. All outputs inherit the parent's correlation chain.
func (r *Router) buildOutputs(
	parent event.Event,
	p CompletionPayload,
	message string,
	detail DetailLevel,
	level load.Level,
) []event.Event {
	outputs := make([]event.Event, 0, 3)

	outputs = append(outputs, event.NewFromParent(parent, TypeDisplay, r.opts.Source,
		DisplayPayload{
			Message:     message,
			Pattern:     p.Pattern,
			DetailLevel: detail,
			LoadLevel:   level,
		},
		event.WithPriority(parent.Priority()),
		event.WithAttr("load_level", level.String()),
	))

	if r.allowSound(level) {
		outputs = append(outputs, event.NewFromParent(parent, TypeSound, r.opts.Source,
			SoundPayload{
				SoundID:  soundIDFor(p.Status),
				Volume:   soundVolumeFor(level),
				Priority: parent.Priority().String(),
			},
			event.WithAttr("load_level", level.String()),
		))
	}

	outputs = append(outputs, event.NewFromParent(parent, TypeAnnounce, r.opts.Source,
		AnnouncePayload{
			Message:  message,
			Priority: AnnouncePriorityFor(level),
		},
		event.WithAttr("load_level", level.String()),
	))

	return outputs
}

// allowSound applies the sound emission policy: sound must be enabled,
// load below critical, and the rolling per-minute cap not yet reached.
// A skipped sound is omitted for this notification, never queued.
func (r *Router) allowSound(level load.Level) bool {
	if !r.opts.SoundEnabled {
		observability.LogSoundSkipped(r.logger, "sound_disabled")
		return false
	}
	if level >= load.LevelCritical {
		observability.LogSoundSkipped(r.logger, "critical_load")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneSoundLocked(now)
	if len(r.soundMarks) >= r.opts.MaxSoundPerMinute {
		observability.LogSoundSkipped(r.logger, "per_minute_cap")
		return false
	}

	r.soundMarks = append(r.soundMarks, now)
	r.metrics.RecordSound(context.Background())
	return true
}

// dispatch emits events to the bus, oldest first. Emission failures are
// logged and never retried.
func (r *Router) dispatch(ctx context.Context, events []event.Event, isDrain bool) {
	if len(events) == 0 {
		return
	}

	for _, evt := range events {
		emitCtx, span := r.spans.StartEmitSpan(ctx, evt.Type())
		err := r.bus.Emit(emitCtx, evt)
		r.spans.EndSpanWithError(span, err)
		if err != nil {
			observability.LogEmitError(r.logger, evt.Type(), err)
			r.metrics.RecordEmitError(ctx, evt.Type())
		}
	}

	if isDrain {
		r.drainOps.Add(1)
		r.metrics.RecordQueueDrain(ctx, len(events))

		r.mu.Lock()
		depth := r.queue.len()
		r.mu.Unlock()
		observability.LogQueueDrain(r.logger, len(events), depth)
	}
}

// Flush dispatches every queued output event. Only meaningful with
// deferred dispatch; a no-op otherwise.
func (r *Router) Flush(ctx context.Context) {
	r.mu.Lock()
	flush := r.queue.drainAll()
	r.mu.Unlock()

	r.dispatch(ctx, flush, false)
}

// Metrics returns a read-only snapshot of router counters.
func (r *Router) Metrics() Metrics {
	r.mu.Lock()
	queueDepth := r.queue.len()
	cacheSize := r.dedup.len()
	sounds := r.countSoundLocked(r.now())
	r.mu.Unlock()

	return Metrics{
		Sent:             r.sent.Load(),
		Deduplicated:     r.deduped.Load(),
		QueueDepth:       queueDepth,
		DedupCacheSize:   cacheSize,
		SoundsLastMinute: sounds,
		QueueDrains:      r.drainOps.Load(),
	}
}

// Cleanup purges expired dedup records and stale sound marks. Idempotent;
// run it periodically (every dedup window or so) or on demand.
func (r *Router) Cleanup() {
	r.mu.Lock()
	purged := r.dedup.cleanup()
	r.pruneSoundLocked(r.now())
	remaining := r.dedup.len()
	r.mu.Unlock()

	observability.LogCleanup(r.logger, purged, remaining)
}

// StartCleanup runs Cleanup every interval until the returned stop
// function is called. A non-positive interval defaults to the dedup
// window.
func (r *Router) StartCleanup(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = r.opts.DedupWindow
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				r.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
		})
	}
}

// History exposes the routing journal, or nil when disabled.
func (r *Router) History() HistoryStore {
	return r.history
}

// Close unsubscribes from the bus, flushes pending outputs, and closes a
// journal the router opened itself (injected journals stay open).
func (r *Router) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	if r.sub != nil {
		r.sub.Unsubscribe()
	}

	r.mu.Lock()
	flush := r.queue.drainAll()
	r.mu.Unlock()
	r.dispatch(context.Background(), flush, false)

	if r.ownsHistory && r.history != nil {
		return r.history.Close()
	}
	return nil
}

// record journals one routing decision, best-effort.
func (r *Router) record(
	ctx context.Context,
	evt event.Event,
	p CompletionPayload,
	outcome string,
	detail DetailLevel,
	level load.Level,
	message string,
) {
	if r.history == nil {
		return
	}

	err := r.history.Record(ctx, &HistoryEntry{
		EventID:       evt.ID(),
		CorrelationID: evt.CorrelationID(),
		Pattern:       p.Pattern,
		Status:        p.Status,
		Outcome:       outcome,
		DetailLevel:   detail,
		LoadLevel:     level,
		Message:       message,
		RecordedAt:    r.now(),
	})
	if err != nil {
		observability.LogJournalError(r.logger, err)
	}
}

// countSoundLocked counts sound marks within the rolling window without
// touching the slice. Callers must hold r.mu.
func (r *Router) countSoundLocked(now time.Time) int {
	cutoff := now.Add(-soundWindow)
	n := 0
	for i := len(r.soundMarks) - 1; i >= 0; i-- {
		if !r.soundMarks[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}

// pruneSoundLocked drops sound marks older than the rolling window.
// Callers must hold r.mu.
func (r *Router) pruneSoundLocked(now time.Time) {
	cutoff := now.Add(-soundWindow)
	i := 0
	for i < len(r.soundMarks) && !r.soundMarks[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.soundMarks = append(r.soundMarks[:0], r.soundMarks[i:]...)
	}
}

// soundVolumeFor quiets the cue as load climbs.
func soundVolumeFor(level load.Level) float64 {
	if level >= load.LevelHigh {
		return 0.4
	}
	return 0.7
}
