package notifyflow

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/notifyflow/pkg/notifyflow/config"
	"github.com/randalmurphal/notifyflow/pkg/notifyflow/observability"
)

// Defaults for the recognized configuration surface.
const (
	DefaultMaxQueueDepth     = 100
	DefaultDedupWindow       = 300 * time.Second
	DefaultMaxSoundPerMinute = 5
	DefaultSource            = "router"

	// soundWindow is the rolling window for the per-minute sound cap.
	soundWindow = time.Minute
)

// Options is the router's serializable configuration.
type Options struct {
	// Pattern is the completion-event subscription pattern.
	// Default: "notification:*".
	Pattern string

	// Source identifies the router on emitted output events.
	Source string

	// SoundEnabled gates "output:sound:play" emissions entirely.
	SoundEnabled bool

	// MaxQueueDepth bounds the pending output queue. When full, the
	// oldest entries are drained (dispatched), never silently dropped.
	MaxQueueDepth int

	// DedupWindow suppresses repeat notifications for the same
	// pattern+status within this interval.
	DedupWindow time.Duration

	// DedupCacheSize bounds the dedup record cache.
	// Default: MaxQueueDepth.
	DedupCacheSize int

	// MaxSoundPerMinute caps sound emissions over a rolling minute.
	MaxSoundPerMinute int

	// DeferredDispatch queues output events until Flush or overflow
	// instead of dispatching after every routed notification.
	DeferredDispatch bool

	// PersistentContext enables the routing history journal.
	PersistentContext bool

	// HistoryPath selects the SQLite journal file. Empty keeps the
	// journal in memory.
	HistoryPath string

	// HistorySize bounds the in-memory journal.
	HistorySize int
}

// DefaultOptions returns the standard configuration defaults.
func DefaultOptions() Options {
	return Options{
		Pattern:           DefaultPattern,
		Source:            DefaultSource,
		SoundEnabled:      true,
		MaxQueueDepth:     DefaultMaxQueueDepth,
		DedupWindow:       DefaultDedupWindow,
		MaxSoundPerMinute: DefaultMaxSoundPerMinute,
		PersistentContext: true,
		HistorySize:       DefaultHistorySize,
	}
}

// OptionsFromConfig reads the recognized option keys, falling back to
// defaults for anything missing. A nested "router" section, when present,
// takes the place of the top-level map.
//
// Recognized keys: enable_persistent_context, sound_enabled,
// max_queue_depth, dedup_window_seconds, max_sound_per_minute,
// notification_pattern, source, deferred_dispatch, dedup_cache_size,
// history_path, history_size.
func OptionsFromConfig(cfg config.Config) Options {
	if cfg.Has("router") {
		cfg = cfg.Sub("router")
	}

	o := DefaultOptions()
	o.PersistentContext = cfg.Bool("enable_persistent_context", o.PersistentContext)
	o.SoundEnabled = cfg.Bool("sound_enabled", o.SoundEnabled)
	o.MaxQueueDepth = cfg.Int("max_queue_depth", o.MaxQueueDepth)
	o.DedupWindow = cfg.Duration("dedup_window_seconds", o.DedupWindow)
	o.MaxSoundPerMinute = cfg.Int("max_sound_per_minute", o.MaxSoundPerMinute)
	o.Pattern = cfg.String("notification_pattern", o.Pattern)
	o.Source = cfg.String("source", o.Source)
	o.DeferredDispatch = cfg.Bool("deferred_dispatch", o.DeferredDispatch)
	o.DedupCacheSize = cfg.Int("dedup_cache_size", o.DedupCacheSize)
	o.HistoryPath = cfg.String("history_path", o.HistoryPath)
	o.HistorySize = cfg.Int("history_size", o.HistorySize)
	return o
}

// routerConfig bundles options with the non-serializable collaborators.
type routerConfig struct {
	opts    Options
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	history HistoryStore
	now     func() time.Time
}

// Option configures a Router.
type Option func(*routerConfig)

// WithOptions replaces the whole option set.
func WithOptions(opts Options) Option {
	return func(cfg *routerConfig) {
		cfg.opts = opts
	}
}

// WithPattern overrides the completion-event subscription pattern.
func WithPattern(pattern string) Option {
	return func(cfg *routerConfig) {
		if pattern != "" {
			cfg.opts.Pattern = pattern
		}
	}
}

// WithSource overrides the source stamped on emitted output events.
func WithSource(source string) Option {
	return func(cfg *routerConfig) {
		if source != "" {
			cfg.opts.Source = source
		}
	}
}

// WithSoundEnabled gates sound emissions.
func WithSoundEnabled(enabled bool) Option {
	return func(cfg *routerConfig) {
		cfg.opts.SoundEnabled = enabled
	}
}

// WithMaxQueueDepth bounds the pending output queue.
func WithMaxQueueDepth(n int) Option {
	return func(cfg *routerConfig) {
		if n > 0 {
			cfg.opts.MaxQueueDepth = n
		}
	}
}

// WithDedupWindow sets the deduplication window.
func WithDedupWindow(d time.Duration) Option {
	return func(cfg *routerConfig) {
		if d > 0 {
			cfg.opts.DedupWindow = d
		}
	}
}

// WithMaxSoundPerMinute caps sound emissions per rolling minute.
func WithMaxSoundPerMinute(n int) Option {
	return func(cfg *routerConfig) {
		if n >= 0 {
			cfg.opts.MaxSoundPerMinute = n
		}
	}
}

// WithDeferredDispatch queues outputs until Flush or overflow.
func WithDeferredDispatch(deferred bool) Option {
	return func(cfg *routerConfig) {
		cfg.opts.DeferredDispatch = deferred
	}
}

// WithHistory injects a history journal. The caller keeps ownership and
// is responsible for closing it.
func WithHistory(store HistoryStore) Option {
	return func(cfg *routerConfig) {
		cfg.history = store
	}
}

// WithLogger sets the router's logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *routerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(cfg *routerConfig) {
		if m != nil {
			cfg.metrics = m
		}
	}
}

// WithSpans sets the span manager. Default: no-op.
func WithSpans(s observability.SpanManager) Option {
	return func(cfg *routerConfig) {
		if s != nil {
			cfg.spans = s
		}
	}
}

// WithClock overrides the time source. Intended for tests of the dedup
// window and the sound cap.
func WithClock(now func() time.Time) Option {
	return func(cfg *routerConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}
