package load

import (
	"sync"
	"time"
)

// Signals is one sample of ambient activity.
type Signals struct {
	// ActiveOperations is the number of in-flight domain operations.
	ActiveOperations int

	// QueueDepth is the combined depth of pending work queues.
	QueueDepth int

	// EventsPerSecond is the recent emission velocity.
	EventsPerSecond float64
}

// Thresholds maps signal magnitudes to levels. The estimator reports the
// highest level any single signal reaches.
type Thresholds struct {
	// Operations thresholds, lowest level first: a sample at or above
	// Operations[i] is at least level i+1 (LevelLow and up).
	Operations [4]int

	// Queue thresholds, same shape as Operations.
	Queue [4]int

	// Velocity thresholds in events per second, same shape.
	Velocity [4]float64
}

// DefaultThresholds suits a single-user interactive workload.
var DefaultThresholds = Thresholds{
	Operations: [4]int{1, 3, 6, 10},
	Queue:      [4]int{1, 10, 25, 50},
	Velocity:   [4]float64{0.5, 2, 5, 10},
}

// SignalEstimator derives a load level from a signal source.
type SignalEstimator struct {
	source     func() Signals
	thresholds Thresholds
}

// SignalOption configures a SignalEstimator.
type SignalOption func(*SignalEstimator)

// WithThresholds overrides the default thresholds.
func WithThresholds(t Thresholds) SignalOption {
	return func(e *SignalEstimator) {
		e.thresholds = t
	}
}

// NewSignalEstimator creates an estimator sampling the given source.
// The source is called once per Estimate and must be cheap.
func NewSignalEstimator(source func() Signals, opts ...SignalOption) *SignalEstimator {
	e := &SignalEstimator{
		source:     source,
		thresholds: DefaultThresholds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate implements Estimator.
func (e *SignalEstimator) Estimate() Level {
	if e.source == nil {
		return LevelIdle
	}
	s := e.source()

	level := scaleInt(s.ActiveOperations, e.thresholds.Operations)
	if l := scaleInt(s.QueueDepth, e.thresholds.Queue); l > level {
		level = l
	}
	if l := scaleFloat(s.EventsPerSecond, e.thresholds.Velocity); l > level {
		level = l
	}
	return level
}

func scaleInt(v int, cuts [4]int) Level {
	level := LevelIdle
	for i, cut := range cuts {
		if v >= cut {
			level = Level(i + 1)
		}
	}
	return level
}

func scaleFloat(v float64, cuts [4]float64) Level {
	level := LevelIdle
	for i, cut := range cuts {
		if v >= cut {
			level = Level(i + 1)
		}
	}
	return level
}

// RateTracker measures event velocity over a sliding window.
// Safe for concurrent use.
type RateTracker struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	marks  []time.Time
}

// NewRateTracker creates a tracker with the given window.
// A zero window defaults to one minute.
func NewRateTracker(window time.Duration) *RateTracker {
	if window <= 0 {
		window = time.Minute
	}
	return &RateTracker{
		window: window,
		now:    time.Now,
	}
}

// SetClock overrides the time source for tests.
func (t *RateTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now != nil {
		t.now = now
	}
}

// Record marks one event at the current time.
func (t *RateTracker) Record() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.pruneLocked(now)
	t.marks = append(t.marks, now)
}

// PerSecond returns the event rate over the window.
func (t *RateTracker) PerSecond() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(t.now())
	return float64(len(t.marks)) / t.window.Seconds()
}

// Count returns the number of events within the window.
func (t *RateTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(t.now())
	return len(t.marks)
}

func (t *RateTracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.marks) && !t.marks[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.marks = append(t.marks[:0], t.marks[i:]...)
	}
}
