// Package load estimates ambient system load for notification throttling.
//
// The router queries an Estimator on every notification, so estimators
// must be cheap (sub-millisecond) and must never panic through to the
// caller: wrap any estimator with Safe to get the conservative High
// fallback on failure.
package load

import (
	"log/slog"
)

// Level is a discrete estimate of ambient processing burden.
type Level int

const (
	LevelIdle Level = iota
	LevelLow
	LevelModerate
	LevelHigh
	LevelCritical
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelIdle:
		return "idle"
	case LevelLow:
		return "low"
	case LevelModerate:
		return "moderate"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Estimator maps ambient signals to a load level.
//
// Contract: Estimate must be callable on every notification without
// meaningful latency and should not panic. Callers that cannot trust an
// implementation should wrap it with Safe.
type Estimator interface {
	Estimate() Level
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func() Level

// Estimate implements Estimator.
func (f EstimatorFunc) Estimate() Level {
	return f()
}

// Fixed returns an estimator that always reports the given level.
// Useful for tests and for forcing a verbosity tier.
func Fixed(level Level) Estimator {
	return EstimatorFunc(func() Level {
		return level
	})
}

// Safe wraps an estimator so that a panic inside Estimate is recovered
// and reported as LevelHigh. High biases toward reduced notification
// verbosity instead of risking a flood on an already-stressed consumer.
// Each recovered failure is logged once.
func Safe(inner Estimator, logger *slog.Logger) Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &safeEstimator{inner: inner, logger: logger}
}

type safeEstimator struct {
	inner  Estimator
	logger *slog.Logger
}

func (s *safeEstimator) Estimate() (level Level) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("load estimator failed, assuming high load",
				slog.Any("panic", r),
			)
			level = LevelHigh
		}
	}()

	if s.inner == nil {
		return LevelHigh
	}
	return s.inner.Estimate()
}
