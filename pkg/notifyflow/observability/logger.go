// Package observability provides structured logging, metrics, and tracing
// for notifyflow.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds event context to a logger.
// Returns a new logger with correlation_id and event_type fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, evt.CorrelationID(), evt.Type())
//	enriched.Info("routing notification") // includes correlation_id, event_type
func EnrichLogger(logger *slog.Logger, correlationID, eventType string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("correlation_id", correlationID),
		slog.String("event_type", eventType),
	)
}

// LogNotificationSent logs a routed notification.
func LogNotificationSent(logger *slog.Logger, pattern, status, detail, level string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("notification sent",
		slog.String("pattern", pattern),
		slog.String("status", status),
		slog.String("detail_level", detail),
		slog.String("load_level", level),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNotificationDeduplicated logs a suppressed duplicate.
func LogNotificationDeduplicated(logger *slog.Logger, key string, age time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("notification deduplicated",
		slog.String("dedup_key", key),
		slog.Float64("age_seconds", age.Seconds()),
	)
}

// LogQueueDrain logs a pending-queue drain.
func LogQueueDrain(logger *slog.Logger, drained, depth int) {
	if logger == nil {
		return
	}
	logger.Debug("notification queue drained",
		slog.Int("drained", drained),
		slog.Int("queue_depth", depth),
	)
}

// LogSoundSkipped logs a sound emission skipped by policy.
func LogSoundSkipped(logger *slog.Logger, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("sound emission skipped",
		slog.String("reason", reason),
	)
}

// LogEmitError logs a failed output emission (best-effort, never retried).
func LogEmitError(logger *slog.Logger, eventType string, err error) {
	if logger == nil {
		return
	}
	logger.Error("output emission failed",
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogJournalError logs a failed history-journal write (non-fatal).
func LogJournalError(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("history journal write failed",
		slog.String("error", err.Error()),
	)
}

// LogCleanup logs a dedup-cache cleanup sweep.
func LogCleanup(logger *slog.Logger, purged, remaining int) {
	if logger == nil {
		return
	}
	logger.Debug("dedup cache cleaned",
		slog.Int("purged", purged),
		slog.Int("remaining", remaining),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
