package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records notification routing metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNotification records a routed notification with its detail and
	// load levels and processing latency.
	RecordNotification(ctx context.Context, pattern, detail, level string, duration time.Duration)

	// RecordDeduplicated records a suppressed duplicate.
	RecordDeduplicated(ctx context.Context, pattern string)

	// RecordSound records an emitted sound event.
	RecordSound(ctx context.Context)

	// RecordQueueDrain records dispatched entries from a queue drain.
	RecordQueueDrain(ctx context.Context, drained int)

	// RecordEmitError records a failed output emission.
	RecordEmitError(ctx context.Context, eventType string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	notifications  metric.Int64Counter
	deduplicated   metric.Int64Counter
	sounds         metric.Int64Counter
	queueDrained   metric.Int64Counter
	emitErrors     metric.Int64Counter
	routingLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("notifyflow")

	notifications, err := meter.Int64Counter("notifyflow.notifications.sent",
		metric.WithDescription("Number of routed notifications"),
	)
	if err != nil {
		return nil, err
	}

	deduplicated, err := meter.Int64Counter("notifyflow.notifications.deduplicated",
		metric.WithDescription("Number of suppressed duplicate notifications"),
	)
	if err != nil {
		return nil, err
	}

	sounds, err := meter.Int64Counter("notifyflow.sounds.emitted",
		metric.WithDescription("Number of emitted sound events"),
	)
	if err != nil {
		return nil, err
	}

	queueDrained, err := meter.Int64Counter("notifyflow.queue.drained",
		metric.WithDescription("Number of queue entries dispatched by drains"),
	)
	if err != nil {
		return nil, err
	}

	emitErrors, err := meter.Int64Counter("notifyflow.emit.errors",
		metric.WithDescription("Number of failed output emissions"),
	)
	if err != nil {
		return nil, err
	}

	routingLatency, err := meter.Float64Histogram("notifyflow.routing.latency_ms",
		metric.WithDescription("Notification routing latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		notifications:  notifications,
		deduplicated:   deduplicated,
		sounds:         sounds,
		queueDrained:   queueDrained,
		emitErrors:     emitErrors,
		routingLatency: routingLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordNotification records a routed notification.
func (m *otelMetrics) RecordNotification(ctx context.Context, pattern, detail, level string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("pattern", pattern),
		attribute.String("detail_level", detail),
		attribute.String("load_level", level),
	}

	m.notifications.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.routingLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordDeduplicated records a suppressed duplicate.
func (m *otelMetrics) RecordDeduplicated(ctx context.Context, pattern string) {
	m.deduplicated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pattern", pattern),
	))
}

// RecordSound records an emitted sound event.
func (m *otelMetrics) RecordSound(ctx context.Context) {
	m.sounds.Add(ctx, 1)
}

// RecordQueueDrain records dispatched entries from a queue drain.
func (m *otelMetrics) RecordQueueDrain(ctx context.Context, drained int) {
	m.queueDrained.Add(ctx, int64(drained))
}

// RecordEmitError records a failed output emission.
func (m *otelMetrics) RecordEmitError(ctx context.Context, eventType string) {
	m.emitErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}
