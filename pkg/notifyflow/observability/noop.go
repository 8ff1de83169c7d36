package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordNotification does nothing.
func (NoopMetrics) RecordNotification(_ context.Context, _, _, _ string, _ time.Duration) {}

// RecordDeduplicated does nothing.
func (NoopMetrics) RecordDeduplicated(_ context.Context, _ string) {}

// RecordSound does nothing.
func (NoopMetrics) RecordSound(_ context.Context) {}

// RecordQueueDrain does nothing.
func (NoopMetrics) RecordQueueDrain(_ context.Context, _ int) {}

// RecordEmitError does nothing.
func (NoopMetrics) RecordEmitError(_ context.Context, _ string) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
// We use the OTel noop package for a proper no-op span implementation.
var noopSpan = noop.Span{}

// StartRouteSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartRouteSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartEmitSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartEmitSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
