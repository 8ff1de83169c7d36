package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the notifyflow tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("notifyflow")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRouteSpan starts a span for routing one inbound notification.
	StartRouteSpan(ctx context.Context, eventType, correlationID string) (context.Context, trace.Span)

	// StartEmitSpan starts a span for one output emission.
	// The emit span should be a child of the route span.
	StartEmitSpan(ctx context.Context, eventType string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartRouteSpan starts a span for routing one inbound notification.
func (m *otelSpanManager) StartRouteSpan(ctx context.Context, eventType, correlationID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "notifyflow.route",
		trace.WithAttributes(
			attribute.String("event.type", eventType),
			attribute.String("event.correlation_id", correlationID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartEmitSpan starts a span for one output emission.
func (m *otelSpanManager) StartEmitSpan(ctx context.Context, eventType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "notifyflow.emit."+eventType,
		trace.WithAttributes(
			attribute.String("event.type", eventType),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
