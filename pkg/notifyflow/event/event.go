package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Priority orders both event importance and subscription delivery.
type Priority int

const (
	PriorityLowest Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityHighest
	PriorityCritical
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLowest:
		return "lowest"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Event is the core interface for all events in the system.
// Events are immutable once created - any modification creates a new event.
type Event interface {
	// Identity
	ID() string     // Unique event identifier
	Type() string   // Hierarchical event type (e.g. "notification:ocr_update")
	Source() string // Emitting component (e.g. "vision", "router")

	// Correlation for tracing
	CorrelationID() string // Groups all events of one logical request
	CausationID() string   // ID of the event that directly caused this one

	// Metadata
	Timestamp() time.Time // When the event occurred
	Priority() Priority   // Event importance
	Version() int         // Schema version for evolution
	Attrs() map[string]any

	// Payload
	Data() any         // Strongly-typed payload
	DataBytes() []byte // Serialized payload for logging/journaling
}

// Metadata contains common event metadata fields.
type Metadata struct {
	EventID       string         `json:"id"`
	EventType     string         `json:"type"`
	EventSource   string         `json:"source"`
	CorrelationID string         `json:"correlation_id"`
	CausationID   string         `json:"causation_id,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	EventPriority Priority       `json:"priority"`
	SchemaVersion int            `json:"schema_version"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

// BaseEvent provides a generic event implementation.
// T is the payload type for type-safe access.
type BaseEvent[T any] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`

	// Cached serialization (computed lazily)
	cachedBytes []byte
}

// ID returns the unique event identifier.
func (e *BaseEvent[T]) ID() string {
	return e.Meta.EventID
}

// Type returns the event type.
func (e *BaseEvent[T]) Type() string {
	return e.Meta.EventType
}

// Source returns the event source.
func (e *BaseEvent[T]) Source() string {
	return e.Meta.EventSource
}

// CorrelationID returns the correlation ID shared by all events of one
// logical request.
func (e *BaseEvent[T]) CorrelationID() string {
	return e.Meta.CorrelationID
}

// CausationID returns the ID of the event that caused this one.
func (e *BaseEvent[T]) CausationID() string {
	return e.Meta.CausationID
}

// Timestamp returns when the event occurred.
func (e *BaseEvent[T]) Timestamp() time.Time {
	return e.Meta.Timestamp
}

// Priority returns the event priority.
func (e *BaseEvent[T]) Priority() Priority {
	return e.Meta.EventPriority
}

// Version returns the schema version.
func (e *BaseEvent[T]) Version() int {
	return e.Meta.SchemaVersion
}

// Attrs returns auxiliary annotations attached at creation time.
// Callers must treat the returned map as read-only.
func (e *BaseEvent[T]) Attrs() map[string]any {
	return e.Meta.Attributes
}

// Data returns the event payload.
func (e *BaseEvent[T]) Data() any {
	return e.Payload
}

// TypedData returns the strongly-typed payload.
func (e *BaseEvent[T]) TypedData() T {
	return e.Payload
}

// DataBytes returns the serialized payload.
// The result is cached for efficiency.
func (e *BaseEvent[T]) DataBytes() []byte {
	if e.cachedBytes == nil {
		// Best effort - errors are ignored for interface compliance
		e.cachedBytes, _ = json.Marshal(e.Payload)
	}
	return e.cachedBytes
}

// MarshalJSON implements json.Marshaler.
func (e *BaseEvent[T]) MarshalJSON() ([]byte, error) {
	type alias BaseEvent[T]
	return json.Marshal((*alias)(e))
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *BaseEvent[T]) UnmarshalJSON(data []byte) error {
	type alias BaseEvent[T]
	if err := json.Unmarshal(data, (*alias)(e)); err != nil {
		return err
	}
	e.cachedBytes = nil // Clear cache on unmarshal
	return nil
}

// EventOption configures event creation.
type EventOption func(*eventConfig)

type eventConfig struct {
	id            string
	correlationID string
	causationID   string
	timestamp     time.Time
	priority      Priority
	version       int
	attrs         map[string]any
}

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) EventOption {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func WithCorrelationID(id string) EventOption {
	return func(cfg *eventConfig) {
		cfg.correlationID = id
	}
}

// WithCausationID sets the ID of the causing event.
func WithCausationID(id string) EventOption {
	return func(cfg *eventConfig) {
		cfg.causationID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) EventOption {
	return func(cfg *eventConfig) {
		cfg.timestamp = t
	}
}

// WithPriority sets the event priority (default: PriorityNormal).
func WithPriority(p Priority) EventOption {
	return func(cfg *eventConfig) {
		cfg.priority = p
	}
}

// WithSchemaVersion sets the schema version.
func WithSchemaVersion(v int) EventOption {
	return func(cfg *eventConfig) {
		cfg.version = v
	}
}

// WithAttr attaches an auxiliary annotation (e.g. load level at emission).
func WithAttr(key string, value any) EventOption {
	return func(cfg *eventConfig) {
		if cfg.attrs == nil {
			cfg.attrs = make(map[string]any)
		}
		cfg.attrs[key] = value
	}
}

// New creates a new event with the given type, source, and payload.
// When no correlation ID is supplied the event is a root: its own ID
// becomes the correlation ID for all descendants.
func New[T any](
	eventType string,
	source string,
	payload T,
	opts ...EventOption,
) *BaseEvent[T] {
	cfg := &eventConfig{
		id:        uuid.New().String(),
		timestamp: time.Now(),
		priority:  PriorityNormal,
		version:   1,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	// If no correlation ID, use event ID as the root
	if cfg.correlationID == "" {
		cfg.correlationID = cfg.id
	}

	return &BaseEvent[T]{
		Meta: Metadata{
			EventID:       cfg.id,
			EventType:     eventType,
			EventSource:   source,
			CorrelationID: cfg.correlationID,
			CausationID:   cfg.causationID,
			Timestamp:     cfg.timestamp,
			EventPriority: cfg.priority,
			SchemaVersion: cfg.version,
			Attributes:    cfg.attrs,
		},
		Payload: payload,
	}
}

// NewFromParent creates a new event caused by a parent event.
// It inherits the parent's correlation ID and sets the causation ID to
// the parent's event ID.
func NewFromParent[T any](
	parent Event,
	eventType string,
	source string,
	payload T,
	opts ...EventOption,
) *BaseEvent[T] {
	// Prepend parent correlation options (can be overridden by opts)
	parentOpts := []EventOption{
		WithCorrelationID(parent.CorrelationID()),
		WithCausationID(parent.ID()),
	}
	allOpts := append(parentOpts, opts...)

	return New(eventType, source, payload, allOpts...)
}

// NewAny creates a new event with an untyped (any) payload.
// This is a convenience function when you don't need type-safe payload access.
func NewAny(
	eventType string,
	source string,
	payload any,
	opts ...EventOption,
) *BaseEvent[any] {
	return New(eventType, source, payload, opts...)
}

// NewAnyFromParent creates a new event with untyped payload from a parent event.
func NewAnyFromParent(
	parent Event,
	eventType string,
	source string,
	payload any,
	opts ...EventOption,
) *BaseEvent[any] {
	return NewFromParent(parent, eventType, source, payload, opts...)
}

// Handler processes events and optionally returns derived events.
type Handler interface {
	// Handle processes an event and returns any derived events.
	// Derived events are re-emitted by the bus.
	Handle(ctx context.Context, evt Event) ([]Event, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) ([]Event, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) ([]Event, error) {
	return f(ctx, evt)
}

// TypedHandler wraps a function handling a specific payload type.
// Events whose payload is a map (e.g. decoded JSON) are converted through
// a marshal round-trip.
func TypedHandler[T any](
	fn func(ctx context.Context, payload T, meta Metadata) ([]Event, error),
) Handler {
	return &typedHandler[T]{fn: fn}
}

type typedHandler[T any] struct {
	fn func(ctx context.Context, payload T, meta Metadata) ([]Event, error)
}

func (h *typedHandler[T]) Handle(ctx context.Context, evt Event) ([]Event, error) {
	var payload T

	switch d := evt.Data().(type) {
	case T:
		payload = d
	case map[string]any:
		// JSON unmarshal path
		bytes, err := json.Marshal(d)
		if err != nil {
			return nil, &EventError{
				Event:   evt,
				Message: "failed to marshal event data",
				Err:     err,
			}
		}
		if err := json.Unmarshal(bytes, &payload); err != nil {
			return nil, &EventError{
				Event:   evt,
				Message: "failed to unmarshal event data to expected type",
				Err:     err,
			}
		}
	default:
		return nil, &EventError{
			Event:   evt,
			Message: "unexpected payload type",
		}
	}

	meta := Metadata{
		EventID:       evt.ID(),
		EventType:     evt.Type(),
		EventSource:   evt.Source(),
		CorrelationID: evt.CorrelationID(),
		CausationID:   evt.CausationID(),
		Timestamp:     evt.Timestamp(),
		EventPriority: evt.Priority(),
		SchemaVersion: evt.Version(),
		Attributes:    evt.Attrs(),
	}

	return h.fn(ctx, payload, meta)
}
