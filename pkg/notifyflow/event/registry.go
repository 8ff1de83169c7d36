package event

import (
	"fmt"
	"sync"
)

// Schema defines the expectations for one event-type family.
type Schema struct {
	// Pattern selects the family (e.g. "notification:*").
	Pattern string

	// Version is the schema version number.
	Version int

	// Description explains the family's purpose.
	Description string

	// PayloadType is the expected Go type for the payload.
	// Used for runtime type checking when set.
	PayloadType any

	// Validator is an optional custom validation function.
	Validator func(Event) error

	// Compatible lists backward-compatible versions.
	Compatible []int
}

// IsCompatibleWith returns true if this schema can read events at the given version.
func (s *Schema) IsCompatibleWith(version int) bool {
	if version == s.Version {
		return true
	}
	for _, v := range s.Compatible {
		if v == version {
			return true
		}
	}
	return false
}

// validate checks if an event conforms to this schema.
func (s *Schema) validate(evt Event) error {
	if !s.IsCompatibleWith(evt.Version()) {
		return fmt.Errorf("incompatible version for %s: schema %d, event %d",
			evt.Type(), s.Version, evt.Version())
	}

	if s.PayloadType != nil {
		want := fmt.Sprintf("%T", s.PayloadType)
		got := fmt.Sprintf("%T", evt.Data())
		// map payloads are accepted everywhere: they are the decoded-JSON
		// form of any typed payload
		if _, isMap := evt.Data().(map[string]any); !isMap && got != want {
			return fmt.Errorf("payload type mismatch for %s: expected %s, got %s",
				evt.Type(), want, got)
		}
	}

	if s.Validator != nil {
		if err := s.Validator(evt); err != nil {
			return fmt.Errorf("validation failed for %s: %w", evt.Type(), err)
		}
	}

	return nil
}

// Registry manages event-family schemas keyed by pattern.
//
// Schemas are advisory: an event with no matching schema is valid by
// default (open world), and the bus logs rather than rejects validation
// failures.
type Registry struct {
	mu      sync.RWMutex
	schemas []registeredSchema
}

type registeredSchema struct {
	schema  Schema
	pattern Pattern
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a schema for an event-type family.
// The pattern must compile; duplicate patterns are rejected.
func (r *Registry) Register(s Schema) error {
	compiled, err := CompilePattern(s.Pattern)
	if err != nil {
		return fmt.Errorf("register schema: %w", err)
	}
	if s.Version <= 0 {
		s.Version = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.schemas {
		if reg.schema.Pattern == s.Pattern {
			return fmt.Errorf("register schema: pattern %q already registered", s.Pattern)
		}
	}

	r.schemas = append(r.schemas, registeredSchema{schema: s, pattern: compiled})
	return nil
}

// Lookup returns the first schema whose pattern matches the event type.
func (r *Registry) Lookup(eventType string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.schemas {
		if r.schemas[i].pattern.Match(eventType) {
			s := r.schemas[i].schema
			return &s, true
		}
	}
	return nil, false
}

// Validate checks an event against its family schema, if one is registered.
func (r *Registry) Validate(evt Event) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.schemas {
		if r.schemas[i].pattern.Match(evt.Type()) {
			return r.schemas[i].schema.validate(evt)
		}
	}
	return nil
}

// Patterns returns the registered family patterns, in registration order.
func (r *Registry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patterns := make([]string, 0, len(r.schemas))
	for _, reg := range r.schemas {
		patterns = append(patterns, reg.schema.Pattern)
	}
	return patterns
}
