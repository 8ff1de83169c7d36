package event

import (
	"fmt"
)

// EventError represents an error during event processing.
type EventError struct {
	Event   Event  // The event that failed (may be nil)
	Handler string // Handler that failed (if known)
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *EventError) Error() string {
	id := "<nil>"
	if e.Event != nil {
		id = e.Event.ID()
	}
	if e.Err != nil {
		return fmt.Sprintf("event %s: %s: %v", id, e.Message, e.Err)
	}
	return fmt.Sprintf("event %s: %s", id, e.Message)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}
