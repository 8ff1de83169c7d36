package notifyflow

import (
	"encoding/json"

	"github.com/randalmurphal/notifyflow/pkg/notifyflow/event"
	"github.com/randalmurphal/notifyflow/pkg/notifyflow/load"
)

// Event type families the router consumes and emits.
const (
	// DefaultPattern is the completion-event subscription pattern.
	DefaultPattern = "notification:*"

	// TypeDisplay is emitted for every routed notification.
	TypeDisplay = "output:notification:display"

	// TypeSound is emitted when sound is enabled, load is below critical,
	// and the per-minute cap has room.
	TypeSound = "output:sound:play"

	// TypeAnnounce is always emitted for screen-reader consumers.
	TypeAnnounce = "output:accessibility:announce"
)

// Completion statuses producers commonly report. The set is open: any
// status string is routed.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
	StatusUpdate   = "update"
)

// DetailLevel is the verbosity tier of a constructed message.
type DetailLevel int

const (
	DetailMinimal DetailLevel = iota
	DetailLow
	DetailMedium
	DetailHigh
)

// String returns the detail level name.
func (d DetailLevel) String() string {
	switch d {
	case DetailMinimal:
		return "minimal"
	case DetailLow:
		return "low"
	case DetailMedium:
		return "medium"
	case DetailHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d DetailLevel) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DetailFor maps a load level to a verbosity tier. The mapping is total:
// the busier the system, the terser the notification.
func DetailFor(level load.Level) DetailLevel {
	switch level {
	case load.LevelCritical:
		return DetailMinimal
	case load.LevelHigh:
		return DetailLow
	case load.LevelModerate:
		return DetailMedium
	case load.LevelLow, load.LevelIdle:
		return DetailHigh
	default:
		// Unknown levels are treated conservatively.
		return DetailLow
	}
}

// CompletionPayload is the payload of inbound completion events
// ("notification:<pattern>_update" by convention).
//
// Pattern and Status drive deduplication; OutputSummary and Confidence
// enrich higher detail levels. All fields are optional: a payload missing
// Pattern or Status is routed with an event-ID dedup key and a generic
// message.
type CompletionPayload struct {
	Pattern       string   `json:"pattern,omitempty"`
	Status        string   `json:"status,omitempty"`
	OutputSummary string   `json:"output_summary,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
}

// wellFormed reports whether the payload carries both dedup key parts.
func (p CompletionPayload) wellFormed() bool {
	return p.Pattern != "" && p.Status != ""
}

// completionFromEvent extracts a CompletionPayload from an event, however
// the producer shaped it. Malformed payloads yield the zero value, never
// an error.
func completionFromEvent(evt event.Event) CompletionPayload {
	switch d := evt.Data().(type) {
	case CompletionPayload:
		return d
	case *CompletionPayload:
		if d != nil {
			return *d
		}
	case map[string]any:
		var p CompletionPayload
		if raw, err := json.Marshal(d); err == nil {
			_ = json.Unmarshal(raw, &p)
		}
		return p
	}
	return CompletionPayload{}
}

// DisplayPayload is carried by "output:notification:display" events.
type DisplayPayload struct {
	Message     string      `json:"message"`
	Pattern     string      `json:"pattern"`
	DetailLevel DetailLevel `json:"detail_level"`
	LoadLevel   load.Level  `json:"load_level"`
}

// SoundPayload is carried by "output:sound:play" events.
type SoundPayload struct {
	SoundID  string  `json:"sound_id"`
	Volume   float64 `json:"volume"`
	Priority string  `json:"priority"`
}

// AnnouncePriority selects how aggressively an accessibility announcement
// interrupts the user.
type AnnouncePriority string

const (
	// AnnounceAssertive interrupts immediately. Reserved for low-ambient-
	// noise situations (idle/low load).
	AnnounceAssertive AnnouncePriority = "assertive"

	// AnnouncePolite waits for a pause in speech output.
	AnnouncePolite AnnouncePriority = "polite"
)

// AnnouncePriorityFor maps load to announcement urgency: urgent
// interruption is reserved for quiet systems.
func AnnouncePriorityFor(level load.Level) AnnouncePriority {
	if level <= load.LevelLow {
		return AnnounceAssertive
	}
	return AnnouncePolite
}

// AnnouncePayload is carried by "output:accessibility:announce" events.
type AnnouncePayload struct {
	Message  string           `json:"message"`
	Priority AnnouncePriority `json:"priority"`
}
