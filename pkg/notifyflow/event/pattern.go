package event

import (
	"fmt"
	"strings"
)

// Separator delimits segments of hierarchical event types.
const Separator = ":"

// Wildcard matches a single segment, or the whole remaining suffix when it
// is the last segment of a pattern.
const Wildcard = "*"

// Pattern is a compiled subscription pattern.
//
// Patterns are colon-delimited. A "*" segment matches exactly one segment
// of the event type. A trailing "*" matches any non-empty suffix, so
// "output:*" matches both "output:sound" and "output:sound:play".
// Otherwise segment counts must match exactly.
type Pattern struct {
	raw      string
	segments []string // without the trailing wildcard, if any
	suffix   bool     // trailing "*" present
}

// CompilePattern validates and compiles a subscription pattern.
// An empty pattern or a pattern with empty segments is a programmer error
// and fails here, at registration time, not during dispatch.
func CompilePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, fmt.Errorf("pattern must not be empty")
	}

	segments := strings.Split(raw, Separator)
	for i, seg := range segments {
		if seg == "" {
			return Pattern{}, fmt.Errorf("pattern %q has an empty segment at position %d", raw, i)
		}
	}

	p := Pattern{raw: raw, segments: segments}
	if segments[len(segments)-1] == Wildcard {
		p.suffix = true
		p.segments = segments[:len(segments)-1]
	}

	return p, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
// Intended for package-level pattern constants.
func MustCompilePattern(raw string) Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original pattern text.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether the pattern matches the given event type.
func (p Pattern) Match(eventType string) bool {
	if eventType == "" {
		return false
	}

	segments := strings.Split(eventType, Separator)

	if p.suffix {
		// Fixed prefix plus at least one segment for the trailing wildcard.
		if len(segments) < len(p.segments)+1 {
			return false
		}
	} else if len(segments) != len(p.segments) {
		return false
	}

	for i, want := range p.segments {
		if want == Wildcard {
			continue
		}
		if segments[i] != want {
			return false
		}
	}

	return true
}
