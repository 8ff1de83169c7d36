package notifyflow

import (
	"fmt"
	"strings"
)

// maxSummaryLen bounds the summary fragment at medium detail.
const maxSummaryLen = 120

// buildMessage constructs the human-readable notification text for one
// completion at the given verbosity tier.
//
// The tiers scale with ambient load:
//   - minimal: terse readiness phrase, nothing else
//   - low: pattern and status only
//   - medium: adds a shortened result summary
//   - high: full summary plus confidence when available
func buildMessage(p CompletionPayload, detail DetailLevel) string {
	if !p.wellFormed() {
		// Malformed payload: there is nothing specific to say.
		return "Notification received."
	}

	switch detail {
	case DetailMinimal:
		return "Ready."

	case DetailLow:
		return fmt.Sprintf("%s %s.", p.Pattern, p.Status)

	case DetailMedium:
		msg := fmt.Sprintf("%s %s.", p.Pattern, p.Status)
		if s := shorten(p.OutputSummary, maxSummaryLen); s != "" {
			msg += " " + s
		}
		return msg

	case DetailHigh:
		msg := fmt.Sprintf("%s %s.", p.Pattern, p.Status)
		if s := strings.TrimSpace(p.OutputSummary); s != "" {
			msg += " " + s
			if !strings.HasSuffix(s, ".") {
				msg += "."
			}
		}
		if p.Confidence != nil {
			msg += fmt.Sprintf(" Confidence %.0f%%.", *p.Confidence*100)
		}
		return msg

	default:
		return fmt.Sprintf("%s %s.", p.Pattern, p.Status)
	}
}

// soundIDFor picks the sound asset for a completion status.
func soundIDFor(status string) string {
	switch status {
	case StatusComplete:
		return "notification_complete"
	case StatusFailed:
		return "notification_failed"
	default:
		return "notification_update"
	}
}

// shorten trims a summary to at most n runes, cutting at a word boundary
// where possible.
func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	cut := string(runes[:n])
	if idx := strings.LastIndex(cut, " "); idx > n/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " .,;") + "…"
}
