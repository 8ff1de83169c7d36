package notifyflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/notifyflow/pkg/notifyflow/event"
	"github.com/randalmurphal/notifyflow/pkg/notifyflow/load"
)

func floatPtr(f float64) *float64 { return &f }

func TestBuildMessage(t *testing.T) {
	payload := CompletionPayload{
		Pattern:       "ocr_extract",
		Status:        "complete",
		OutputSummary: "Extracted 3 text regions",
		Confidence:    floatPtr(0.92),
	}

	tests := []struct {
		name   string
		detail DetailLevel
		want   string
	}{
		{name: "minimal", detail: DetailMinimal, want: "Ready."},
		{name: "low", detail: DetailLow, want: "ocr_extract complete."},
		{name: "medium", detail: DetailMedium, want: "ocr_extract complete. Extracted 3 text regions"},
		{name: "high", detail: DetailHigh, want: "ocr_extract complete. Extracted 3 text regions. Confidence 92%."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildMessage(payload, tt.detail))
		})
	}
}

func TestBuildMessageWithoutOptionalFields(t *testing.T) {
	payload := CompletionPayload{Pattern: "asr_transcribe", Status: "failed"}

	assert.Equal(t, "asr_transcribe failed.", buildMessage(payload, DetailMedium))
	assert.Equal(t, "asr_transcribe failed.", buildMessage(payload, DetailHigh))
}

func TestBuildMessageMalformed(t *testing.T) {
	// Missing pattern or status: generic text at every tier
	for _, detail := range []DetailLevel{DetailMinimal, DetailLow, DetailMedium, DetailHigh} {
		assert.Equal(t, "Notification received.", buildMessage(CompletionPayload{}, detail))
		assert.Equal(t, "Notification received.", buildMessage(CompletionPayload{Pattern: "x"}, detail))
		assert.Equal(t, "Notification received.", buildMessage(CompletionPayload{Status: "complete"}, detail))
	}
}

func TestBuildMessageMediumTruncatesSummary(t *testing.T) {
	long := strings.Repeat("word ", 60) // well past the summary bound
	payload := CompletionPayload{
		Pattern:       "ocr_extract",
		Status:        "complete",
		OutputSummary: long,
	}

	msg := buildMessage(payload, DetailMedium)
	assert.True(t, strings.HasSuffix(msg, "…"), "expected truncated summary: %q", msg)
	assert.Less(t, len([]rune(msg)), len([]rune(long)))

	// High detail keeps the summary intact
	high := buildMessage(payload, DetailHigh)
	assert.Contains(t, high, strings.TrimSpace(long))
}

func TestShorten(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "empty", in: "", n: 10, want: ""},
		{name: "whitespace only", in: "   ", n: 10, want: ""},
		{name: "short enough", in: "all done", n: 10, want: "all done"},
		{name: "cut at word boundary", in: "alpha beta gamma delta", n: 16, want: "alpha beta…"},
		{name: "unbreakable run", in: "abcdefghijklmnop", n: 8, want: "abcdefgh…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shorten(tt.in, tt.n))
		})
	}
}

func TestDetailFor(t *testing.T) {
	tests := []struct {
		level load.Level
		want  DetailLevel
	}{
		{load.LevelIdle, DetailHigh},
		{load.LevelLow, DetailHigh},
		{load.LevelModerate, DetailMedium},
		{load.LevelHigh, DetailLow},
		{load.LevelCritical, DetailMinimal},
		{load.Level(42), DetailLow}, // unknown: conservative
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetailFor(tt.level), "load level %s", tt.level)
	}
}

func TestAnnouncePriorityFor(t *testing.T) {
	assert.Equal(t, AnnounceAssertive, AnnouncePriorityFor(load.LevelIdle))
	assert.Equal(t, AnnounceAssertive, AnnouncePriorityFor(load.LevelLow))
	assert.Equal(t, AnnouncePolite, AnnouncePriorityFor(load.LevelModerate))
	assert.Equal(t, AnnouncePolite, AnnouncePriorityFor(load.LevelHigh))
	assert.Equal(t, AnnouncePolite, AnnouncePriorityFor(load.LevelCritical))
}

func TestSoundIDFor(t *testing.T) {
	assert.Equal(t, "notification_complete", soundIDFor(StatusComplete))
	assert.Equal(t, "notification_failed", soundIDFor(StatusFailed))
	assert.Equal(t, "notification_update", soundIDFor(StatusUpdate))
	assert.Equal(t, "notification_update", soundIDFor("anything_else"))
}

func TestCompletionFromEvent(t *testing.T) {
	want := CompletionPayload{Pattern: "ocr_extract", Status: "complete"}

	t.Run("typed payload", func(t *testing.T) {
		evt := event.New("notification:ocr_update", "test", want)
		assert.Equal(t, want, completionFromEvent(evt))
	})

	t.Run("pointer payload", func(t *testing.T) {
		evt := event.New("notification:ocr_update", "test", &want)
		assert.Equal(t, want, completionFromEvent(evt))

		nilEvt := event.New("notification:ocr_update", "test", (*CompletionPayload)(nil))
		assert.Equal(t, CompletionPayload{}, completionFromEvent(nilEvt))
	})

	t.Run("map payload", func(t *testing.T) {
		evt := event.NewAny("notification:ocr_update", "test", map[string]any{
			"pattern": "ocr_extract",
			"status":  "complete",
		})
		assert.Equal(t, want, completionFromEvent(evt))
	})

	t.Run("malformed payload", func(t *testing.T) {
		evt := event.NewAny("notification:ocr_update", "test", 42)
		assert.Equal(t, CompletionPayload{}, completionFromEvent(evt))

		nilEvt := event.NewAny("notification:ocr_update", "test", nil)
		assert.Equal(t, CompletionPayload{}, completionFromEvent(nilEvt))
	})
}

func TestDedupKey(t *testing.T) {
	wellFormed := event.New("notification:ocr_update", "test",
		CompletionPayload{Pattern: "ocr_extract", Status: "complete"})
	assert.Equal(t, "ocr_extract|complete", dedupKey(wellFormed, completionFromEvent(wellFormed)))

	// Malformed payloads fall back to the event ID
	malformed := event.NewAny("notification:ocr_update", "test", nil)
	assert.Equal(t, malformed.ID(), dedupKey(malformed, completionFromEvent(malformed)))
}

func TestSoundVolumeFor(t *testing.T) {
	assert.Equal(t, 0.7, soundVolumeFor(load.LevelIdle))
	assert.Equal(t, 0.7, soundVolumeFor(load.LevelModerate))
	assert.Equal(t, 0.4, soundVolumeFor(load.LevelHigh))
	assert.Equal(t, 0.4, soundVolumeFor(load.LevelCritical))
}
