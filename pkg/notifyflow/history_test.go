package notifyflow_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/notifyflow/pkg/notifyflow"
	"github.com/randalmurphal/notifyflow/pkg/notifyflow/load"
)

func historyEntry(n int, pattern, outcome string) *notifyflow.HistoryEntry {
	return &notifyflow.HistoryEntry{
		EventID:       fmt.Sprintf("evt-%d", n),
		CorrelationID: fmt.Sprintf("corr-%d", n),
		Pattern:       pattern,
		Status:        "complete",
		Outcome:       outcome,
		DetailLevel:   notifyflow.DetailMedium,
		LoadLevel:     load.LevelModerate,
		Message:       fmt.Sprintf("%s complete.", pattern),
		RecordedAt:    time.Date(2026, 3, 14, 9, 0, n, 0, time.UTC),
	}
}

func TestMemoryHistoryRecordAndList(t *testing.T) {
	h := notifyflow.NewMemoryHistory(10)
	defer h.Close()

	ctx := context.Background()
	require.NoError(t, h.Record(ctx, historyEntry(1, "ocr_extract", notifyflow.OutcomeSent)))
	require.NoError(t, h.Record(ctx, historyEntry(2, "asr_transcribe", notifyflow.OutcomeSent)))
	require.NoError(t, h.Record(ctx, historyEntry(3, "ocr_extract", notifyflow.OutcomeDeduplicated)))

	count, err := h.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Newest first
	all, err := h.List(ctx, notifyflow.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "evt-3", all[0].EventID)
	assert.Equal(t, "evt-1", all[2].EventID)

	// Pattern filter
	ocr, err := h.List(ctx, notifyflow.HistoryFilter{Pattern: "ocr_extract"})
	require.NoError(t, err)
	assert.Len(t, ocr, 2)

	// Outcome filter
	deduped, err := h.List(ctx, notifyflow.HistoryFilter{Outcome: notifyflow.OutcomeDeduplicated})
	require.NoError(t, err)
	require.Len(t, deduped, 1)
	assert.Equal(t, "evt-3", deduped[0].EventID)

	// Limit
	limited, err := h.List(ctx, notifyflow.HistoryFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// Combined
	one, err := h.List(ctx, notifyflow.HistoryFilter{
		Pattern: "ocr_extract",
		Outcome: notifyflow.OutcomeSent,
	})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "evt-1", one[0].EventID)
}

func TestMemoryHistoryBounded(t *testing.T) {
	h := notifyflow.NewMemoryHistory(3)
	defer h.Close()

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, h.Record(ctx, historyEntry(i, "ocr_extract", notifyflow.OutcomeSent)))
	}

	count, err := h.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Oldest entries were evicted
	all, err := h.List(ctx, notifyflow.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "evt-5", all[0].EventID)
	assert.Equal(t, "evt-3", all[2].EventID)
}

func TestMemoryHistoryCopiesEntries(t *testing.T) {
	h := notifyflow.NewMemoryHistory(10)
	defer h.Close()

	ctx := context.Background()
	entry := historyEntry(1, "ocr_extract", notifyflow.OutcomeSent)
	require.NoError(t, h.Record(ctx, entry))

	// Mutating the caller's entry must not affect the stored copy
	entry.Pattern = "mutated"

	all, err := h.List(ctx, notifyflow.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ocr_extract", all[0].Pattern)
}

func TestMemoryHistoryClosed(t *testing.T) {
	h := notifyflow.NewMemoryHistory(10)
	require.NoError(t, h.Close())

	ctx := context.Background()
	assert.ErrorIs(t, h.Record(ctx, historyEntry(1, "x", notifyflow.OutcomeSent)), notifyflow.ErrHistoryClosed)

	_, err := h.List(ctx, notifyflow.HistoryFilter{})
	assert.ErrorIs(t, err, notifyflow.ErrHistoryClosed)

	_, err = h.Count(ctx)
	assert.ErrorIs(t, err, notifyflow.ErrHistoryClosed)
}

func TestMemoryHistoryNilEntry(t *testing.T) {
	h := notifyflow.NewMemoryHistory(10)
	defer h.Close()

	assert.Error(t, h.Record(context.Background(), nil))
}
