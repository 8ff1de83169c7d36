package notifyflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/notifyflow/pkg/notifyflow/event"
	"github.com/randalmurphal/notifyflow/pkg/notifyflow/load"
)

func TestMetricsLeavesSoundMarksIntact(t *testing.T) {
	current := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	bus := event.NewBus()
	defer bus.Close()

	router, err := New(bus, load.Fixed(load.LevelIdle),
		WithClock(func() time.Time { return current }))
	require.NoError(t, err)
	defer router.Close()

	require.True(t, router.allowSound(load.LevelIdle))
	require.True(t, router.allowSound(load.LevelIdle))
	assert.Equal(t, 2, router.Metrics().SoundsLastMinute)

	// Past the window the snapshot reports zero without pruning
	current = current.Add(61 * time.Second)
	assert.Equal(t, 0, router.Metrics().SoundsLastMinute)

	router.mu.Lock()
	marks := len(router.soundMarks)
	router.mu.Unlock()
	assert.Equal(t, 2, marks, "snapshot must not mutate state")

	// Cleanup is where stale marks go away
	router.Cleanup()
	router.mu.Lock()
	marks = len(router.soundMarks)
	router.mu.Unlock()
	assert.Equal(t, 0, marks)
}
