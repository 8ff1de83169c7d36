package notifyflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/notifyflow/pkg/notifyflow"
	"github.com/randalmurphal/notifyflow/pkg/notifyflow/config"
)

func TestDefaultOptions(t *testing.T) {
	o := notifyflow.DefaultOptions()

	assert.Equal(t, "notification:*", o.Pattern)
	assert.Equal(t, "router", o.Source)
	assert.True(t, o.SoundEnabled)
	assert.Equal(t, 100, o.MaxQueueDepth)
	assert.Equal(t, 300*time.Second, o.DedupWindow)
	assert.Equal(t, 5, o.MaxSoundPerMinute)
	assert.False(t, o.DeferredDispatch)
	assert.True(t, o.PersistentContext)
	assert.Equal(t, notifyflow.DefaultHistorySize, o.HistorySize)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.New(map[string]any{
		"enable_persistent_context": false,
		"sound_enabled":             false,
		"max_queue_depth":           50,
		"dedup_window_seconds":      120,
		"max_sound_per_minute":      2,
		"notification_pattern":      "job:*",
		"source":                    "pipeline",
		"deferred_dispatch":         true,
		"dedup_cache_size":          64,
		"history_path":              "/tmp/history.db",
		"history_size":              500,
	})

	o := notifyflow.OptionsFromConfig(cfg)

	assert.False(t, o.PersistentContext)
	assert.False(t, o.SoundEnabled)
	assert.Equal(t, 50, o.MaxQueueDepth)
	assert.Equal(t, 120*time.Second, o.DedupWindow)
	assert.Equal(t, 2, o.MaxSoundPerMinute)
	assert.Equal(t, "job:*", o.Pattern)
	assert.Equal(t, "pipeline", o.Source)
	assert.True(t, o.DeferredDispatch)
	assert.Equal(t, 64, o.DedupCacheSize)
	assert.Equal(t, "/tmp/history.db", o.HistoryPath)
	assert.Equal(t, 500, o.HistorySize)
}

func TestOptionsFromConfigDefaults(t *testing.T) {
	o := notifyflow.OptionsFromConfig(config.New(nil))
	assert.Equal(t, notifyflow.DefaultOptions(), o)
}

func TestOptionsFromConfigRouterSection(t *testing.T) {
	data := []byte(`
router:
  max_queue_depth: 25
  dedup_window_seconds: 60
  sound_enabled: false
`)
	cfg, err := config.FromYAML(data)
	require.NoError(t, err)

	o := notifyflow.OptionsFromConfig(cfg)
	assert.Equal(t, 25, o.MaxQueueDepth)
	assert.Equal(t, time.Minute, o.DedupWindow)
	assert.False(t, o.SoundEnabled)

	// Untouched keys keep their defaults
	assert.Equal(t, "notification:*", o.Pattern)
	assert.True(t, o.PersistentContext)
}

func TestOptionsFromConfigDurationString(t *testing.T) {
	cfg := config.New(map[string]any{
		"dedup_window_seconds": "2m30s",
	})
	o := notifyflow.OptionsFromConfig(cfg)
	assert.Equal(t, 150*time.Second, o.DedupWindow)
}
