package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORE_DRIVER", "STORE_PATH", "MIRROR_DIR", "BATCH_SIZE", "POLL_INTERVAL_MS", "DRAIN_TIMEOUT_MS", "QUEUE_CAPACITY", "OVERFLOW_POLICY"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "sqlite3", cfg.StoreDriver)
	assert.Equal(t, "ticks.db", cfg.StorePath)
	assert.Equal(t, "csv_data", cfg.MirrorDir)
	assert.Equal(t, 200, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, time.Second, cfg.DrainTimeout)
	assert.Equal(t, 0, cfg.QueueCapacity)
	assert.Equal(t, OverflowDropNewest, cfg.OverflowPolicy)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BATCH_SIZE", "50")
	t.Setenv("POLL_INTERVAL_MS", "250")
	t.Setenv("QUEUE_CAPACITY", "1000")
	t.Setenv("OVERFLOW_POLICY", "DROP_OLDEST")
	t.Setenv("MIRROR_MIN_FREE_PERCENT", "7.5")

	cfg := Load()
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 1000, cfg.QueueCapacity)
	assert.Equal(t, OverflowDropOldest, cfg.OverflowPolicy)
	assert.InDelta(t, 7.5, cfg.MirrorMinFreePercent, 1e-9)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BATCH_SIZE", "lots")
	t.Setenv("OVERFLOW_POLICY", "block")

	cfg := Load()
	assert.Equal(t, 200, cfg.BatchSize)
	assert.Equal(t, OverflowDropNewest, cfg.OverflowPolicy)
}
