package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"FIELDOPS_ADDR", "DATABASE_URL", "KAFKA_BROKERS", "SCOPE_MAX_NODES", "FIELDOPS_TIMEZONE"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "fieldops.history", cfg.Kafka.Topic)
	assert.Equal(t, 10_000, cfg.Scope.MaxNodes)
	assert.Equal(t, 32, cfg.Scope.MaxDepth)
	assert.Equal(t, 10*time.Second, cfg.Scope.ComputeTimeout)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("SCOPE_MAX_NODES", "50")
	t.Setenv("STORAGE_MAX_RETRIES", "7")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("FIELDOPS_TIMEZONE", "Asia/Kolkata")

	cfg := FromEnv()

	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 50, cfg.Scope.MaxNodes)
	assert.Equal(t, uint64(7), cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Kafka.PollInterval)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("SCOPE_MAX_NODES", "lots")
	t.Setenv("FIELDOPS_TIMEZONE", "Mars/Olympus")

	cfg := FromEnv()

	assert.Equal(t, 10_000, cfg.Scope.MaxNodes)
	_, err := cfg.Location()
	assert.Error(t, err)
}
