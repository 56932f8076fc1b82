package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaultsAndOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "unittest")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JOB_MAX_RETRIES", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 5, cfg.JobMaxRetries)
	assert.Equal(t, 300, cfg.JobTimeoutSeconds)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokerList())
}

func TestNewConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("GO_ENV", "unittest")
	t.Setenv("STORE_BACKEND", "redis")
	_, err := NewConfig()
	assert.Error(t, err)
}
