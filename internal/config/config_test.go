package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ORDER_LOCK_MODE", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, LockModeWait, cfg.Orders.LockMode)
	assert.Equal(t, 3, cfg.Orders.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Orders.PlacementTimeout)
	assert.False(t, cfg.Orders.ProcessorEnabled)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ORDER_LOCK_MODE", "NoWait")
	t.Setenv("ORDER_PLACEMENT_TIMEOUT", "3s")
	t.Setenv("ORDER_PROCESSOR_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, LockModeNoWait, cfg.Orders.LockMode)
	assert.Equal(t, 3*time.Second, cfg.Orders.PlacementTimeout)
	assert.True(t, cfg.Orders.ProcessorEnabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadRejectsUnknownLockMode(t *testing.T) {
	t.Setenv("ORDER_LOCK_MODE", "optimistic")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORDER_LOCK_MODE")
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("ORDER_LOCK_MODE", "")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "many")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
}
