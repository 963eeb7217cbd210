package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8086", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.False(t, cfg.AwaitSurface)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaConfig.Brokers)
	assert.Empty(t, cfg.RedisConfig.Addr)
	assert.Equal(t, 10*time.Minute, cfg.RedisConfig.TTL)
	assert.Equal(t, time.Second, cfg.SimulatorConfig.Tick)
	assert.Equal(t, 13.9, cfg.SimulatorConfig.SpeedMps)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("NAVIGATION_SERVICE_PORT", ":9000")
	t.Setenv("NAVIGATION_APP_ENV", "production")
	t.Setenv("NAVIGATION_AWAIT_SURFACE", "true")
	t.Setenv("NAVIGATION_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("NAVIGATION_REDIS_ADDR", "redis:6379")
	t.Setenv("NAVIGATION_REDIS_DB", "2")
	t.Setenv("NAVIGATION_ROUTE_CACHE_TTL", "90s")
	t.Setenv("NAVIGATION_OSRM_URL", "http://osrm:5000/")
	t.Setenv("NAVIGATION_OSRM_TIMEOUT", "3s")
	t.Setenv("NAVIGATION_SIMULATOR_TICK", "250ms")
	t.Setenv("NAVIGATION_SIMULATOR_SPEED_MPS", "5.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.True(t, cfg.AwaitSurface)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, "redis:6379", cfg.RedisConfig.Addr)
	assert.Equal(t, 2, cfg.RedisConfig.DB)
	assert.Equal(t, 90*time.Second, cfg.RedisConfig.TTL)
	assert.Equal(t, "http://osrm:5000", cfg.RoutingConfig.OSRMURL)
	assert.Equal(t, 3*time.Second, cfg.RoutingConfig.OSRMTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.SimulatorConfig.Tick)
	assert.Equal(t, 5.5, cfg.SimulatorConfig.SpeedMps)
}

func TestLoad_RejectsInvalidSimulator(t *testing.T) {
	t.Setenv("NAVIGATION_SIMULATOR_SPEED_MPS", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "SIMULATOR_SPEED_MPS")
}
