package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("PLATFORM_BASE_URL", "https://platform.example.com/")
	t.Setenv("DATABASE_URL", "postgres://localhost/parcels")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://platform.example.com", cfg.PlatformBaseURL) // trailing slash trimmed
	assert.Equal(t, "@every 10m", cfg.PollSpec)
	assert.Equal(t, 30*time.Second, cfg.PlatformTimeout)
	assert.Equal(t, 4, cfg.MonitorWorkers)
	assert.Equal(t, 3, cfg.NotifyAttempts)
	assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("PLATFORM_BASE_URL", "https://platform.example.com")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_MemoryBackendNeedsNoDatabaseURL(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("PLATFORM_BASE_URL", "https://platform.example.com")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreBackendMemory, cfg.StoreBackend)
}

func TestLoad_InvalidWorkers(t *testing.T) {
	setRequired(t)
	t.Setenv("MONITOR_WORKERS", "zero")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_CustomTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("PLATFORM_TIMEOUT", "5s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.PlatformTimeout)
}
