package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:18515", cfg.Engine.Address)
	assert.Equal(t, 30*time.Second, cfg.Engine.Timeout)

	assert.Equal(t, "127.0.0.1", cfg.Dashboard.Host)
	assert.Equal(t, 0, cfg.Dashboard.Port)
	assert.True(t, cfg.Dashboard.Enabled)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("ENGINE_ADDR", "http://engine:9000")
	t.Setenv("ENGINE_TIMEOUT", "5s")
	t.Setenv("DASHBOARD_PORT", "5001")
	t.Setenv("DASHBOARD_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://engine:9000", cfg.Engine.Address)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, 5001, cfg.Dashboard.Port)
	assert.False(t, cfg.Dashboard.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	require.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.Engine.Address)
	assert.NotEmpty(t, cfg.Logging.Level)
}
