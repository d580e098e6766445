package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastetrace/wastetrace/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, 120, cfg.RateLimitRPM)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.SeedDemoData)
	assert.Equal(t, int64(1024*1024), cfg.MaxRequestBodyBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WASTETRACE_PORT", "9090")
	t.Setenv("WASTETRACE_JWT_EXPIRATION", "2h")
	t.Setenv("WASTETRACE_RATE_LIMIT_ENABLED", "false")
	t.Setenv("WASTETRACE_SEED", "1")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/wt")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiration)
	assert.False(t, cfg.RateLimitEnabled)
	assert.True(t, cfg.SeedDemoData)
	assert.Equal(t, "postgres://u:p@db:5432/wt", cfg.DatabaseURL)
}

func TestLoadIgnoresJunkValues(t *testing.T) {
	t.Setenv("WASTETRACE_PORT", "not-a-number")
	t.Setenv("WASTETRACE_READ_TIMEOUT", "soon")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("WASTETRACE_PORT", "70000")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidateRateLimit(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.RateLimitRPM = 0
	cfg.RateLimitEnabled = true
	assert.Error(t, cfg.Validate())

	cfg.RateLimitEnabled = false
	assert.NoError(t, cfg.Validate())
}
