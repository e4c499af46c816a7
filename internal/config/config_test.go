package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 50.0, cfg.PercentageCap)
	assert.Equal(t, 4*time.Hour, cfg.WorkspaceTTL)
	assert.Empty(t, cfg.Export.S3Bucket, "uploads disabled by default")
	assert.Equal(t, filepath.Join(cfg.DataDir, "audit.db"), cfg.AuditDBPath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "cache.db"), cfg.CacheDBPath())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FORECASTDESK_PORT", "9001")
	t.Setenv("FORECASTDESK_LOG_LEVEL", "debug")
	t.Setenv("FORECASTDESK_DEV_MODE", "true")
	t.Setenv("FORECASTDESK_PERCENTAGE_CAP", "25")
	t.Setenv("FORECASTDESK_WORKSPACE_TTL_MINUTES", "30")
	t.Setenv("FORECASTDESK_EXPORT_S3_BUCKET", "forecast-audit-archive")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 25.0, cfg.PercentageCap)
	assert.Equal(t, 30*time.Minute, cfg.WorkspaceTTL)
	assert.Equal(t, "forecast-audit-archive", cfg.Export.S3Bucket)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("non-numeric port", func(t *testing.T) {
		t.Setenv("FORECASTDESK_PORT", "not-a-port")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("cap out of range", func(t *testing.T) {
		t.Setenv("FORECASTDESK_PERCENTAGE_CAP", "150")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("negative ttl", func(t *testing.T) {
		t.Setenv("FORECASTDESK_WORKSPACE_TTL_MINUTES", "-5")
		_, err := Load()
		require.Error(t, err)
	})
}
