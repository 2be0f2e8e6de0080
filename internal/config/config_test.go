package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "SITE_URL", "LIST_REFRESH_INTERVAL", "CORS_ORIGINS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "http://localhost:8080", cfg.SiteURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.InMemory())
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "memory")
	t.Setenv("SITE_URL", "https://launchpad.example/")
	t.Setenv("LIST_REFRESH_INTERVAL", "1m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.InMemory())
	assert.Equal(t, "https://launchpad.example", cfg.SiteURL)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PORT", "")
	t.Setenv("LIST_REFRESH_INTERVAL", "soon")
	_, err = Load()
	assert.Error(t, err)
}
