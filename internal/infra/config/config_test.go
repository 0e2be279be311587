package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewdesk/internal/domain"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, "/qbwc", cfg.Server.SoapPath)
	assert.Equal(t, "Crewdesk Sync", cfg.Connector.AppName)
	assert.Equal(t, "30m", cfg.Connector.SessionTTL)
	assert.True(t, cfg.Connector.DirectorySync)
	assert.False(t, cfg.Tracer.Enabled)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Addr, cfg.Server.Addr)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crewdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
connector:
  app_name: "Test Sync"
  session_ttl: "5m"
  directory_sync: false
auth:
  username: svc
  password: p@ss
store:
  path: /tmp/test.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "Test Sync", cfg.Connector.AppName)
	assert.Equal(t, "5m", cfg.Connector.SessionTTL)
	assert.Equal(t, "svc", cfg.Auth.Username)
	assert.False(t, cfg.Connector.DirectorySync)
	// untouched sections keep their defaults
	assert.Equal(t, "/qbwc", cfg.Server.SoapPath)
	assert.Equal(t, "720h", cfg.Store.LogRetention)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigLoad)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CREWDESK_SERVER_ADDR", ":7070")
	t.Setenv("CREWDESK_AUTH_USERNAME", "envuser")
	t.Setenv("CREWDESK_SESSION_TTL", "45m")
	t.Setenv("CREWDESK_TRACER_ENABLED", "true")
	t.Setenv("CREWDESK_DIRECTORY_SYNC", "false")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "envuser", cfg.Auth.Username)
	assert.Equal(t, "45m", cfg.Connector.SessionTTL)
	assert.True(t, cfg.Tracer.Enabled)
	assert.Equal(t, "stdout", cfg.Tracer.Exporter)
	assert.False(t, cfg.Connector.DirectorySync)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"soap path without slash", func(c *Config) { c.Server.SoapPath = "qbwc" }},
		{"bad session ttl", func(c *Config) { c.Connector.SessionTTL = "soon" }},
		{"bad read timeout", func(c *Config) { c.Server.ReadTimeout = "fast" }},
		{"bad min client version", func(c *Config) { c.Connector.MinClientVersion = "two" }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitPerMin = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 30*time.Minute, Duration("30m"))
	assert.Equal(t, time.Duration(0), Duration("garbage"))
}
