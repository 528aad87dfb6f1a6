package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "SIGNING_KEY", "SESSION_TTL", "REVOCATION_BACKEND", "ALLOWED_ORIGINS", "METRICS_ENABLED"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, DefaultSigningKey, cfg.SigningKey)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, "memory", cfg.RevocationBackend)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.True(t, cfg.MetricsEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("REVOCATION_BACKEND", "Redis")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("REVOCATION_SWEEP_INTERVAL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "redis", cfg.RevocationBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, time.Minute, cfg.RevocationSweepInterval)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PORT", "4000")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
signing_key: from-file
session_ttl: 30m
revocation_backend: POSTGRES
database_url: postgres://db/eco
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port, "keys absent from the file keep env values")
	assert.Equal(t, "from-file", cfg.SigningKey)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "postgres", cfg.RevocationBackend)
	assert.NoError(t, cfg.Validate())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := Config{SigningKey: "k", SessionTTL: time.Hour, RevocationBackend: "memory"}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyKey", func(c *Config) { c.SigningKey = "" }},
		{"ZeroTTL", func(c *Config) { c.SessionTTL = 0 }},
		{"SubSecondTTL", func(c *Config) { c.SessionTTL = 500 * time.Millisecond }},
		{"UnknownBackend", func(c *Config) { c.RevocationBackend = "etcd" }},
		{"PostgresWithoutDatabase", func(c *Config) { c.RevocationBackend = "postgres"; c.DatabaseURL = "memory" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := base
	cfg.SigningKey = ""
	assert.ErrorIs(t, cfg.Validate(), ErrSigning)
}

func TestOpenBackendsMemory(t *testing.T) {
	b, err := OpenBackends(context.Background(), Config{DatabaseURL: "memory", RevocationBackend: "memory"})
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &MemoryAccountRepository{}, b.Accounts)
	assert.IsType(t, &MemoryRevocationStore{}, b.Revocation)
	assert.Nil(t, b.SQL)

	_, err = OpenBackends(context.Background(), Config{DatabaseURL: "memory", RevocationBackend: "postgres"})
	assert.Error(t, err)
}
