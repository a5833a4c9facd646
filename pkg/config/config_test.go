package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://accounts.spotify.com/api/token", cfg.Auth.TokenURL)
	assert.Equal(t, "clients.json", cfg.Auth.ClientsFile)
	assert.Equal(t, time.Hour, cfg.Pool.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Pool.TokenBuffer)
	assert.Equal(t, 60*time.Second, cfg.Pool.Cooldown)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Retry.MaxRateLimitWait)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotpool.yaml")
	content := `
auth:
  clients_file: /etc/spotpool/clients.json
pool:
  token_ttl: 30m
  cooldown: 2m
retry:
  max_retries: 3
cache:
  backend: memory
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "/etc/spotpool/clients.json", cfg.Auth.ClientsFile)
	assert.Equal(t, 30*time.Minute, cfg.Pool.TokenTTL)
	assert.Equal(t, 2*time.Minute, cfg.Pool.Cooldown)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults
	assert.Equal(t, "https://accounts.spotify.com/api/token", cfg.Auth.TokenURL)
	assert.Equal(t, 5*time.Minute, cfg.Pool.TokenBuffer)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotpool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth: [not a map"), 0644))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SPOTPOOL_TOKEN_URL", "https://auth.example.com/token")
	t.Setenv("SPOTPOOL_CLIENTS_FILE", "/run/secrets/clients.json")
	t.Setenv("SPOTPOOL_CLIENTS_PASSPHRASE", "hunter2")
	t.Setenv("SPOTPOOL_CACHE_BACKEND", "keyring")
	t.Setenv("SPOTPOOL_MAX_RETRIES", "7")
	t.Setenv("SPOTPOOL_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "https://auth.example.com/token", cfg.Auth.TokenURL)
	assert.Equal(t, "/run/secrets/clients.json", cfg.Auth.ClientsFile)
	assert.Equal(t, "hunter2", cfg.Auth.Passphrase)
	assert.Equal(t, "keyring", cfg.Cache.Backend)
	assert.Equal(t, 7, cfg.Retry.MaxRetries)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresInvalidRetries(t *testing.T) {
	t.Setenv("SPOTPOOL_MAX_RETRIES", "banana")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotpool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: memory\n"), 0644))
	t.Setenv("SPOTPOOL_CACHE_BACKEND", "file")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Cache.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty token url", func(c *Config) { c.Auth.TokenURL = "" }},
		{"zero ttl", func(c *Config) { c.Pool.TokenTTL = 0 }},
		{"negative buffer", func(c *Config) { c.Pool.TokenBuffer = -time.Second }},
		{"buffer at ttl", func(c *Config) { c.Pool.TokenBuffer = c.Pool.TokenTTL }},
		{"zero retries", func(c *Config) { c.Retry.MaxRetries = 0 }},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
