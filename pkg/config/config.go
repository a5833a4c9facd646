package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the credential pool
type Config struct {
	// Authorization endpoint and credential source
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Credential pool tuning
	Pool PoolConfig `yaml:"pool" json:"pool"`

	// HTTP timeouts
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Request retry behavior
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Per-handle request pacing
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// Token cache persistence
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AuthConfig holds the token endpoint and credential source file
type AuthConfig struct {
	TokenURL    string `yaml:"token_url" json:"token_url"`
	ClientsFile string `yaml:"clients_file" json:"clients_file"`
	// Passphrase for an encrypted clients file. Empty means the file is
	// plain JSON.
	Passphrase string `yaml:"-" json:"-"`
}

// PoolConfig holds credential rotation tuning
type PoolConfig struct {
	// TokenTTL is how long an issued token is considered live
	TokenTTL time.Duration `yaml:"token_ttl" json:"token_ttl"`
	// TokenBuffer is the safety margin before expiry at which a token is
	// proactively reissued
	TokenBuffer time.Duration `yaml:"token_buffer" json:"token_buffer"`
	// Cooldown is how long a rate-limited credential must sit idle before
	// rotation will revive it
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`
}

// HTTPConfig holds HTTP client timeouts
type HTTPConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	AuthTimeout    time.Duration `yaml:"auth_timeout" json:"auth_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// RetryConfig holds request retry behavior
type RetryConfig struct {
	MaxRetries       int           `yaml:"max_retries" json:"max_retries"`
	RotateDelay      time.Duration `yaml:"rotate_delay" json:"rotate_delay"`
	ServerErrorDelay time.Duration `yaml:"server_error_delay" json:"server_error_delay"`
	// MaxRateLimitWait caps the server-suggested Retry-After delay used when
	// no other credential is available
	MaxRateLimitWait time.Duration `yaml:"max_rate_limit_wait" json:"max_rate_limit_wait"`
}

// PacingConfig holds per-handle request spacing
type PacingConfig struct {
	MinInterval   time.Duration `yaml:"min_interval" json:"min_interval"`
	SlowdownAfter int           `yaml:"slowdown_after" json:"slowdown_after"`
	SlowdownDelay time.Duration `yaml:"slowdown_delay" json:"slowdown_delay"`
}

// CacheConfig holds token cache persistence settings
type CacheConfig struct {
	// Backend selects the persistence layer: file, keyring, or memory
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			TokenURL:    "https://accounts.spotify.com/api/token",
			ClientsFile: "clients.json",
		},
		Pool: PoolConfig{
			TokenTTL:    time.Hour,
			TokenBuffer: 5 * time.Minute,
			Cooldown:    60 * time.Second,
		},
		HTTP: HTTPConfig{
			ConnectTimeout: 5 * time.Second,
			AuthTimeout:    15 * time.Second,
			RequestTimeout: 15 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:       5,
			RotateDelay:      200 * time.Millisecond,
			ServerErrorDelay: 500 * time.Millisecond,
			MaxRateLimitWait: 5 * time.Second,
		},
		Pacing: PacingConfig{
			MinInterval:   100 * time.Millisecond,
			SlowdownAfter: 50,
			SlowdownDelay: 200 * time.Millisecond,
		},
		Cache: CacheConfig{
			Backend: "file",
			Path:    "token_cache.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and environment
// overrides, in that order of precedence.
func Load(path string) (*Config, error) {
	// Pick up a .env file when present, ignore when absent
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies SPOTPOOL_* environment variable overrides
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("SPOTPOOL_TOKEN_URL"); v != "" {
		c.Auth.TokenURL = v
	}
	if v := os.Getenv("SPOTPOOL_CLIENTS_FILE"); v != "" {
		c.Auth.ClientsFile = v
	}
	if v := os.Getenv("SPOTPOOL_CLIENTS_PASSPHRASE"); v != "" {
		c.Auth.Passphrase = v
	}
	if v := os.Getenv("SPOTPOOL_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("SPOTPOOL_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("SPOTPOOL_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.MaxRetries = n
		}
	}
	if v := os.Getenv("SPOTPOOL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SPOTPOOL_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Auth.TokenURL == "" {
		return fmt.Errorf("auth.token_url must not be empty")
	}
	if c.Pool.TokenTTL <= 0 {
		return fmt.Errorf("pool.token_ttl must be positive")
	}
	if c.Pool.TokenBuffer < 0 || c.Pool.TokenBuffer >= c.Pool.TokenTTL {
		return fmt.Errorf("pool.token_buffer must be in [0, token_ttl)")
	}
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("retry.max_retries must be at least 1")
	}
	switch c.Cache.Backend {
	case "file", "keyring", "memory":
	default:
		return fmt.Errorf("cache.backend must be file, keyring, or memory, got %q", c.Cache.Backend)
	}
	return nil
}

// findConfigFile looks for a config file in default locations
func (c *Config) findConfigFile() string {
	candidates := []string{
		"spotpool.yaml",
		"spotpool.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".spotpool.yaml"),
			filepath.Join(home, ".config", "spotpool", "config.yaml"),
		)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
