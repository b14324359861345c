// Package config provides configuration management for the remote media service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCacheTTLSeconds is one week
const DefaultCacheTTLSeconds = 604800

// Environment overrides
const (
	EnvConfigPath = "CONFIG_PATH"
	EnvRemoteURL  = "REMOTE_MEDIA_URL"
	EnvCacheTTL   = "REMOTE_MEDIA_CACHE_TTL"
)

// Config represents the main configuration structure
type Config struct {
	Remote   RemoteConfig   `yaml:"remote"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	Site     SiteConfig     `yaml:"site"`
	Hooks    HooksConfig    `yaml:"hooks"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// RemoteConfig describes the origin remote media is served from
type RemoteConfig struct {
	// URL is the remote origin, e.g. https://cdn.example.com. Empty disables rewriting.
	URL string `yaml:"url"`
	// CacheTTL is the lookup cache lifetime in seconds
	CacheTTL int `yaml:"cache_ttl"`
}

// CacheConfig contains lookup cache store settings
type CacheConfig struct {
	Type  string      `yaml:"type"` // "memory" or "redis"
	Group string      `yaml:"group"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"` //#nosec G117 -- Password field is intentional for Redis auth config
	DB       int    `yaml:"db"`
}

// DatabaseConfig contains the attachment database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SiteConfig identifies the tenant in a multi-site installation
type SiteConfig struct {
	ID        int64 `yaml:"id"`
	Multisite bool  `yaml:"multisite"`
}

// HooksConfig contains the hook API listener settings
type HooksConfig struct {
	Listen string `yaml:"listen"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig contains management server settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			CacheTTL: DefaultCacheTTLSeconds,
		},
		Cache: CacheConfig{
			Type:  "memory",
			Group: "remote_media_cache",
			Redis: RedisConfig{
				Address: "localhost:6379",
				DB:      0,
			},
		},
		Database: DatabaseConfig{
			Path: "./media.db",
		},
		Site: SiteConfig{
			ID: 1,
		},
		Hooks: HooksConfig{
			Listen: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// CacheTTL returns the lookup cache lifetime. Non-positive values fall back
// to one week.
func (c *Config) CacheTTL() time.Duration {
	if c.Remote.CacheTTL <= 0 {
		return DefaultCacheTTLSeconds * time.Second
	}
	return time.Duration(c.Remote.CacheTTL) * time.Second
}

// Load loads the configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Check for config file path in environment or use default
	configPath := os.Getenv(EnvConfigPath)
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Sanitize and validate path to prevent path traversal
	configPath = sanitizeConfigPath(configPath)

	data, err := os.ReadFile(configPath) //#nosec G304 -- config path is sanitized above
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// No config file, use defaults
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file settings with environment variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRemoteURL); ok {
		c.Remote.URL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvCacheTTL); ok {
		ttl, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || ttl <= 0 {
			ttl = DefaultCacheTTLSeconds
		}
		c.Remote.CacheTTL = ttl
	}
}

// Validate checks settings that would prevent startup. An invalid remote
// URL is not an error here: it disables rewriting instead.
func (c *Config) Validate() error {
	switch c.Cache.Type {
	case "memory":
	case "redis":
		if c.Cache.Redis.Address == "" {
			return fmt.Errorf("cache.redis.address is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// sanitizeConfigPath cleans and validates a config file path
func sanitizeConfigPath(path string) string {
	// Clean the path to remove any . or .. components
	cleaned := filepath.Clean(path)

	// If path is absolute, use it as-is (operator explicitly set full path)
	// If relative, ensure it doesn't escape the current directory
	if !filepath.IsAbs(cleaned) {
		// Remove any leading ../ components for relative paths
		for len(cleaned) > 2 && cleaned[:3] == "../" {
			cleaned = cleaned[3:]
		}
		if cleaned == ".." {
			cleaned = "config.yaml"
		}
	}

	return cleaned
}
