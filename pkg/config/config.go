package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/intellicloud/icweb/pkg/cache"
	"github.com/intellicloud/icweb/pkg/models"
)

// Backend types.
const (
	BackendSQLite = "sqlite"
	BackendREST   = "rest"
)

// Config holds all icweb configuration.
type Config struct {
	Listen          string             `yaml:"listen"`
	DBPath          string             `yaml:"db_path"`
	DefaultLanguage string             `yaml:"default_language"`
	Backend         BackendConfig      `yaml:"backend"`
	Cache           CacheConfig        `yaml:"cache"`
	Admin           AdminConfig        `yaml:"admin"`
	Log             LogConfig          `yaml:"log"`
	Audit           models.AuditConfig `yaml:"audit"`
}

// BackendConfig selects where content is read from.
// Type is "sqlite" (default, uses DBPath) or "rest".
type BackendConfig struct {
	Type    string        `yaml:"type"`
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig controls the content cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// AdminConfig controls the administrative API. An empty token disables it.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// LogConfig controls logging. Format is "text" or "json".
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:          ":8080",
		DBPath:          "icweb.db",
		DefaultLanguage: "en",
		Backend: BackendConfig{
			Type:    BackendSQLite,
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			TTL: cache.DefaultTTL,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Audit: models.AuditConfig{
			DBPath:        "icweb-audit.db",
			RetentionDays: 90,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("invalid config: db_path is required for the sqlite backend")
		}
	case BackendREST:
		if c.Backend.URL == "" {
			return fmt.Errorf("invalid config: backend.url is required for the rest backend")
		}
	default:
		return fmt.Errorf("invalid config: unknown backend type %q", c.Backend.Type)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("invalid config: cache.ttl must be positive")
	}
	if c.Audit.Enabled && c.Audit.DBPath == "" {
		return fmt.Errorf("invalid config: audit.db_path is required when audit is enabled")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid config: unknown log format %q", c.Log.Format)
	}
	return nil
}
