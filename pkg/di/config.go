package di

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-servicelayer/cache"
	"github.com/goliatone/go-servicelayer/store/ldapstore"
)

// EnvPrefix prefixes every environment override read by LoadConfig.
const EnvPrefix = "SERVICELAYER_"

// Config aggregates the settings needed to build services.
type Config struct {
	LogLevel    string           `yaml:"log_level"`
	Cache       cache.Config     `yaml:"cache"`
	LDAP        ldapstore.Config `yaml:"ldap"`
	DatabaseDSN string           `yaml:"database_dsn"`
}

// DefaultConfig logs at info level, caches in memory and points at a local directory.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Cache:    cache.DefaultConfig(),
		LDAP:     ldapstore.DefaultConfig(),
	}
}

// LoadConfig reads path on top of DefaultConfig, applies SERVICELAYER_* environment
// overrides and validates the result. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// Validate checks the log level and every nested configuration.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.LDAP.Validate(); err != nil {
		return fmt.Errorf("ldap: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", c.LogLevel))
	c.DatabaseDSN = envOrDefault("DATABASE_DSN", c.DatabaseDSN)

	c.Cache.Backend = cache.Backend(envOrDefault("CACHE_BACKEND", string(c.Cache.Backend)))
	c.Cache.TTL = envPositiveDuration("CACHE_TTL", c.Cache.TTL)

	c.LDAP.URL = envOrDefault("LDAP_URL", c.LDAP.URL)
	c.LDAP.BindDN = envOrDefault("LDAP_BIND_DN", c.LDAP.BindDN)
	c.LDAP.BindPassword = envOrDefault("LDAP_BIND_PASSWORD", c.LDAP.BindPassword)
	c.LDAP.BaseDN = envOrDefault("LDAP_BASE_DN", c.LDAP.BaseDN)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return defaultVal
}

func envPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}
