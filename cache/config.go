package cache

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-servicelayer/internal/cacheinfra"
)

// Backend selects the CacheService implementation.
type Backend string

const (
	// BackendMemory keeps every entry for the life of the process.
	BackendMemory Backend = "memory"
	// BackendSturdyc bounds the cache by capacity and TTL.
	BackendSturdyc Backend = "sturdyc"
)

// Config selects and tunes the cache backend. Sizing fields only apply to
// BackendSturdyc.
type Config struct {
	Backend            Backend             `yaml:"backend"`
	Hashed             bool                `yaml:"hashed_keys"`
	Capacity           int                 `yaml:"capacity"`
	NumShards          int                 `yaml:"num_shards"`
	TTL                time.Duration       `yaml:"ttl"`
	EvictionPercentage int                 `yaml:"eviction_percentage"`
	EarlyRefresh       *EarlyRefreshConfig `yaml:"early_refresh"`
	EvictionInterval   time.Duration       `yaml:"eviction_interval"`
}

// EarlyRefreshConfig mirrors the sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `yaml:"min_async"`
	MaxAsyncRefreshTime time.Duration `yaml:"max_async"`
	SyncRefreshTime     time.Duration `yaml:"sync"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay"`
}

// DefaultConfig uses the memory backend with sturdyc sizing ready to switch over.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.Backend = BackendMemory
	return cfg
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read cache config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse cache config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the backend name and, for sturdyc, its sizing.
func (c Config) Validate() error {
	err := validation.Validate(string(c.Backend),
		validation.Required.Error("is required"),
		validation.In(string(BackendMemory), string(BackendSturdyc)).Error("must be memory or sturdyc"),
	)
	if err != nil {
		return &cacheinfra.ConfigError{Field: "Backend", Message: err.Error()}
	}
	if c.Backend == BackendSturdyc {
		return c.toInternal().Validate()
	}
	return nil
}

// NewCacheService builds the backend selected by cfg.
func NewCacheService(cfg Config) (CacheService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendSturdyc:
		return cacheinfra.NewSturdycService(cfg.toInternal())
	default:
		return cacheinfra.NewMemoryService(), nil
	}
}

// NewKeySerializer returns the serializer selected by cfg.
func NewKeySerializer(cfg Config) KeySerializer {
	if cfg.Hashed {
		return NewHashedKeySerializer(NewDefaultKeySerializer())
	}
	return NewDefaultKeySerializer()
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		e := cacheinfra.EarlyRefreshConfig(*c.EarlyRefresh)
		early = &e
	}

	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		e := EarlyRefreshConfig(*cfg.EarlyRefresh)
		early = &e
	}

	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
