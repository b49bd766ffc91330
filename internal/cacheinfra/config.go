package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the settings of the bounded sturdyc backend.
type Config struct {
	// Capacity is the maximum number of entries. Must be greater than 0.
	Capacity int

	// NumShards splits the cache for concurrent access. Must be greater than 0.
	NumShards int

	// TTL bounds how long an entry may be served. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when the cache is full.
	EvictionPercentage int

	// EarlyRefresh refreshes hot entries before they expire. Nil disables it.
	EarlyRefresh *EarlyRefreshConfig

	// EvictionInterval sets how often expired entries are swept. Zero keeps the
	// sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig mirrors sturdyc.WithEarlyRefreshes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns the sturdyc settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
	}
}

// ToSturdycOptions returns the options not passed to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate returns a *ConfigError for the first invalid field.
func (c Config) Validate() error {
	positive := func(v any) error {
		return validation.Validate(v,
			validation.Required.Error("must be greater than 0"),
			validation.Min(1).Error("must be greater than 0"),
		)
	}
	nonNegative := func(v time.Duration) error {
		return validation.Validate(v, validation.Min(0).Error("must be non-negative"))
	}

	checks := []struct {
		field string
		err   error
	}{
		{"Capacity", positive(c.Capacity)},
		{"NumShards", positive(c.NumShards)},
		{"TTL", positive(c.TTL)},
		{"EvictionPercentage", validation.Validate(c.EvictionPercentage,
			validation.Required.Error("must be between 1 and 100"),
			validation.Min(1).Error("must be between 1 and 100"),
			validation.Max(100).Error("must be between 1 and 100"),
		)},
	}
	if er := c.EarlyRefresh; er != nil {
		checks = append(checks, []struct {
			field string
			err   error
		}{
			{"EarlyRefresh.MinAsyncRefreshTime", nonNegative(er.MinAsyncRefreshTime)},
			{"EarlyRefresh.MaxAsyncRefreshTime", nonNegative(er.MaxAsyncRefreshTime)},
			{"EarlyRefresh.SyncRefreshTime", nonNegative(er.SyncRefreshTime)},
			{"EarlyRefresh.RetryBaseDelay", nonNegative(er.RetryBaseDelay)},
		}...)
	}

	for _, chk := range checks {
		if chk.err != nil {
			return &ConfigError{Field: chk.field, Message: chk.err.Error()}
		}
	}
	return nil
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
