package cacheinfra

import (
	"context"
	"strings"

	"github.com/viccon/sturdyc"
)

// SturdycService is a bounded, TTL-based cache backed by a sturdyc client.
type SturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds the client. Capacity, NumShards, TTL and
// EvictionPercentage go to sturdyc.New; everything else through ToSturdycOptions.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycService{client: client}, nil
}

// GetOrFetch returns the cached value for key or calls fetchFn and caches its result.
// Failed fetches are not stored and their error is returned unchanged. A nil result is
// cached as nil.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	if fetchFn == nil {
		return nil, &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	v, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		v, err := fetchFn(ctx)
		if v == nil {
			v = nilValue{}
		}
		return v, err
	})
	if err != nil {
		return nil, err
	}
	if _, ok := v.(nilValue); ok {
		return nil, nil
	}
	return v, nil
}

// nilValue stands in for a nil fetch result, which sturdyc rejects as an invalid type.
type nilValue struct{}

// Set stores value under key.
func (s *SturdycService) Set(ctx context.Context, key string, value any) error {
	s.client.Set(key, value)
	return nil
}

// Delete removes key.
func (s *SturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (s *SturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Len reports the number of cached entries.
func (s *SturdycService) Len() int {
	return s.client.Size()
}
