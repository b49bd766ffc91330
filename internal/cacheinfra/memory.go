package cacheinfra

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryService is an unbounded cache living as long as the process. Entries are only
// removed through Delete and DeleteByPrefix.
type MemoryService struct {
	entries *xsync.MapOf[string, any]
}

// NewMemoryService returns an empty memory cache.
func NewMemoryService() *MemoryService {
	return &MemoryService{entries: xsync.NewMapOf[string, any]()}
}

// GetOrFetch returns the cached value for key or calls fetchFn and caches its result.
// Failed fetches are not stored. Concurrent misses on the same key may fetch twice;
// the last result wins.
func (s *MemoryService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	if v, ok := s.entries.Load(key); ok {
		return v, nil
	}
	if fetchFn == nil {
		return nil, &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	v, err := fetchFn(ctx)
	if err != nil {
		return nil, err
	}
	s.entries.Store(key, v)
	return v, nil
}

// Set stores value under key.
func (s *MemoryService) Set(ctx context.Context, key string, value any) error {
	s.entries.Store(key, value)
	return nil
}

// Delete removes key.
func (s *MemoryService) Delete(ctx context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (s *MemoryService) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.entries.Range(func(key string, _ any) bool {
		if strings.HasPrefix(key, prefix) {
			s.entries.Delete(key)
		}
		return true
	})
	return nil
}

// Len reports the number of cached entries.
func (s *MemoryService) Len() int {
	return s.entries.Size()
}
