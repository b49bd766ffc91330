// Package cache provides the cache backend contract and key serialization used by
// the servicecache decorator.
//
// # Overview
//
// The package exports two interfaces and their default implementations:
//
//   - CacheService: read-through storage with explicit Set and prefix deletion
//   - KeySerializer: builds stable cache keys from a method name and its arguments
//
// Two backends are available through NewCacheService:
//
//   - BackendMemory: an unbounded map that lives as long as the process
//   - BackendSturdyc: a bounded sturdyc client with TTL and optional early refresh
//
// Neither backend stores the result of a failed fetch, so a lookup that returned
// NotFound is retried on the next call.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	people, err := cache.GetOrFetch(ctx, svc, "people::all", func(ctx context.Context) ([]*Person, error) {
//		return store.FetchAll(ctx)
//	})
//
// # Key Serialization
//
// The default serializer walks arguments with reflection. Map entries are sorted, so
// criteria built in a different order share a key. Function arguments are written as
// pointers and are only stable within one process. NewHashedKeySerializer replaces
// the argument part of the key with an xxhash digest when keys would grow large.
//
// # Configuration
//
// Config can be loaded from YAML with LoadConfig:
//
//	backend: sturdyc
//	hashed_keys: true
//	capacity: 10000
//	ttl: 5m
package cache
