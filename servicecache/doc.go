// Package servicecache provides a read-through caching decorator for service.Service.
//
// # Overview
//
// CachedService wraps a service whose store cannot filter or paginate natively, such
// as a directory subtree, and memoizes three read paths:
//
//   - All: the full listing, fetched once. A fresh listing also fills the Get entry
//     of every record it returned.
//   - Get: one record per canonical id.
//   - Find: one result list per criteria set. Keys are built from the sorted pairs,
//     so {"a": 1, "b": 2} and {"b": 2, "a": 1} share an entry.
//
// GetAll, GetOrNotFound, First and One are answered through the cached Get and Find.
// Writes and Paginate pass through to the wrapped service unmodified.
//
// # Basic Usage
//
//	cacheService, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	people := servicecache.New[*Person](base, cacheService, cache.NewDefaultKeySerializer())
//
//	all, err := people.All(ctx)         // backend call
//	jack, err := people.Get(ctx, "jack") // served from the listing
//
// # Staleness
//
// Entries are never invalidated by writes. A record created, updated or deleted
// through the service keeps its previous cached state until ClearCache is called or,
// with the sturdyc backend, until its TTL expires. Failed lookups are not cached, so
// a missing id is queried again on every call.
//
// # Bypassing the Cache
//
// Reads made with a context returned by WithoutCache go straight to the wrapped
// service and leave the cache untouched:
//
//	fresh, err := people.Get(servicecache.WithoutCache(ctx), "jack")
//
// # Namespaces
//
// Every key is prefixed with the instance namespace, by default the model name and a
// random UUID. Instances can therefore share one CacheService, and ClearCache only
// removes the entries of the instance it is called on.
package servicecache
