package servicecache

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-servicelayer/cache"
	"github.com/goliatone/go-servicelayer/pagination"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/goliatone/go-servicelayer/serviceerr"
	"github.com/goliatone/go-servicelayer/store"
)

var _ service.Service[any] = (*CachedService[any])(nil)

const (
	methodAll  = "all"
	methodGet  = "get"
	methodFind = "find"
)

// Option configures a CachedService.
type Option func(*options)

type options struct {
	logger    zerolog.Logger
	namespace string
}

// WithLogger sets the logger used for cache fills and cache errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNamespace replaces the generated key namespace. Two services sharing a namespace
// and a CacheService share cached entries.
func WithNamespace(namespace string) Option {
	return func(o *options) { o.namespace = namespace }
}

// CachedService decorates a service with read-through caching of All, Get and Find.
type CachedService[T any] struct {
	base          service.Service[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	namespace     string
	logger        zerolog.Logger
}

// New wraps base. Unless WithNamespace is given every instance gets its own namespace,
// so separate instances never see each other's entries.
func New[T any](base service.Service[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *CachedService[T] {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.namespace == "" {
		o.namespace = base.Model().Name + ":" + uuid.NewString()
	}
	return &CachedService[T]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		namespace:     o.namespace,
		logger:        o.logger.With().Str("cache_namespace", o.namespace).Logger(),
	}
}

// Namespace is the prefix of every key written by this instance.
func (c *CachedService[T]) Namespace() string { return c.namespace }

// Base returns the wrapped service.
func (c *CachedService[T]) Base() service.Service[T] { return c.base }

func (c *CachedService[T]) key(method string, args ...any) string {
	return c.namespace + cache.KeySeparator + c.keySerializer.SerializeKey(method, args...)
}

// All returns the cached full listing, fetching it once. A fresh listing also fills
// the Get entry of every record it contains.
func (c *CachedService[T]) All(ctx context.Context) ([]T, error) {
	if bypassed(ctx) {
		return c.base.All(ctx)
	}
	key := c.key(methodAll)
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) ([]T, error) {
		recs, err := c.base.All(ctx)
		if err != nil {
			return nil, err
		}
		c.logger.Debug().Str("key", key).Int("records", len(recs)).Msg("cache fill")
		model := c.base.Model()
		for _, rec := range recs {
			getKey := c.key(methodGet, c.base.CanonicalID(model.ID(rec)))
			if err := c.cache.Set(ctx, getKey, rec); err != nil {
				c.logger.Warn().Err(err).Str("key", getKey).Msg("cache set failed")
			}
		}
		return recs, nil
	})
}

// Get returns the cached record for id. Misses are not cached.
func (c *CachedService[T]) Get(ctx context.Context, id string) (T, error) {
	if bypassed(ctx) {
		return c.base.Get(ctx, id)
	}
	canonical := c.base.CanonicalID(id)
	key := c.key(methodGet, canonical)
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		rec, err := c.base.Get(ctx, canonical)
		if err != nil {
			var zero T
			return zero, err
		}
		c.logger.Debug().Str("key", key).Msg("cache fill")
		return rec, nil
	})
}

// Find returns the cached matches of criteria. Criteria with the same pairs share an
// entry regardless of construction order.
func (c *CachedService[T]) Find(ctx context.Context, criteria store.Criteria) ([]T, error) {
	if bypassed(ctx) {
		return c.base.Find(ctx, criteria)
	}
	key := c.key(methodFind, map[string]any(criteria))
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) ([]T, error) {
		recs, err := c.base.Find(ctx, criteria)
		if err != nil {
			return nil, err
		}
		c.logger.Debug().Str("key", key).Int("records", len(recs)).Msg("cache fill")
		return recs, nil
	})
}

// GetAll resolves every id through the cached Get. Unknown ids are skipped; when none
// resolves the call fails with NotFound.
func (c *CachedService[T]) GetAll(ctx context.Context, ids ...string) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, err := c.Get(ctx, id)
		if err != nil {
			if serviceerr.IsNotFound(err) || serviceerr.IsNoResult(err) {
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	if len(ids) > 0 && len(out) == 0 {
		return nil, serviceerr.NotFound("no %s matching ids %v", c.base.Model().Name, ids)
	}
	return out, nil
}

func (c *CachedService[T]) GetOrNotFound(ctx context.Context, id string) (T, error) {
	return service.GetOrNotFound[T](ctx, c, id)
}

func (c *CachedService[T]) First(ctx context.Context, criteria store.Criteria) (T, error) {
	return service.First[T](ctx, c, criteria)
}

func (c *CachedService[T]) One(ctx context.Context, criteria store.Criteria) (T, error) {
	return service.One[T](ctx, c, criteria)
}

// ClearCache drops every entry written by this instance.
func (c *CachedService[T]) ClearCache(ctx context.Context) error {
	if err := c.cache.DeleteByPrefix(ctx, c.namespace+cache.KeySeparator); err != nil {
		return err
	}
	c.logger.Debug().Msg("cache cleared")
	return nil
}

func (c *CachedService[T]) Model() *store.Model[T] { return c.base.Model() }

func (c *CachedService[T]) CanonicalID(id string) string { return c.base.CanonicalID(id) }

func (c *CachedService[T]) Check(obj any) (T, error) { return c.base.Check(obj) }

// Writes and pagination pass through. Cached entries are not invalidated.

func (c *CachedService[T]) New(ctx context.Context, params service.Params) (T, error) {
	return c.base.New(ctx, params)
}

func (c *CachedService[T]) Create(ctx context.Context, params service.Params) (T, error) {
	return c.base.Create(ctx, params)
}

func (c *CachedService[T]) Save(ctx context.Context, record T) (T, error) {
	return c.base.Save(ctx, record)
}

func (c *CachedService[T]) Update(ctx context.Context, record T, params service.Params) (T, error) {
	return c.base.Update(ctx, record, params)
}

func (c *CachedService[T]) Delete(ctx context.Context, record T) error {
	return c.base.Delete(ctx, record)
}

func (c *CachedService[T]) Paginate(ctx context.Context, opts ...service.PageOption) (*pagination.Pagination[T], error) {
	return c.base.Paginate(ctx, opts...)
}
