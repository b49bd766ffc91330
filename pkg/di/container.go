package di

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-servicelayer/cache"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/goliatone/go-servicelayer/servicecache"
	"github.com/goliatone/go-servicelayer/store"
	"github.com/goliatone/go-servicelayer/store/ldapstore"
	"github.com/goliatone/go-servicelayer/store/sqlstore"
)

// Container holds the shared pieces every service is built from: the root logger,
// one cache service and one key serializer.
type Container struct {
	config        Config
	logger        zerolog.Logger
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
}

// ContainerOption adjusts a Container after its defaults are built.
type ContainerOption func(*Container)

// WithLogger replaces the root logger built from Config.LogLevel.
func WithLogger(logger zerolog.Logger) ContainerOption {
	return func(c *Container) { c.logger = logger }
}

// WithLogOutput writes the root logger to w instead of stderr.
func WithLogOutput(w io.Writer) ContainerOption {
	return func(c *Container) {
		c.logger = zerolog.New(w).Level(c.logger.GetLevel()).With().Timestamp().Logger()
	}
}

// WithCacheService replaces the cache backend selected by Config.Cache.
func WithCacheService(svc cache.CacheService) ContainerOption {
	return func(c *Container) { c.cacheService = svc }
}

// NewContainer validates config and builds the shared components.
func NewContainer(config Config, opts ...ContainerOption) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	level, _ := zerolog.ParseLevel(config.LogLevel)
	cacheService, err := cache.NewCacheService(config.Cache)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:        config,
		logger:        zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(),
		cacheService:  cacheService,
		keySerializer: cache.NewKeySerializer(config.Cache),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug().
		Str("cache_backend", string(config.Cache.Backend)).
		Bool("hashed_keys", config.Cache.Hashed).
		Msg("container ready")
	return c, nil
}

// NewContainerWithDefaults builds a container from DefaultConfig.
func NewContainerWithDefaults(opts ...ContainerOption) (*Container, error) {
	return NewContainer(DefaultConfig(), opts...)
}

func (c *Container) CacheService() cache.CacheService { return c.cacheService }

func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

func (c *Container) Logger() zerolog.Logger { return c.logger }

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() Config { return c.config }

// NewService wraps s in a RecordService logging through the container logger.
// Example: NewService[*Person](container, personStore, personModel)
func NewService[T any](c *Container, s store.RecordStore[T], model *store.Model[T]) *service.RecordService[T] {
	return service.New(s, model, service.WithLogger(c.logger))
}

// NewCachedService decorates base with the container's cache service and key serializer.
func NewCachedService[T any](c *Container, base service.Service[T], opts ...servicecache.Option) *servicecache.CachedService[T] {
	opts = append([]servicecache.Option{servicecache.WithLogger(c.logger)}, opts...)
	return servicecache.New(base, c.cacheService, c.keySerializer, opts...)
}

// NewSQLService builds a relational service over a go-repository-bun repository.
func NewSQLService[T any](c *Container, repo sqlstore.Repository[T], model *store.Model[T]) *service.RecordService[T] {
	s := sqlstore.New(repo, model, sqlstore.WithLogger[T](c.logger))
	return NewService[T](c, s, model)
}

// NewLDAPService builds a cached directory service over conn using Config.LDAP.
// Reads go through the container cache.
func NewLDAPService[T any](c *Container, conn ldapstore.Conn, model *store.Model[T]) (*servicecache.CachedService[T], error) {
	s, err := ldapstore.New(conn, model, c.config.LDAP, ldapstore.WithLogger[T](c.logger))
	if err != nil {
		return nil, err
	}
	return NewCachedService[T](c, NewService[T](c, s, model)), nil
}
