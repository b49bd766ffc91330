// Package service implements the per-model façade that route handlers call instead of
// talking to an ORM or a directory client directly.
//
// A RecordService combines a store.RecordStore with parameter preprocessing, model
// identity checks and the paginate algorithm. The same method names work whether the
// store is relational (native pagination, dense columns) or a directory subtree
// (in-memory pagination, sparse attributes where an empty string means "unset").
package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-servicelayer/pagination"
	"github.com/goliatone/go-servicelayer/serviceerr"
	"github.com/goliatone/go-servicelayer/store"
)

// Service is the method surface exposed to callers. RecordService implements it and
// decorators such as servicecache.CachedService wrap it.
type Service[T any] interface {
	Model() *store.Model[T]
	CanonicalID(id string) string
	Check(obj any) (T, error)

	New(ctx context.Context, params Params) (T, error)
	Create(ctx context.Context, params Params) (T, error)
	Save(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, record T, params Params) (T, error)
	Delete(ctx context.Context, record T) error

	All(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	GetAll(ctx context.Context, ids ...string) ([]T, error)
	GetOrNotFound(ctx context.Context, id string) (T, error)
	Find(ctx context.Context, criteria store.Criteria) ([]T, error)
	First(ctx context.Context, criteria store.Criteria) (T, error)
	One(ctx context.Context, criteria store.Criteria) (T, error)
	Paginate(ctx context.Context, opts ...PageOption) (*pagination.Pagination[T], error)
}

var _ Service[any] = (*RecordService[any])(nil)

// Option configures a RecordService.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used for write and pagination events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// RecordService is the default Service implementation.
type RecordService[T any] struct {
	store  store.RecordStore[T]
	model  *store.Model[T]
	sparse bool
	logger zerolog.Logger
}

// New creates a service for the records managed by s.
func New[T any](s store.RecordStore[T], model *store.Model[T], opts ...Option) *RecordService[T] {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &RecordService[T]{
		store:  s,
		model:  model,
		sparse: store.IsSparse(s),
		logger: o.logger.With().Str("model", model.Name).Logger(),
	}
}

// Model returns the model descriptor of the managed records.
func (s *RecordService[T]) Model() *store.Model[T] { return s.model }

// Store returns the underlying record store.
func (s *RecordService[T]) Store() store.RecordStore[T] { return s.store }

// CanonicalID returns the store's canonical spelling of id.
func (s *RecordService[T]) CanonicalID(id string) string { return store.CanonicalID(s.store, id) }

// Check fails with a type mismatch error unless obj is a non-nil managed record.
func (s *RecordService[T]) Check(obj any) (T, error) { return s.model.Check(obj) }

// New returns an unsaved record built from preprocessed params.
func (s *RecordService[T]) New(ctx context.Context, params Params) (T, error) {
	return s.store.Create(ctx, PreprocessParams(params, s.sparse))
}

// Create builds and inserts a record.
func (s *RecordService[T]) Create(ctx context.Context, params Params) (T, error) {
	rec, err := s.New(ctx, params)
	if err != nil {
		var zero T
		return zero, err
	}
	created, err := s.store.Insert(ctx, rec)
	if err != nil {
		var zero T
		return zero, err
	}
	s.logger.Info().Str("id", s.model.ID(created)).Msg("record created")
	return created, nil
}

// Save commits record, inserting or updating it.
func (s *RecordService[T]) Save(ctx context.Context, record T) (T, error) {
	rec, err := s.Check(record)
	if err != nil {
		return rec, err
	}
	saved, err := s.store.Persist(ctx, rec)
	if err != nil {
		var zero T
		return zero, err
	}
	s.logger.Info().Str("id", s.model.ID(saved)).Msg("record saved")
	return saved, nil
}

// Update clears every attribute passed as an empty string, assigns the remaining
// params and persists the record.
func (s *RecordService[T]) Update(ctx context.Context, record T, params Params) (T, error) {
	rec, err := s.Check(record)
	if err != nil {
		return rec, err
	}
	if err := s.model.Apply(rec, Changes(params, s.sparse)); err != nil {
		var zero T
		return zero, err
	}
	return s.Save(ctx, rec)
}

// Delete removes record from the store.
func (s *RecordService[T]) Delete(ctx context.Context, record T) error {
	rec, err := s.Check(record)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, rec); err != nil {
		return err
	}
	s.logger.Info().Str("id", s.model.ID(rec)).Msg("record deleted")
	return nil
}

// All returns every record in backend order.
func (s *RecordService[T]) All(ctx context.Context) ([]T, error) {
	return s.store.FetchAll(ctx)
}

// Get fetches a record by id. A missing record yields a NotFound error.
func (s *RecordService[T]) Get(ctx context.Context, id string) (T, error) {
	return s.store.FetchByID(ctx, id)
}

// GetAll fetches the records matching any of ids. Unknown ids are skipped, but a
// lookup that matches nothing at all is NotFound.
func (s *RecordService[T]) GetAll(ctx context.Context, ids ...string) ([]T, error) {
	recs, err := s.store.FetchMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 && len(recs) == 0 {
		return nil, serviceerr.NotFound("no %s matching ids %v", s.model.Name, ids)
	}
	return recs, nil
}

// GetOrNotFound fetches a record by id and reports any miss as NotFound.
func (s *RecordService[T]) GetOrNotFound(ctx context.Context, id string) (T, error) {
	return GetOrNotFound[T](ctx, s, id)
}

// Find returns the records matching every criteria entry.
func (s *RecordService[T]) Find(ctx context.Context, criteria store.Criteria) ([]T, error) {
	return s.store.Filter(ctx, criteria)
}

// First returns the first record matching criteria or NotFound.
func (s *RecordService[T]) First(ctx context.Context, criteria store.Criteria) (T, error) {
	return First[T](ctx, s, criteria)
}

// One returns the single record matching criteria. Zero matches yield NoResult and more
// than one yield MultipleResults.
func (s *RecordService[T]) One(ctx context.Context, criteria store.Criteria) (T, error) {
	return One[T](ctx, s, criteria)
}

// Paginate returns one page of records. Stores with native pagination order and slice
// on the backend; the others are listed in full and sliced in memory, and reject
// filters. With ErrorOut set, an empty page fails with NotFound only when records
// exist, so page 2 of an empty listing is an empty page. Pages too far out to address
// are treated as past the last page.
func (s *RecordService[T]) Paginate(ctx context.Context, opts ...PageOption) (*pagination.Pagination[T], error) {
	req := NewPageRequest(opts...)
	native := s.store.SupportsNativePagination()

	if !native && len(req.FilterBy) > 0 {
		return nil, serviceerr.Unsupported("filter_by is not supported by %s pagination", s.model.Name)
	}

	if err := pagination.ValidateParams(req.Page, req.PerPage); err != nil {
		if req.ErrorOut {
			return nil, serviceerr.NotFound("invalid page request: %v", err)
		}
		req = req.normalized()
	}

	var (
		items []T
		total int
		err   error
	)
	if native {
		items, total, err = s.nativePage(ctx, req)
	} else {
		items, total, err = s.memoryPage(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if req.ErrorOut && len(items) == 0 && total > 0 {
		return nil, serviceerr.NotFound("page %d is out of range (%d records, %d per page)", req.Page, total, req.PerPage)
	}

	s.logger.Debug().
		Int("page", req.Page).
		Int("per_page", req.PerPage).
		Int("total", total).
		Bool("native", native).
		Msg("paginate")

	return pagination.New(req.Page, req.PerPage, total, items), nil
}

func (s *RecordService[T]) nativePage(ctx context.Context, req PageRequest) ([]T, int, error) {
	pf, ok := s.store.(store.PageFetcher[T])
	if !ok {
		return nil, 0, serviceerr.Unsupported("%T reports native pagination but cannot fetch pages", s.store)
	}
	orderBy := req.OrderBy
	if orderBy == "" {
		orderBy = s.model.IDField
	}
	return pf.FetchPage(ctx, store.PageQuery{
		Offset:  pagination.Offset(req.Page, req.PerPage),
		Limit:   req.PerPage,
		OrderBy: orderBy,
		Desc:    req.Desc,
		Filter:  req.FilterBy,
	})
}

func (s *RecordService[T]) memoryPage(ctx context.Context, req PageRequest) ([]T, int, error) {
	all, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	if req.OrderBy != "" || req.Desc {
		all, err = s.sorted(all, req.OrderBy, req.Desc)
		if err != nil {
			return nil, 0, err
		}
	}
	return pagination.Slice(all, req.Page, req.PerPage), len(all), nil
}

func (s *RecordService[T]) sorted(records []T, orderBy string, desc bool) ([]T, error) {
	key := func(r T) any { return s.model.ID(r) }
	if orderBy != "" && orderBy != s.model.IDField {
		f, ok := s.model.Field(orderBy)
		if !ok {
			return nil, serviceerr.Validation(
				fmt.Sprintf("cannot order %s by %q", s.model.Name, orderBy),
				map[string]string{"order_by": "unknown field"},
			)
		}
		key = f.Get
	}

	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b T) int {
		c := compareValues(key(a), key(b))
		if desc {
			return -c
		}
		return c
	})
	return out, nil
}

func compareValues(a, b any) int {
	if ai, ok := a.(int); ok {
		if bi, ok := b.(int); ok {
			return cmp.Compare(ai, bi)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// GetOrNotFound fetches id through s.Get and reports any miss as NotFound. Decorators
// use it so the lookup runs through their own Get.
func GetOrNotFound[T any](ctx context.Context, s Service[T], id string) (T, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		if serviceerr.IsNotFound(err) || serviceerr.IsNoResult(err) {
			var zero T
			return zero, serviceerr.NotFound("%s %q not found", s.Model().Name, id)
		}
		return rec, err
	}
	return rec, nil
}

// First returns the first match of criteria using s.Find.
func First[T any](ctx context.Context, s Service[T], criteria store.Criteria) (T, error) {
	var zero T
	recs, err := s.Find(ctx, criteria)
	if err != nil {
		return zero, err
	}
	if len(recs) == 0 {
		return zero, serviceerr.NotFound("no %s matching %v", s.Model().Name, map[string]any(criteria))
	}
	return recs[0], nil
}

// One returns the single match of criteria using s.Find.
func One[T any](ctx context.Context, s Service[T], criteria store.Criteria) (T, error) {
	var zero T
	recs, err := s.Find(ctx, criteria)
	if err != nil {
		return zero, err
	}
	switch len(recs) {
	case 0:
		return zero, serviceerr.NoResult("no %s matching %v", s.Model().Name, map[string]any(criteria))
	case 1:
		return recs[0], nil
	default:
		return zero, serviceerr.MultipleResults(len(recs), "%d %s match %v", len(recs), s.Model().Name, map[string]any(criteria))
	}
}
