// Package sqlstore adapts a go-repository-bun repository to store.RecordStore.
//
// Filtering, ordering and pagination are pushed down to the database through bun
// select criteria, so the store reports native pagination. Records are identified by
// UUID strings assigned on insert when the caller did not set one.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-servicelayer/serviceerr"
	"github.com/goliatone/go-servicelayer/store"
)

// Repository is the subset of repository.Repository[T] the store relies on.
type Repository[T any] interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error)
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error)
	Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error)
	Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error)
	Delete(ctx context.Context, record T) error
}

var (
	_ store.RecordStore[any] = (*Store[any])(nil)
	_ store.PageFetcher[any] = (*Store[any])(nil)
	_ Repository[any]        = (repository.Repository[any])(nil)
)

// Store is the relational record store.
type Store[T any] struct {
	repo   Repository[T]
	model  *store.Model[T]
	newID  func() string
	logger zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption[T any] func(*Store[T])

// WithLogger sets the logger used for backend calls.
func WithLogger[T any](logger zerolog.Logger) StoreOption[T] {
	return func(s *Store[T]) { s.logger = logger }
}

// WithIDGenerator replaces the UUID generator used on insert.
func WithIDGenerator[T any](fn func() string) StoreOption[T] {
	return func(s *Store[T]) { s.newID = fn }
}

// New wraps repo for the records described by model.
func New[T any](repo Repository[T], model *store.Model[T], opts ...StoreOption[T]) *Store[T] {
	s := &Store[T]{
		repo:   repo,
		model:  model,
		newID:  uuid.NewString,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("store", "sql").Str("model", model.Name).Logger()
	return s
}

// SupportsNativePagination is always true for relational stores.
func (s *Store[T]) SupportsNativePagination() bool { return true }

// Create builds an unsaved record.
func (s *Store[T]) Create(ctx context.Context, attrs map[string]any) (T, error) {
	rec, err := s.model.Build(attrs)
	if err != nil {
		return rec, err
	}
	if err := s.model.Validate(rec); err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// Insert assigns an id when missing and inserts the record.
func (s *Store[T]) Insert(ctx context.Context, record T) (T, error) {
	if s.model.ID(record) == "" {
		s.model.SetID(record, s.newID())
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		var zero T
		return zero, serviceerr.StoreError(err, "insert %s %s", s.model.Name, s.model.ID(record))
	}
	s.logger.Debug().Str("id", s.model.ID(created)).Msg("inserted")
	return created, nil
}

// Persist inserts records without an id and updates the others.
func (s *Store[T]) Persist(ctx context.Context, record T) (T, error) {
	if s.model.ID(record) == "" {
		return s.Insert(ctx, record)
	}
	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		var zero T
		return zero, serviceerr.StoreError(err, "update %s %s", s.model.Name, s.model.ID(record))
	}
	s.logger.Debug().Str("id", s.model.ID(updated)).Msg("updated")
	return updated, nil
}

// FetchByID returns the record with the given primary key.
func (s *Store[T]) FetchByID(ctx context.Context, id string) (T, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		var zero T
		if isNoRows(err) {
			return zero, serviceerr.NotFound("%s %q not found", s.model.Name, id)
		}
		return zero, serviceerr.StoreError(err, "fetch %s %s", s.model.Name, id)
	}
	return rec, nil
}

// FetchAll lists every record in primary key order.
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	return s.list(ctx, Query{OrderBy: s.model.IDField})
}

// FetchMany lists the records whose primary key is one of ids.
func (s *Store[T]) FetchMany(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	return s.list(ctx, Query{
		In:      &InCondition{Column: s.model.IDField, Values: ids},
		OrderBy: s.model.IDField,
	})
}

// Filter lists the records matching every criteria entry.
func (s *Store[T]) Filter(ctx context.Context, criteria store.Criteria) ([]T, error) {
	where, err := s.conditions(criteria)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, Query{Where: where, OrderBy: s.model.IDField})
}

// FetchPage lists one window of records and the total number of matches.
func (s *Store[T]) FetchPage(ctx context.Context, pq store.PageQuery) ([]T, int, error) {
	where, err := s.conditions(pq.Filter)
	if err != nil {
		return nil, 0, err
	}
	orderBy, err := s.column(pq.OrderBy)
	if err != nil {
		return nil, 0, err
	}
	q := Query{
		Where:   where,
		OrderBy: orderBy,
		Desc:    pq.Desc,
		Limit:   pq.Limit,
		Offset:  pq.Offset,
	}
	records, total, err := s.repo.List(ctx, q.Criteria()...)
	if err != nil {
		return nil, 0, serviceerr.StoreError(err, "paginate %s", s.model.Name)
	}
	s.logger.Debug().Int("offset", pq.Offset).Int("limit", pq.Limit).Int("total", total).Msg("page fetched")
	return records, total, nil
}

// Delete removes the record, failing when it does not exist.
func (s *Store[T]) Delete(ctx context.Context, record T) error {
	id := s.model.ID(record)
	if id == "" {
		return serviceerr.StoreError(errors.New("record has no id"), "delete %s", s.model.Name)
	}
	if _, err := s.FetchByID(ctx, id); err != nil {
		if serviceerr.IsNotFound(err) {
			return serviceerr.StoreError(err, "delete %s %s", s.model.Name, id)
		}
		return err
	}
	if err := s.repo.Delete(ctx, record); err != nil {
		return serviceerr.StoreError(err, "delete %s %s", s.model.Name, id)
	}
	s.logger.Debug().Str("id", id).Msg("deleted")
	return nil
}

func (s *Store[T]) list(ctx context.Context, q Query) ([]T, error) {
	records, _, err := s.repo.List(ctx, q.Criteria()...)
	if err != nil {
		return nil, serviceerr.StoreError(err, "list %s", s.model.Name)
	}
	return records, nil
}

func (s *Store[T]) column(field string) (string, error) {
	if field == "" || field == s.model.IDField {
		return s.model.IDField, nil
	}
	f, ok := s.model.Field(field)
	if !ok {
		return "", serviceerr.Validation(
			fmt.Sprintf("%s has no field %q", s.model.Name, field),
			map[string]string{field: "unknown field"},
		)
	}
	return f.Attribute, nil
}

func (s *Store[T]) conditions(criteria store.Criteria) ([]Condition, error) {
	where := make([]Condition, 0, len(criteria))
	for _, k := range sortedKeys(criteria) {
		col, err := s.column(k)
		if err != nil {
			return nil, err
		}
		where = append(where, Condition{Column: col, Value: criteria[k]})
	}
	return where, nil
}

func isNoRows(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var ge *goerrors.Error
	return errors.As(err, &ge) && ge.Category == goerrors.CategoryNotFound
}
