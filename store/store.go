// Package store defines the record store capability that services delegate to, and the
// model descriptor used to build, update and validate records without reflection.
package store

import "context"

// Criteria is an exact-match conjunction over field names. An empty Criteria matches
// every record.
type Criteria map[string]any

// RecordStore wraps one backend (a SQL table, a directory subtree) bound to a single
// record type for its lifetime.
type RecordStore[T any] interface {
	// Create builds an unsaved record from sanitized attributes.
	Create(ctx context.Context, attrs map[string]any) (T, error)
	// Insert commits a new record and fails if it already exists.
	Insert(ctx context.Context, record T) (T, error)
	// Persist commits the record, inserting or updating as needed.
	Persist(ctx context.Context, record T) (T, error)
	FetchByID(ctx context.Context, id string) (T, error)
	FetchAll(ctx context.Context) ([]T, error)
	FetchMany(ctx context.Context, ids []string) ([]T, error)
	Filter(ctx context.Context, criteria Criteria) ([]T, error)
	Delete(ctx context.Context, record T) error
	SupportsNativePagination() bool
}

// PageQuery describes one page requested from a store with native pagination.
type PageQuery struct {
	Offset  int
	Limit   int
	OrderBy string
	Desc    bool
	Filter  Criteria
}

// PageFetcher is implemented by stores that report SupportsNativePagination.
// It returns the requested window and the total number of matching records.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, query PageQuery) ([]T, int, error)
}

// SparseStore is implemented by backends where attributes are optional and an empty
// string means "unset".
type SparseStore interface {
	SparseAttributes() bool
}

// IDCanonicalizer is implemented by backends that accept several spellings of the
// same identifier.
type IDCanonicalizer interface {
	CanonicalID(id string) string
}

// IsSparse reports whether s treats empty strings as attribute removal.
func IsSparse(s any) bool {
	sp, ok := s.(SparseStore)
	return ok && sp.SparseAttributes()
}

// CanonicalID returns the canonical spelling of id for s, or id unchanged.
func CanonicalID(s any, id string) string {
	if c, ok := s.(IDCanonicalizer); ok {
		return c.CanonicalID(id)
	}
	return id
}
