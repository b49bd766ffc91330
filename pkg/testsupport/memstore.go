package testsupport

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/goliatone/go-servicelayer/serviceerr"
	"github.com/goliatone/go-servicelayer/store"
)

// MemoryStore is an in-memory store.RecordStore that records every call. Native
// controls SupportsNativePagination and Sparse controls store.IsSparse.
type MemoryStore[T any] struct {
	Native bool
	Sparse bool

	mu      sync.Mutex
	model   *store.Model[T]
	records []T
	calls   []string
	nextID  int
	failOn  map[string]error
}

var (
	_ store.RecordStore[any] = (*MemoryStore[any])(nil)
	_ store.PageFetcher[any] = (*MemoryStore[any])(nil)
	_ store.SparseStore      = (*MemoryStore[any])(nil)
)

// NewMemoryStore returns an empty store for model.
func NewMemoryStore[T any](model *store.Model[T]) *MemoryStore[T] {
	return &MemoryStore[T]{model: model, failOn: map[string]error{}}
}

// Seed inserts records without recording calls.
func (m *MemoryStore[T]) Seed(records ...T) *MemoryStore[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.assignID(r)
		m.records = append(m.records, r)
	}
	return m
}

// FailOn makes every later call to method return err.
func (m *MemoryStore[T]) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[method] = err
}

// Calls returns the recorded method names in order.
func (m *MemoryStore[T]) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many times method was called.
func (m *MemoryStore[T]) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

// ClearCalls forgets the recorded calls.
func (m *MemoryStore[T]) ClearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MemoryStore[T]) begin(method string) error {
	m.calls = append(m.calls, method)
	return m.failOn[method]
}

func (m *MemoryStore[T]) SupportsNativePagination() bool { return m.Native }

func (m *MemoryStore[T]) SparseAttributes() bool { return m.Sparse }

func (m *MemoryStore[T]) Create(ctx context.Context, attrs map[string]any) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if err := m.begin("Create"); err != nil {
		return zero, err
	}
	rec, err := m.model.Build(attrs)
	if err != nil {
		return zero, err
	}
	if err := m.model.Validate(rec); err != nil {
		return zero, err
	}
	return rec, nil
}

func (m *MemoryStore[T]) Insert(ctx context.Context, record T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if err := m.begin("Insert"); err != nil {
		return zero, err
	}
	if id := m.model.ID(record); id != "" && m.indexOf(id) >= 0 {
		return zero, serviceerr.StoreError(fmt.Errorf("duplicate id %s", id), "insert %s", id)
	}
	m.assignID(record)
	m.records = append(m.records, record)
	return record, nil
}

func (m *MemoryStore[T]) Persist(ctx context.Context, record T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if err := m.begin("Persist"); err != nil {
		return zero, err
	}
	m.assignID(record)
	if i := m.indexOf(m.model.ID(record)); i >= 0 {
		m.records[i] = record
	} else {
		m.records = append(m.records, record)
	}
	return record, nil
}

func (m *MemoryStore[T]) FetchByID(ctx context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if err := m.begin("FetchByID"); err != nil {
		return zero, err
	}
	i := m.indexOf(id)
	if i < 0 {
		return zero, serviceerr.NotFound("%s %q not found", m.model.Name, id)
	}
	return m.records[i], nil
}

func (m *MemoryStore[T]) FetchAll(ctx context.Context) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("FetchAll"); err != nil {
		return nil, err
	}
	return slices.Clone(m.records), nil
}

func (m *MemoryStore[T]) FetchMany(ctx context.Context, ids []string) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("FetchMany"); err != nil {
		return nil, err
	}
	out := []T{}
	for _, r := range m.records {
		if slices.Contains(ids, m.model.ID(r)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore[T]) Filter(ctx context.Context, criteria store.Criteria) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Filter"); err != nil {
		return nil, err
	}
	return m.filter(criteria)
}

func (m *MemoryStore[T]) Delete(ctx context.Context, record T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Delete"); err != nil {
		return err
	}
	id := m.model.ID(record)
	i := m.indexOf(id)
	if i < 0 {
		return serviceerr.StoreError(fmt.Errorf("no record %s", id), "delete %s", id)
	}
	m.records = slices.Delete(m.records, i, i+1)
	return nil
}

// FetchPage filters, orders and slices the records like a database would.
func (m *MemoryStore[T]) FetchPage(ctx context.Context, q store.PageQuery) ([]T, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("FetchPage"); err != nil {
		return nil, 0, err
	}
	matched, err := m.filter(q.Filter)
	if err != nil {
		return nil, 0, err
	}

	key := func(r T) string { return m.model.ID(r) }
	if f, ok := m.model.Field(q.OrderBy); ok {
		key = func(r T) string { return fmt.Sprint(f.Get(r)) }
	}
	slices.SortStableFunc(matched, func(a, b T) int {
		c := cmp.Compare(key(a), key(b))
		if q.Desc {
			return -c
		}
		return c
	})

	total := len(matched)
	start := min(q.Offset, total)
	end := start + min(q.Limit, total-start)
	return matched[start:end], total, nil
}

func (m *MemoryStore[T]) filter(criteria store.Criteria) ([]T, error) {
	out := []T{}
	for _, r := range m.records {
		ok := true
		for k, want := range criteria {
			f, found := m.model.Field(k)
			if !found {
				return nil, serviceerr.Validation("unknown field "+k, map[string]string{k: "unknown field"})
			}
			if !matchValue(f.Get(r), want) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func matchValue(have, want any) bool {
	if list, ok := have.([]string); ok {
		return slices.Contains(list, fmt.Sprint(want))
	}
	return fmt.Sprint(have) == fmt.Sprint(want)
}

func (m *MemoryStore[T]) assignID(r T) {
	if m.model.ID(r) != "" {
		return
	}
	m.nextID++
	m.model.SetID(r, strconv.Itoa(m.nextID))
}

func (m *MemoryStore[T]) indexOf(id string) int {
	for i, r := range m.records {
		if m.model.ID(r) == id {
			return i
		}
	}
	return -1
}
