package di

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-servicelayer/pkg/testsupport"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/goliatone/go-servicelayer/serviceerr"
	"github.com/goliatone/go-servicelayer/store"
)

type person = testsupport.PersonRecord

// directoryConn serves a fixed set of entries and counts searches.
type directoryConn struct {
	mu       sync.Mutex
	entries  []*ldap.Entry
	searches int
}

func newDirectoryConn(t *testing.T, base string) *directoryConn {
	t.Helper()
	conn := &directoryConn{}
	for _, p := range testsupport.People(t) {
		attrs := map[string][]string{
			"objectClass":   {"person"},
			"cn":            {p.CN},
			"sn":            {p.LastName},
			"loginShell":    {p.Shell},
			"homeDirectory": {p.Home},
		}
		if len(p.Phone) > 0 {
			attrs["telephoneNumber"] = p.Phone
		}
		conn.entries = append(conn.entries, ldap.NewEntry("cn="+p.CN+","+base, attrs))
	}
	return conn
}

func (c *directoryConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches++

	if req.Scope == ldap.ScopeBaseObject {
		for _, e := range c.entries {
			if strings.EqualFold(e.DN, req.BaseDN) {
				return &ldap.SearchResult{Entries: []*ldap.Entry{e}}, nil
			}
		}
		return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no entry %s", req.BaseDN))
	}
	return &ldap.SearchResult{Entries: append([]*ldap.Entry(nil), c.entries...)}, nil
}

func (c *directoryConn) Add(req *ldap.AddRequest) error       { return nil }
func (c *directoryConn) Modify(req *ldap.ModifyRequest) error { return nil }
func (c *directoryConn) Del(req *ldap.DelRequest) error       { return nil }

func (c *directoryConn) searchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searches
}

// rowRepository is an in-memory sqlstore.Repository that ignores select criteria.
type rowRepository struct {
	mu    sync.Mutex
	rows  map[string]*person
	order []string
	calls map[string]int
}

func newRowRepository() *rowRepository {
	return &rowRepository{rows: map[string]*person{}, calls: map[string]int{}}
}

func (r *rowRepository) track(method string) {
	r.calls[method]++
}

func (r *rowRepository) callCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *rowRepository) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track("GetByID")
	if p, ok := r.rows[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (r *rowRepository) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*person, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track("List")
	out := make([]*person, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rows[id])
	}
	return out, len(out), nil
}

func (r *rowRepository) Create(ctx context.Context, record *person, criteria ...repository.InsertCriteria) (*person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track("Create")
	r.rows[record.ID] = record
	r.order = append(r.order, record.ID)
	return record, nil
}

func (r *rowRepository) Update(ctx context.Context, record *person, criteria ...repository.UpdateCriteria) (*person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track("Update")
	r.rows[record.ID] = record
	return record, nil
}

func (r *rowRepository) Delete(ctx context.Context, record *person) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track("Delete")
	delete(r.rows, record.ID)
	return nil
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	container, err := NewContainerWithDefaults(WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	return container
}

func TestIntegration_DirectoryService(t *testing.T) {
	container := newTestContainer(t)
	conn := newDirectoryConn(t, container.Config().LDAP.BaseDN)

	people, err := NewLDAPService(container, conn, testsupport.PersonModel())
	if err != nil {
		t.Fatalf("NewLDAPService() failed: %v", err)
	}
	ctx := context.Background()

	all, err := people.All(ctx)
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 people, got %d", len(all))
	}

	jack, err := people.Get(ctx, "jack")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if jack.ID != "cn=jack,dc=example,dc=com" || jack.LastName != "O'Neill" {
		t.Errorf("unexpected record %+v", jack)
	}
	if _, err := people.Get(ctx, "cn=sam,dc=example,dc=com"); err != nil {
		t.Fatalf("Get(dn) failed: %v", err)
	}
	if n := conn.searchCount(); n != 1 {
		t.Errorf("reads after All should be cached, got %d searches", n)
	}

	if _, err := people.Paginate(ctx, service.FilterBy(store.Criteria{"shell": "/bin/bash"})); !serviceerr.IsUnsupported(err) {
		t.Errorf("directory pagination should reject filters, got %v", err)
	}
	page, err := people.Paginate(ctx, service.PerPage(3), service.Page(2))
	if err != nil {
		t.Fatalf("Paginate() failed: %v", err)
	}
	if len(page.Items) != 1 || page.Pages() != 2 {
		t.Errorf("unexpected page items=%d pages=%d", len(page.Items), page.Pages())
	}
}

func TestIntegration_DirectoryServiceRequiresNamingField(t *testing.T) {
	container := newTestContainer(t)
	model := store.NewModel(
		func() *person { return &person{} },
		func(p *person) string { return p.ID },
		func(p *person, id string) { p.ID = id },
		store.StringField("lastname", "sn", func(p *person) *string { return &p.LastName }),
	)

	if _, err := NewLDAPService(container, &directoryConn{}, model); !serviceerr.IsValidation(err) {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestIntegration_SQLService(t *testing.T) {
	container := newTestContainer(t)
	repo := newRowRepository()
	people := NewSQLService[*person](container, repo, testsupport.PersonModel())
	ctx := context.Background()

	created, err := people.Create(ctx, service.Params{"cn": "george", "lastname": "Hammond", "csrf_token": "t"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := uuid.Parse(created.ID); err != nil {
		t.Errorf("expected a uuid id, got %q", created.ID)
	}

	got, err := people.GetOrNotFound(ctx, created.ID)
	if err != nil || got.CN != "george" {
		t.Fatalf("GetOrNotFound() = %+v, %v", got, err)
	}
	if _, err := people.GetOrNotFound(ctx, uuid.NewString()); !serviceerr.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}

	if _, err := people.Update(ctx, got, service.Params{"shell": "/bin/sh"}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if repo.callCount("Update") != 1 {
		t.Errorf("expected an Update call, got %d", repo.callCount("Update"))
	}

	page, err := people.Paginate(ctx, service.FilterBy(store.Criteria{"lastname": "Hammond"}))
	if err != nil {
		t.Fatalf("relational pagination should accept filters: %v", err)
	}
	if page.Total != 1 || repo.callCount("List") != 1 {
		t.Errorf("unexpected page total=%d list calls=%d", page.Total, repo.callCount("List"))
	}
}

func TestIntegration_ConcurrentCachedReads(t *testing.T) {
	container := newTestContainer(t)
	st := testsupport.NewMemoryStore(testsupport.PersonModel())
	for i := 0; i < 100; i++ {
		st.Seed(&person{ID: fmt.Sprintf("user-%d", i), CN: fmt.Sprintf("user-%d", i)})
	}
	cached := NewCachedService[*person](container, NewService[*person](container, st, testsupport.PersonModel()))
	ctx := context.Background()

	const workers = 50
	const opsPerWorker = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers*opsPerWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < opsPerWorker; j++ {
				id := fmt.Sprintf("user-%d", (worker*opsPerWorker+j)%100)
				rec, err := cached.Get(ctx, id)
				if err != nil {
					errs <- fmt.Errorf("worker %d Get(%s): %w", worker, id, err)
					continue
				}
				if rec.ID != id {
					errs <- fmt.Errorf("worker %d Get(%s) returned %s", worker, id, rec.ID)
				}
				if j%5 == 0 {
					if _, err := cached.Find(ctx, store.Criteria{"cn": id}); err != nil {
						errs <- fmt.Errorf("worker %d Find(%s): %w", worker, id, err)
					}
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	// Concurrent misses on one key may each reach the store once.
	if n := st.CallCount("FetchByID"); n < 100 || n > workers*opsPerWorker {
		t.Errorf("unexpected FetchByID count %d", n)
	}

	st.ClearCalls()
	for i := 0; i < 100; i++ {
		if _, err := cached.Get(ctx, fmt.Sprintf("user-%d", i)); err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
	}
	if n := st.CallCount("FetchByID"); n != 0 {
		t.Errorf("every id should be cached after the concurrent run, got %d calls", n)
	}
}
