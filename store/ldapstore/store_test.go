package ldapstore

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/goliatone/go-servicelayer/pkg/testsupport"
	"github.com/goliatone/go-servicelayer/serviceerr"
	"github.com/goliatone/go-servicelayer/store"
)

type person struct {
	DN          string
	CN          string
	LastName    string
	Shell       string
	Phone       []string
	Home        string
	Description string
}

func personModel() *store.Model[*person] {
	return store.NewModel(
		func() *person { return &person{} },
		func(p *person) string { return p.DN },
		func(p *person, dn string) { p.DN = dn },
		store.StringField("cn", "cn", func(p *person) *string { return &p.CN }),
		store.StringField("lastname", "sn", func(p *person) *string { return &p.LastName }),
		store.StringField("shell", "loginShell", func(p *person) *string { return &p.Shell }),
		store.StringsField("phone", "telephoneNumber", func(p *person) *[]string { return &p.Phone }),
		store.StringField("home", "homeDirectory", func(p *person) *string { return &p.Home }),
		store.StringField("description", "description", func(p *person) *string { return &p.Description }),
	).Require("cn").WithIDField("dn")
}

func newPeopleStore(t *testing.T) (*Store[*person], *fakeDirectory) {
	t.Helper()

	dir := newFakeDirectory()
	s, err := New[*person](dir, personModel(), DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	for _, p := range testsupport.People(t) {
		rec, err := s.Create(ctx, p.Params())
		if err != nil {
			t.Fatalf("Create(%s) failed: %v", p.CN, err)
		}
		if _, err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert(%s) failed: %v", p.CN, err)
		}
	}
	dir.clearCalls()
	return s, dir
}

func names(people []*person) []string {
	out := make([]string, 0, len(people))
	for _, p := range people {
		out = append(out, p.CN)
	}
	sort.Strings(out)
	return out
}

func TestStore_Capabilities(t *testing.T) {
	s, _ := newPeopleStore(t)

	if s.SupportsNativePagination() {
		t.Error("directory store should not paginate natively")
	}
	if !store.IsSparse(s) {
		t.Error("directory store should report sparse attributes")
	}
}

func TestStore_FetchAll(t *testing.T) {
	s, dir := newPeopleStore(t)

	people, err := s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() failed: %v", err)
	}
	if len(people) != 4 {
		t.Fatalf("expected 4 people, got %d", len(people))
	}
	if calls := dir.getCalls(); len(calls) != 1 || calls[0] != "Search" {
		t.Errorf("expected a single search, got %v", calls)
	}
}

func TestStore_FetchByID(t *testing.T) {
	s, _ := newPeopleStore(t)
	ctx := context.Background()

	for _, id := range []string{"jack", "cn=jack,dc=example,dc=com", "CN=jack,DC=example,DC=com"} {
		jack, err := s.FetchByID(ctx, id)
		if err != nil {
			t.Fatalf("FetchByID(%q) failed: %v", id, err)
		}
		if jack.CN != "jack" || jack.Shell != "/bin/bash" || jack.LastName != "O'Neill" {
			t.Errorf("FetchByID(%q) = %+v", id, jack)
		}
	}

	sam, err := s.FetchByID(ctx, "sam")
	if err != nil {
		t.Fatalf("FetchByID(sam) failed: %v", err)
	}
	if !reflect.DeepEqual(sam.Phone, []string{"5559876543", "5550001111"}) {
		t.Errorf("expected both phone numbers, got %v", sam.Phone)
	}

	if _, err := s.FetchByID(ctx, "nobody"); !serviceerr.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, err := s.FetchByID(ctx, ""); !serviceerr.IsNotFound(err) {
		t.Errorf("expected NotFound for empty id, got %v", err)
	}
}

func TestStore_FetchMany(t *testing.T) {
	s, _ := newPeopleStore(t)
	ctx := context.Background()

	tests := []struct {
		ids  []string
		want []string
	}{
		{[]string{"sam"}, []string{"sam"}},
		{[]string{"sam", "jack"}, []string{"jack", "sam"}},
		{[]string{"cn=sam,dc=example,dc=com", "nobody"}, []string{"sam"}},
		{[]string{"nobody"}, []string{}},
		{nil, []string{}},
	}

	for _, tt := range tests {
		people, err := s.FetchMany(ctx, tt.ids)
		if err != nil {
			t.Fatalf("FetchMany(%v) failed: %v", tt.ids, err)
		}
		if got := names(people); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FetchMany(%v) = %v, want %v", tt.ids, got, tt.want)
		}
	}
}

func TestStore_Filter(t *testing.T) {
	s, _ := newPeopleStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		criteria store.Criteria
		want     []string
	}{
		{"empty criteria", store.Criteria{}, []string{"daniel", "jack", "sam", "tealc"}},
		{"shared shell", store.Criteria{"shell": "/bin/bash"}, []string{"daniel", "jack", "sam", "tealc"}},
		{"last name", store.Criteria{"lastname": "Carter"}, []string{"sam"}},
		{"conjunction", store.Criteria{"lastname": "Carter", "shell": "/bin/bash"}, []string{"sam"}},
		{"no match", store.Criteria{"lastname": "nobody"}, []string{}},
		{"missing attribute", store.Criteria{"description": ""}, []string{"daniel", "tealc"}},
		{"multi-valued", store.Criteria{"phone": "5550001111"}, []string{"sam"}},
		{"escaped wildcard", store.Criteria{"lastname": "C*"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			people, err := s.Filter(ctx, tt.criteria)
			if err != nil {
				t.Fatalf("Filter() failed: %v", err)
			}
			if got := names(people); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%v) = %v, want %v", tt.criteria, got, tt.want)
			}
		})
	}

	if _, err := s.Filter(ctx, store.Criteria{"shoe_size": "11"}); !serviceerr.IsValidation(err) {
		t.Errorf("expected validation error for unknown field, got %v", err)
	}
}

func TestStore_CreateComputesDN(t *testing.T) {
	s, dir := newPeopleStore(t)
	ctx := context.Background()

	george, err := s.Create(ctx, map[string]any{"cn": "george", "lastname": "Hammond"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if george.DN != "cn=george,dc=example,dc=com" {
		t.Errorf("unexpected dn %q", george.DN)
	}
	if calls := dir.getCalls(); len(calls) != 0 {
		t.Errorf("Create should not touch the directory, got %v", calls)
	}
	if _, err := s.FetchByID(ctx, "george"); !serviceerr.IsNotFound(err) {
		t.Errorf("expected unsaved record to be missing, got %v", err)
	}

	if _, err := s.Create(ctx, map[string]any{"lastname": "Nameless"}); !serviceerr.IsValidation(err) {
		t.Errorf("expected validation error without cn, got %v", err)
	}
}

func TestStore_InsertDuplicate(t *testing.T) {
	s, _ := newPeopleStore(t)
	ctx := context.Background()

	dup, err := s.Create(ctx, map[string]any{"cn": "sam", "lastname": "Hammond"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := s.Insert(ctx, dup); !serviceerr.IsStoreError(err) {
		t.Fatalf("expected store error for duplicate entry, got %v", err)
	}

	sam, _ := s.FetchByID(ctx, "sam")
	if sam.LastName != "Carter" {
		t.Errorf("duplicate insert changed the entry: %+v", sam)
	}
}

func TestStore_PersistModifiesEntry(t *testing.T) {
	s, dir := newPeopleStore(t)
	ctx := context.Background()

	jack, err := s.FetchByID(ctx, "jack")
	if err != nil {
		t.Fatalf("FetchByID() failed: %v", err)
	}
	jack.Shell = "/bin/zsh"
	jack.Description = ""
	jack.Phone = []string{"4242424242"}

	if _, err := s.Persist(ctx, jack); err != nil {
		t.Fatalf("Persist() failed: %v", err)
	}

	attrs := dir.attrs("cn=jack,dc=example,dc=com")
	if !reflect.DeepEqual(attrs["loginShell"], []string{"/bin/zsh"}) {
		t.Errorf("expected loginShell to be replaced, got %v", attrs["loginShell"])
	}
	if _, ok := attrs["description"]; ok {
		t.Error("expected description to be removed")
	}
	if !reflect.DeepEqual(attrs["telephoneNumber"], []string{"4242424242"}) {
		t.Errorf("expected phone to be replaced, got %v", attrs["telephoneNumber"])
	}

	reloaded, _ := s.FetchByID(ctx, "jack")
	if reloaded.Shell != "/bin/zsh" || reloaded.Description != "" {
		t.Errorf("unexpected reloaded entry %+v", reloaded)
	}
}

func TestStore_PersistAddsMissingEntry(t *testing.T) {
	s, _ := newPeopleStore(t)
	ctx := context.Background()

	george := &person{CN: "george", LastName: "Hammond"}
	saved, err := s.Persist(ctx, george)
	if err != nil {
		t.Fatalf("Persist() failed: %v", err)
	}
	if saved.DN != "cn=george,dc=example,dc=com" {
		t.Errorf("unexpected dn %q", saved.DN)
	}
	if _, err := s.FetchByID(ctx, "george"); err != nil {
		t.Errorf("expected george to be stored, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := newPeopleStore(t)
	ctx := context.Background()

	jack, _ := s.FetchByID(ctx, "jack")
	if err := s.Delete(ctx, jack); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := s.FetchByID(ctx, "jack"); !serviceerr.IsNotFound(err) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, jack); !serviceerr.IsStoreError(err) {
		t.Errorf("expected store error deleting a missing entry, got %v", err)
	}
}

func TestStore_CanonicalID(t *testing.T) {
	s, _ := newPeopleStore(t)

	tests := map[string]string{
		"jack":                      "cn=jack,dc=example,dc=com",
		"cn=jack,dc=example,dc=com": "cn=jack,dc=example,dc=com",
		"O'Neill, Jack":             `cn=O'Neill\, Jack,dc=example,dc=com`,
		"":                          "",
	}
	for in, want := range tests {
		if got := s.CanonicalID(in); got != want {
			t.Errorf("CanonicalID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeRDNValue(t *testing.T) {
	tests := map[string]string{
		"plain":   "plain",
		"a,b":     `a\,b`,
		"a+b=c":   `a\+b\=c`,
		" lead":   `\ lead`,
		"trail ":  `trail\ `,
		"#hash":   `\#hash`,
		"in#side": "in#side",
		`q"uote`:  `q\"uote`,
	}
	for in, want := range tests {
		if got := escapeRDNValue(in); got != want {
			t.Errorf("escapeRDNValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNew_RequiresNamingField(t *testing.T) {
	model := store.NewModel(
		func() *person { return &person{} },
		func(p *person) string { return p.DN },
		func(p *person, dn string) { p.DN = dn },
		store.StringField("lastname", "sn", func(p *person) *string { return &p.LastName }),
	)

	if _, err := New[*person](newFakeDirectory(), model, DefaultConfig()); !serviceerr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"ldaps", func(c *Config) { c.URL = "ldaps://directory:636" }, false},
		{"missing url", func(c *Config) { c.URL = "" }, true},
		{"http url", func(c *Config) { c.URL = "http://directory" }, true},
		{"missing base", func(c *Config) { c.BaseDN = "" }, true},
		{"no object classes", func(c *Config) { c.ObjectClasses = nil }, true},
		{"no naming attribute", func(c *Config) { c.NamingAttribute = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
