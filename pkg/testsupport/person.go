package testsupport

import (
	"testing"

	"github.com/goliatone/go-servicelayer/store"
)

// PersonRecord is the record type used by service level tests.
type PersonRecord struct {
	ID          string
	CN          string
	LastName    string
	Shell       string
	Phone       []string
	Home        string
	Description string
}

// PersonModel maps PersonRecord with the directory attribute names of the people
// fixture. cn is required.
func PersonModel() *store.Model[*PersonRecord] {
	return store.NewModel(
		func() *PersonRecord { return &PersonRecord{} },
		func(p *PersonRecord) string { return p.ID },
		func(p *PersonRecord, id string) { p.ID = id },
		store.StringField("cn", "cn", func(p *PersonRecord) *string { return &p.CN }),
		store.StringField("lastname", "sn", func(p *PersonRecord) *string { return &p.LastName }),
		store.StringField("shell", "loginShell", func(p *PersonRecord) *string { return &p.Shell }),
		store.StringsField("phone", "telephoneNumber", func(p *PersonRecord) *[]string { return &p.Phone }),
		store.StringField("home", "homeDirectory", func(p *PersonRecord) *string { return &p.Home }),
		store.StringField("description", "description", func(p *PersonRecord) *string { return &p.Description }),
	).Named("people").Require("cn")
}

// Record converts a fixture entry, using the cn as id.
func (p Person) Record() *PersonRecord {
	return &PersonRecord{
		ID:          p.CN,
		CN:          p.CN,
		LastName:    p.LastName,
		Shell:       p.Shell,
		Phone:       append([]string(nil), p.Phone...),
		Home:        p.Home,
		Description: p.Description,
	}
}

// PeopleStore returns a MemoryStore seeded with the people fixture.
func PeopleStore(t *testing.T) *MemoryStore[*PersonRecord] {
	t.Helper()

	people := People(t)
	records := make([]*PersonRecord, 0, len(people))
	for _, p := range people {
		records = append(records, p.Record())
	}
	return NewMemoryStore(PersonModel()).Seed(records...)
}
