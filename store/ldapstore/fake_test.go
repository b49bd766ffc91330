package ldapstore

import (
	"errors"
	"strings"
	"sync"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
)

// fakeDirectory is an in-memory Conn. Filters are compiled with ldap.CompileFilter and
// evaluated against the stored attributes.
type fakeDirectory struct {
	mu      sync.Mutex
	entries map[string]*fakeEntry
	order   []string
	calls   []string
}

type fakeEntry struct {
	dn    string
	attrs map[string][]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{entries: map[string]*fakeEntry{}}
}

func (d *fakeDirectory) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *fakeDirectory) getCalls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDirectory) clearCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

func (d *fakeDirectory) attrs(dn string) map[string][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[strings.ToLower(dn)]
	if !ok {
		return nil
	}
	return e.attrs
}

func noSuchObject(dn string) error {
	return ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object: "+dn))
}

func (d *fakeDirectory) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Search")

	filter, err := ldap.CompileFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	base := strings.ToLower(req.BaseDN)
	var candidates []*fakeEntry
	switch req.Scope {
	case ldap.ScopeBaseObject:
		e, ok := d.entries[base]
		if !ok {
			return nil, noSuchObject(req.BaseDN)
		}
		candidates = []*fakeEntry{e}
	default:
		for _, key := range d.order {
			if key == base || strings.HasSuffix(key, ","+base) {
				candidates = append(candidates, d.entries[key])
			}
		}
	}

	res := &ldap.SearchResult{}
	for _, e := range candidates {
		if matches(filter, e.attrs) {
			res.Entries = append(res.Entries, ldap.NewEntry(e.dn, copyAttrs(e.attrs)))
		}
	}
	return res, nil
}

func (d *fakeDirectory) Add(req *ldap.AddRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Add")

	key := strings.ToLower(req.DN)
	if _, ok := d.entries[key]; ok {
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("entry already exists"))
	}
	e := &fakeEntry{dn: req.DN, attrs: map[string][]string{}}
	for _, a := range req.Attributes {
		e.attrs[a.Type] = append([]string(nil), a.Vals...)
	}
	d.entries[key] = e
	d.order = append(d.order, key)
	return nil
}

func (d *fakeDirectory) Modify(req *ldap.ModifyRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Modify")

	e, ok := d.entries[strings.ToLower(req.DN)]
	if !ok {
		return noSuchObject(req.DN)
	}
	for _, c := range req.Changes {
		name := c.Modification.Type
		switch c.Operation {
		case ldap.ReplaceAttribute:
			if len(c.Modification.Vals) == 0 {
				delete(e.attrs, name)
			} else {
				e.attrs[name] = append([]string(nil), c.Modification.Vals...)
			}
		case ldap.AddAttribute:
			e.attrs[name] = append(e.attrs[name], c.Modification.Vals...)
		case ldap.DeleteAttribute:
			delete(e.attrs, name)
		}
	}
	return nil
}

func (d *fakeDirectory) Del(req *ldap.DelRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Del")

	key := strings.ToLower(req.DN)
	if _, ok := d.entries[key]; !ok {
		return noSuchObject(req.DN)
	}
	delete(d.entries, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

func matches(p *ber.Packet, attrs map[string][]string) bool {
	switch p.Tag {
	case ldap.FilterAnd:
		for _, c := range p.Children {
			if !matches(c, attrs) {
				return false
			}
		}
		return true
	case ldap.FilterOr:
		for _, c := range p.Children {
			if matches(c, attrs) {
				return true
			}
		}
		return false
	case ldap.FilterNot:
		return len(p.Children) == 1 && !matches(p.Children[0], attrs)
	case ldap.FilterPresent:
		return len(lookup(attrs, packetString(p))) > 0
	case ldap.FilterEqualityMatch:
		if len(p.Children) != 2 {
			return false
		}
		want := packetString(p.Children[1])
		for _, v := range lookup(attrs, packetString(p.Children[0])) {
			if strings.EqualFold(v, want) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func packetString(p *ber.Packet) string {
	if s, ok := p.Value.(string); ok {
		return s
	}
	return p.Data.String()
}

func lookup(attrs map[string][]string, name string) []string {
	for k, v := range attrs {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func copyAttrs(attrs map[string][]string) map[string][]string {
	out := make(map[string][]string, len(attrs))
	for k, v := range attrs {
		out[k] = append([]string(nil), v...)
	}
	return out
}
