// Package ldapstore adapts a directory subtree to store.RecordStore.
//
// Entries live directly below Config.BaseDN and are named by Config.NamingAttribute.
// Attributes are sparse: an empty value removes the attribute instead of storing an
// empty string, and records may be looked up either by full DN or by the bare value
// of their naming attribute. Directories have no server-side paging here, so services
// paginate the full listing in memory.
package ldapstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-servicelayer/serviceerr"
	"github.com/goliatone/go-servicelayer/store"
)

// Conn is the subset of *ldap.Conn used by the store.
type Conn interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
}

var (
	_ Conn                   = (*ldap.Conn)(nil)
	_ store.RecordStore[any] = (*Store[any])(nil)
	_ store.SparseStore      = (*Store[any])(nil)
	_ store.IDCanonicalizer  = (*Store[any])(nil)
)

// Store is the directory record store.
type Store[T any] struct {
	conn   Conn
	model  *store.Model[T]
	cfg    Config
	naming store.Field[T]
	logger zerolog.Logger
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithLogger sets the logger used for directory operations.
func WithLogger[T any](logger zerolog.Logger) Option[T] {
	return func(s *Store[T]) { s.logger = logger }
}

// New binds model to the subtree described by cfg. The model must map a field to
// cfg.NamingAttribute.
func New[T any](conn Conn, model *store.Model[T], cfg Config, opts ...Option[T]) (*Store[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store[T]{conn: conn, model: model, cfg: cfg, logger: zerolog.Nop()}
	found := false
	for _, f := range model.Fields {
		if strings.EqualFold(f.Attribute, cfg.NamingAttribute) {
			s.naming, found = f, true
			break
		}
	}
	if !found {
		return nil, serviceerr.Validation(
			fmt.Sprintf("%s has no field for naming attribute %s", model.Name, cfg.NamingAttribute),
			map[string]string{"naming_attribute": "not mapped by the model"},
		)
	}

	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("store", "ldap").Str("base_dn", cfg.BaseDN).Logger()
	return s, nil
}

// SupportsNativePagination is always false for directory stores.
func (s *Store[T]) SupportsNativePagination() bool { return false }

// SparseAttributes is always true: empty strings mean "no such attribute".
func (s *Store[T]) SparseAttributes() bool { return true }

// CanonicalID turns a bare naming value into the entry's DN. DNs are returned as is.
func (s *Store[T]) CanonicalID(id string) string {
	if id == "" || isDN(id) {
		return id
	}
	return buildDN(s.cfg.NamingAttribute, id, s.cfg.BaseDN)
}

// Create builds an unsaved record and computes its DN.
func (s *Store[T]) Create(ctx context.Context, attrs map[string]any) (T, error) {
	var zero T
	rec, err := s.model.Build(attrs)
	if err != nil {
		return zero, err
	}
	if err := s.model.Validate(rec); err != nil {
		return zero, err
	}
	dn, err := s.computeDN(rec)
	if err != nil {
		return zero, err
	}
	s.model.SetID(rec, dn)
	return rec, nil
}

// Insert adds a new entry. An existing entry with the same DN is a store error.
func (s *Store[T]) Insert(ctx context.Context, record T) (T, error) {
	var zero T
	dn, err := s.dnOf(record)
	if err != nil {
		return zero, err
	}

	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", s.cfg.ObjectClasses)
	for _, f := range s.model.Fields {
		if vals := attrValues(f.Get(record)); len(vals) > 0 {
			req.Attribute(f.Attribute, vals)
		}
	}

	if err := s.conn.Add(req); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists) {
			return zero, serviceerr.StoreError(err, "%s already exists", dn)
		}
		return zero, serviceerr.StoreError(err, "add %s", dn)
	}
	s.model.SetID(record, dn)
	s.logger.Debug().Str("dn", dn).Msg("entry added")
	return record, nil
}

// Persist replaces every mapped attribute of an existing entry, or adds the entry when
// it does not exist yet.
func (s *Store[T]) Persist(ctx context.Context, record T) (T, error) {
	var zero T
	dn, err := s.dnOf(record)
	if err != nil {
		return zero, err
	}

	exists, err := s.exists(dn)
	if err != nil {
		return zero, err
	}
	if !exists {
		return s.Insert(ctx, record)
	}

	req := ldap.NewModifyRequest(dn, nil)
	for _, f := range s.model.Fields {
		if strings.EqualFold(f.Attribute, s.cfg.NamingAttribute) {
			continue
		}
		vals := attrValues(f.Get(record))
		if vals == nil {
			vals = []string{}
		}
		req.Replace(f.Attribute, vals)
	}

	if err := s.conn.Modify(req); err != nil {
		return zero, serviceerr.StoreError(err, "modify %s", dn)
	}
	s.model.SetID(record, dn)
	s.logger.Debug().Str("dn", dn).Int("attributes", len(req.Changes)).Msg("entry modified")
	return record, nil
}

// FetchByID reads one entry by DN or bare naming value.
func (s *Store[T]) FetchByID(ctx context.Context, id string) (T, error) {
	var zero T
	dn := s.CanonicalID(id)
	if dn == "" {
		return zero, serviceerr.NotFound("%s with empty id not found", s.model.Name)
	}

	entries, err := s.search(dn, ldap.ScopeBaseObject, s.classFilter())
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return zero, serviceerr.NotFound("%s %q not found", s.model.Name, id)
		}
		return zero, err
	}
	if len(entries) == 0 {
		return zero, serviceerr.NotFound("%s %q not found", s.model.Name, id)
	}
	return s.fromEntry(entries[0])
}

// FetchAll lists every entry of the managed object classes below the base DN.
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	return s.list(s.classFilter())
}

// FetchMany lists the entries named by any of ids.
func (s *Store[T]) FetchMany(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	var or strings.Builder
	or.WriteString("(|")
	for _, id := range ids {
		value, err := rdnValue(s.CanonicalID(id), s.cfg.NamingAttribute)
		if err != nil {
			continue
		}
		fmt.Fprintf(&or, "(%s=%s)", s.cfg.NamingAttribute, ldap.EscapeFilter(value))
	}
	or.WriteString(")")
	if or.Len() == 3 {
		return []T{}, nil
	}
	return s.list(and(s.classFilter(), or.String()))
}

// Filter lists the entries matching every criteria entry. An empty value matches
// entries without the attribute and a list matches entries holding every value.
func (s *Store[T]) Filter(ctx context.Context, criteria store.Criteria) ([]T, error) {
	parts := []string{s.classFilter()}
	for _, k := range sortedKeys(criteria) {
		f, ok := s.model.Field(k)
		if !ok {
			return nil, serviceerr.Validation(
				fmt.Sprintf("%s has no field %q", s.model.Name, k),
				map[string]string{k: "unknown field"},
			)
		}
		vals := attrValues(criteria[k])
		if len(vals) == 0 {
			parts = append(parts, fmt.Sprintf("(!(%s=*))", f.Attribute))
			continue
		}
		for _, v := range vals {
			parts = append(parts, fmt.Sprintf("(%s=%s)", f.Attribute, ldap.EscapeFilter(v)))
		}
	}
	return s.list(and(parts...))
}

// Delete removes the entry. A missing entry is a store error.
func (s *Store[T]) Delete(ctx context.Context, record T) error {
	dn, err := s.dnOf(record)
	if err != nil {
		return err
	}
	if err := s.conn.Del(ldap.NewDelRequest(dn, nil)); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return serviceerr.StoreError(err, "%s does not exist", dn)
		}
		return serviceerr.StoreError(err, "delete %s", dn)
	}
	s.logger.Debug().Str("dn", dn).Msg("entry deleted")
	return nil
}

func (s *Store[T]) list(filter string) ([]T, error) {
	entries, err := s.search(s.cfg.BaseDN, ldap.ScopeWholeSubtree, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		rec, err := s.fromEntry(e)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store[T]) search(base string, scope int, filter string) ([]*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		base, scope, ldap.NeverDerefAliases, 0, 0, false,
		filter, s.attributes(), nil,
	)
	res, err := s.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, err
		}
		return nil, serviceerr.StoreError(err, "search %s", filter)
	}
	s.logger.Debug().Str("base", base).Str("filter", filter).Int("entries", len(res.Entries)).Msg("search")
	return res.Entries, nil
}

func (s *Store[T]) exists(dn string) (bool, error) {
	entries, err := s.search(dn, ldap.ScopeBaseObject, s.classFilter())
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return false, nil
		}
		return false, err
	}
	return len(entries) > 0, nil
}

func (s *Store[T]) fromEntry(e *ldap.Entry) (T, error) {
	rec := s.model.New()
	s.model.SetID(rec, e.DN)
	for _, f := range s.model.Fields {
		vals := e.GetEqualFoldAttributeValues(f.Attribute)
		if len(vals) == 0 {
			continue
		}
		if err := f.Set(rec, vals); err != nil {
			var zero T
			return zero, serviceerr.StoreError(err, "decode %s of %s", f.Attribute, e.DN)
		}
	}
	return rec, nil
}

func (s *Store[T]) computeDN(rec T) (string, error) {
	vals := attrValues(s.naming.Get(rec))
	if len(vals) == 0 {
		return "", serviceerr.Validation(
			fmt.Sprintf("%s needs a %s to be named", s.model.Name, s.naming.Name),
			map[string]string{s.naming.Name: "cannot be blank"},
		)
	}
	return buildDN(s.cfg.NamingAttribute, vals[0], s.cfg.BaseDN), nil
}

func (s *Store[T]) dnOf(rec T) (string, error) {
	if dn := s.model.ID(rec); dn != "" {
		return dn, nil
	}
	return s.computeDN(rec)
}

func (s *Store[T]) classFilter() string {
	parts := make([]string, 0, len(s.cfg.ObjectClasses))
	for _, oc := range s.cfg.ObjectClasses {
		parts = append(parts, fmt.Sprintf("(objectClass=%s)", ldap.EscapeFilter(oc)))
	}
	return and(parts...)
}

func (s *Store[T]) attributes() []string {
	attrs := make([]string, 0, len(s.model.Fields))
	for _, f := range s.model.Fields {
		attrs = append(attrs, f.Attribute)
	}
	return attrs
}

func and(parts ...string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(&" + strings.Join(parts, "") + ")"
}

// attrValues converts a field value to directory values. Empty strings and zero
// integers have no directory representation.
func attrValues(v any) []string {
	switch vv := v.(type) {
	case nil:
		return nil
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	case []string:
		var out []string
		for _, s := range vv {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		var out []string
		for _, e := range vv {
			out = append(out, attrValues(e)...)
		}
		return out
	case int:
		if vv == 0 {
			return nil
		}
		return []string{strconv.Itoa(vv)}
	default:
		return []string{fmt.Sprint(vv)}
	}
}

func sortedKeys(c store.Criteria) []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
