package sqlstore

import (
	"sort"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-servicelayer/store"
)

// Condition is a column equality test.
type Condition struct {
	Column string
	Value  any
}

// InCondition matches a column against a set of values.
type InCondition struct {
	Column string
	Values []string
}

// Query describes a select before it is turned into bun criteria.
type Query struct {
	Where   []Condition
	In      *InCondition
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Criteria returns the select criteria applying q, in a fixed order: filters, ordering,
// then limit and offset.
func (q Query) Criteria() []repository.SelectCriteria {
	var criteria []repository.SelectCriteria

	for _, c := range q.Where {
		c := c
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where("?TableAlias.? = ?", bun.Ident(c.Column), c.Value)
		})
	}

	if q.In != nil {
		in := *q.In
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where("?TableAlias.? IN (?)", bun.Ident(in.Column), bun.In(in.Values))
		})
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		col := q.OrderBy
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.OrderExpr("?TableAlias.? "+dir, bun.Ident(col))
		})
	}

	if q.Limit > 0 {
		limit, offset := q.Limit, q.Offset
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Limit(limit).Offset(offset)
		})
	}

	return criteria
}

func sortedKeys(c store.Criteria) []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
