// Package pagination provides the Pagination value returned by services and the page
// window used to render navigation links.
package pagination

import (
	"iter"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Defaults applied when a caller does not ask for a specific page size.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// Gap is yielded by IterPages between two non-adjacent page numbers.
const Gap = 0

// Pagination is one page of a result sequence plus the total number of records.
// It is never mutated after construction.
type Pagination[T any] struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Items   []T `json:"items"`
}

// New builds a Pagination value.
func New[T any](page, perPage, total int, items []T) *Pagination[T] {
	return &Pagination[T]{Page: page, PerPage: perPage, Total: total, Items: items}
}

// Pages is the total number of pages.
func (p *Pagination[T]) Pages() int {
	if p.PerPage <= 0 || p.Total <= 0 {
		return 0
	}
	return pageCount(p.Total, p.PerPage)
}

func pageCount(total, perPage int) int {
	n := total / perPage
	if total%perPage != 0 {
		n++
	}
	return n
}

func (p *Pagination[T]) HasPrev() bool { return p.Page > 1 }

func (p *Pagination[T]) HasNext() bool { return p.Page < p.Pages() }

// PrevNum is the previous page number, or 0 on the first page.
func (p *Pagination[T]) PrevNum() int {
	if !p.HasPrev() {
		return 0
	}
	return p.Page - 1
}

// NextNum is the next page number, or 0 on the last page.
func (p *Pagination[T]) NextNum() int {
	if !p.HasNext() {
		return 0
	}
	return p.Page + 1
}

// Window controls which page numbers IterPages yields.
type Window struct {
	LeftEdge     int
	LeftCurrent  int
	RightCurrent int
	RightEdge    int
}

// DefaultWindow shows two pages at each edge, two before the current page and four after it.
func DefaultWindow() Window {
	return Window{LeftEdge: 2, LeftCurrent: 2, RightCurrent: 5, RightEdge: 2}
}

// IterPages yields the page numbers worth rendering as links, with Gap inserted wherever
// two consecutive numbers are not adjacent. The sequence can be ranged over repeatedly.
func (p *Pagination[T]) IterPages(w Window) iter.Seq[int] {
	pages := p.Pages()
	return func(yield func(int) bool) {
		last := 0
		for n := 1; n <= pages; n++ {
			if !w.includes(n, p.Page, pages) {
				continue
			}
			if last+1 != n {
				if !yield(Gap) {
					return
				}
			}
			if !yield(n) {
				return
			}
			last = n
		}
	}
}

func (w Window) includes(n, page, pages int) bool {
	return n <= w.LeftEdge ||
		(page-w.LeftCurrent-1 < n && n < page+w.RightCurrent) ||
		pages-n < w.RightEdge
}

// Slice returns the window of items for page, 1-indexed. Out of range pages yield an
// empty slice.
func Slice[T any](items []T, page, perPage int) []T {
	if page < 1 || perPage < 1 {
		return []T{}
	}
	if page > pageCount(len(items), perPage) {
		return []T{}
	}
	start := (page - 1) * perPage
	end := start + min(perPage, len(items)-start)
	return items[start:end]
}

// Offset is the index of the first item of page. It saturates at math.MaxInt for pages
// too far out to address.
func Offset(page, perPage int) int {
	if page < 1 || perPage < 1 {
		return 0
	}
	if Overflows(page, perPage) {
		return math.MaxInt
	}
	return (page - 1) * perPage
}

// Overflows reports whether the offset of page cannot be represented as an int.
func Overflows(page, perPage int) bool {
	return perPage > 0 && page-1 > math.MaxInt/perPage
}

// ValidateParams checks that page and perPage are positive.
func ValidateParams(page, perPage int) error {
	return validation.Errors{
		"page":     validation.Validate(page, validation.Required.Error("must be a positive integer"), validation.Min(1).Error("must be a positive integer")),
		"per_page": validation.Validate(perPage, validation.Required.Error("must be a positive integer"), validation.Min(1).Error("must be a positive integer")),
	}.Filter()
}
