package service

import (
	"github.com/goliatone/go-servicelayer/pagination"
	"github.com/goliatone/go-servicelayer/store"
)

// PageRequest holds the arguments of Paginate.
type PageRequest struct {
	Page     int
	PerPage  int
	OrderBy  string
	Desc     bool
	FilterBy store.Criteria
	ErrorOut bool
}

// PageOption adjusts a PageRequest.
type PageOption func(*PageRequest)

// NewPageRequest applies opts on top of page 1, ten per page, ascending by id, no
// filter, and out-of-range pages reported as NotFound.
func NewPageRequest(opts ...PageOption) PageRequest {
	req := PageRequest{
		Page:     pagination.DefaultPage,
		PerPage:  pagination.DefaultPerPage,
		ErrorOut: true,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

func (r PageRequest) normalized() PageRequest {
	if r.Page < 1 {
		r.Page = pagination.DefaultPage
	}
	if r.PerPage < 1 {
		r.PerPage = pagination.DefaultPerPage
	}
	return r
}

func Page(n int) PageOption { return func(r *PageRequest) { r.Page = n } }

func PerPage(n int) PageOption { return func(r *PageRequest) { r.PerPage = n } }

// OrderBy orders by a field name. The default is the model's IDField.
func OrderBy(field string) PageOption { return func(r *PageRequest) { r.OrderBy = field } }

func Desc() PageOption { return func(r *PageRequest) { r.Desc = true } }

func FilterBy(criteria store.Criteria) PageOption {
	return func(r *PageRequest) { r.FilterBy = criteria }
}

// ErrorOut controls whether out-of-range pages fail with NotFound.
func ErrorOut(enabled bool) PageOption { return func(r *PageRequest) { r.ErrorOut = enabled } }
