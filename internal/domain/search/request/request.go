package request

import (
	"strings"

	"github.com/garden-ai/garden-catalog/internal/domain"
	"github.com/garden-ai/garden-catalog/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed free-text query length.
	MaxQueryLength = 1024
	DefaultLimit   = 10
	MaxLimit       = 100
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// sortable lists the fields a search may be ordered by.
var sortable = map[string]bool{
	"title":      true,
	"year":       true,
	"doi":        true,
	"created_at": true,
}

// Sort is a validated ordering clause.
type Sort struct {
	field string
	order Order
}

// NewSort validates the field name and order. An empty order means ascending.
func NewSort(field, order string) (Sort, error) {
	if !sortable[field] {
		return Sort{}, &domain.InvalidSortError{What: "field", Value: field}
	}
	o := Order(strings.ToLower(order))
	switch o {
	case "":
		o = Asc
	case Asc, Desc:
	default:
		return Sort{}, &domain.InvalidSortError{What: "order", Value: order}
	}
	return Sort{field: field, order: o}, nil
}

// Field returns the sort field.
func (s Sort) Field() string { return s.field }

// Order returns the sort direction.
func (s Sort) Order() Order { return s.order }

// Request is a validated garden search.
type Request struct {
	query   string
	filters []filter.Filter
	offset  int
	limit   int
	sort    *Sort
}

// New validates pagination bounds and the query length.
// A blank query disables relevance ranking.
func New(query string, filters []filter.Filter, offset, limit int, sort *Sort) (Request, error) {
	query = strings.TrimSpace(query)
	if len(query) > MaxQueryLength {
		return Request{}, domain.InvalidRequestf("query too long (max %d chars)", MaxQueryLength)
	}
	if len(filters) > filter.MaxFilters {
		return Request{}, domain.InvalidRequestf("too many filters (max %d)", filter.MaxFilters)
	}
	if offset < 0 {
		return Request{}, domain.InvalidRequestf("offset must be >= 0, got %d", offset)
	}
	if limit < 1 || limit > MaxLimit {
		return Request{}, domain.InvalidRequestf("limit must be between 1 and %d, got %d", MaxLimit, limit)
	}
	return Request{query: query, filters: filters, offset: offset, limit: limit, sort: sort}, nil
}

// Query returns the free-text query (empty when not ranking).
func (r *Request) Query() string { return r.query }

// HasQuery reports whether the search is ranked.
func (r *Request) HasQuery() bool { return r.query != "" }

// Filters returns the structured filters.
func (r *Request) Filters() []filter.Filter { return r.filters }

// Offset returns the number of results to skip.
func (r *Request) Offset() int { return r.offset }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Sort returns the explicit ordering, or nil.
func (r *Request) Sort() *Sort { return r.sort }
