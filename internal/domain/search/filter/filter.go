package filter

import "github.com/garden-ai/garden-catalog/internal/domain"

// Limits on a single search request.
const (
	MaxFilters         = 16
	MaxValuesPerFilter = 32
	MaxValueLength     = 256
)

// Filter restricts results to entities whose field matches any of the values.
type Filter struct {
	field  string
	values []string
}

// New validates and creates a Filter. Whether the field exists is decided
// by the storage layer, which owns the list of filterable columns.
func New(field string, values []string) (Filter, error) {
	if field == "" {
		return Filter{}, domain.InvalidRequestf("filter field_name is required")
	}
	if len(values) > MaxValuesPerFilter {
		return Filter{}, domain.InvalidRequestf("too many values for filter %q (max %d)", field, MaxValuesPerFilter)
	}
	for _, v := range values {
		if len(v) > MaxValueLength {
			return Filter{}, domain.InvalidRequestf("filter value for %q too long (max %d)", field, MaxValueLength)
		}
	}
	vals := make([]string, len(values))
	copy(vals, values)
	return Filter{field: field, values: vals}, nil
}

// Field returns the filtered field name.
func (f Filter) Field() string { return f.field }

// Values returns the accepted values; a match on any one of them is enough.
func (f Filter) Values() []string { return f.values }

// IsEmpty reports whether the filter carries no values and therefore matches everything.
func (f Filter) IsEmpty() bool { return len(f.values) == 0 }
