package search

import (
	"fmt"
	"strings"

	"github.com/garden-ai/garden-catalog/internal/domain"
	"github.com/garden-ai/garden-catalog/internal/domain/search/filter"
)

// column is a filterable garden attribute. expr is trusted SQL.
type column struct {
	expr  string
	array bool
}

// filterable is the closed set of fields a search may filter on.
var filterable = map[string]column{
	"title":        {expr: "g.title"},
	"description":  {expr: "g.description"},
	"authors":      {expr: "g.authors", array: true},
	"contributors": {expr: "g.contributors", array: true},
	"tags":         {expr: "g.tags", array: true},
	"year":         {expr: "g.year"},
	"doi":          {expr: "g.doi"},
	"language":     {expr: "g.language"},
	"version":      {expr: "g.version"},
	"doi_is_draft": {expr: "g.doi_is_draft"},
}

// FilterableFields returns the names accepted by ValidateFilters.
func FilterableFields() []string {
	out := make([]string, 0, len(filterable))
	for name := range filterable {
		out = append(out, name)
	}
	return out
}

// ValidateFilters rejects the first filter naming an unknown field.
func ValidateFilters(filters []filter.Filter) error {
	for _, f := range filters {
		if _, ok := filterable[f.Field()]; !ok {
			return domain.NewInvalidFilterField(f.Field())
		}
	}
	return nil
}

// whereClause renders the filters as a WHERE clause, binding every value as a
// parameter numbered after the args already present. It returns "" when no
// filter constrains the result.
func whereClause(filters []filter.Filter, args []any) (string, []any, error) {
	var conds []string
	for _, f := range filters {
		col, ok := filterable[f.Field()]
		if !ok {
			return "", nil, domain.NewInvalidFilterField(f.Field())
		}
		if f.IsEmpty() {
			continue
		}

		target := col.expr + "::text"
		if col.array {
			target = "array_to_string(" + col.expr + ", ' ')"
		}

		alts := make([]string, 0, len(f.Values()))
		for _, v := range f.Values() {
			args = append(args, v)
			alts = append(alts, fmt.Sprintf(
				"to_tsvector('simple', coalesce(%s, '')) @@ plainto_tsquery('simple', $%d)", target, len(args)))
		}
		conds = append(conds, "("+strings.Join(alts, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// ValidateFilters lets the search service reject unknown fields before any query runs.
func (r *Repo) ValidateFilters(filters []filter.Filter) error { return ValidateFilters(filters) }
