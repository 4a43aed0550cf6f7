package search

import (
	"context"
	"fmt"

	"github.com/garden-ai/garden-catalog/internal/domain/search/facet"
	"github.com/garden-ai/garden-catalog/internal/domain/search/filter"
)

// facetQueries count each value once per garden over the filtered set.
// %s is the WHERE clause of the filters.
var facetQueries = map[facet.Field]string{
	facet.Tags: `WITH filtered AS (SELECT g.id, g.tags FROM gardens g%s)
		SELECT t.v, count(DISTINCT f.id) FROM filtered f CROSS JOIN LATERAL unnest(f.tags) AS t(v)
		GROUP BY t.v`,
	facet.Authors: `WITH filtered AS (SELECT g.id, g.authors FROM gardens g%s)
		SELECT a.v, count(DISTINCT f.id) FROM filtered f CROSS JOIN LATERAL unnest(f.authors) AS a(v)
		GROUP BY a.v`,
	facet.Year: `WITH filtered AS (SELECT g.id, g.year FROM gardens g%s)
		SELECT f.year, count(*) FROM filtered f WHERE f.year IS NOT NULL
		GROUP BY f.year`,
}

// Facet returns the value histogram of one field over the filtered gardens.
// The free-text query never narrows facets.
func (r *Repo) Facet(ctx context.Context, field facet.Field, filters []filter.Filter) (facet.Counts, error) {
	tmpl, ok := facetQueries[field]
	if !ok {
		return nil, fmt.Errorf("unknown facet %q", field)
	}
	where, args, err := whereClause(filters, nil)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Conn(ctx).Query(ctx, fmt.Sprintf(tmpl, where), args...)
	if err != nil {
		return nil, fmt.Errorf("facet %s: %w", field, err)
	}
	defer rows.Close()

	counts := facet.Counts{}
	for rows.Next() {
		var (
			value string
			n     int
		)
		if err := rows.Scan(&value, &n); err != nil {
			return nil, fmt.Errorf("scan facet %s: %w", field, err)
		}
		counts[value] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facet %s: %w", field, err)
	}
	return counts, nil
}
