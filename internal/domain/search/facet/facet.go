// Package facet holds value histograms over a filtered garden set.
package facet

// Field is a facetable garden attribute.
type Field string

const (
	Tags    Field = "tags"
	Authors Field = "authors"
	Year    Field = "year"
)

// Fields lists every facet computed for a search, in response order.
var Fields = []Field{Tags, Authors, Year}

// Counts maps an observed value to the number of gardens carrying it.
// Values that never occur are absent.
type Counts map[string]int

// Facets groups counts per field.
type Facets map[Field]Counts

// Get returns the counts for a field, never nil.
func (f Facets) Get(field Field) Counts {
	if c, ok := f[field]; ok && c != nil {
		return c
	}
	return Counts{}
}
