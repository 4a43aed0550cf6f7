package result

import (
	"github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/search/facet"
)

// Page is one page of a garden search.
type Page struct {
	total   int
	offset  int
	gardens []garden.Garden
	facets  facet.Facets
}

// New creates a search page.
func New(total, offset int, gardens []garden.Garden, facets facet.Facets) Page {
	if gardens == nil {
		gardens = []garden.Garden{}
	}
	return Page{total: total, offset: offset, gardens: gardens, facets: facets}
}

// Total returns the number of matches before pagination.
func (p *Page) Total() int { return p.total }

// Offset returns the number of skipped matches.
func (p *Page) Offset() int { return p.offset }

// Count returns the number of gardens on this page.
func (p *Page) Count() int { return len(p.gardens) }

// Gardens returns the page content.
func (p *Page) Gardens() []garden.Garden { return p.gardens }

// Facets returns the histograms over the filtered set.
func (p *Page) Facets() facet.Facets { return p.facets }
