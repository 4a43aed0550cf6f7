package search

import (
	"context"

	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/search/facet"
	"github.com/garden-ai/garden-catalog/internal/domain/search/filter"
	"github.com/garden-ai/garden-catalog/internal/domain/search/request"
)

// Repository runs the search queries against the primary store.
type Repository interface {
	ValidateFilters(filters []filter.Filter) error
	EnsureRankFunction(ctx context.Context) error
	Count(ctx context.Context, req *request.Request) (int, error)
	Page(ctx context.Context, req *request.Request) ([]domgarden.Garden, error)
	Facet(ctx context.Context, field facet.Field, filters []filter.Filter) (facet.Counts, error)
}

// EntrypointLoader fills the entrypoints of a page of gardens.
type EntrypointLoader interface {
	AttachEntrypoints(ctx context.Context, gardens []domgarden.Garden) error
}
