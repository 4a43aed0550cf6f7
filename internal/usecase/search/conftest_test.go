package search

import (
	"context"
	"testing"

	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/search/facet"
	"github.com/garden-ai/garden-catalog/internal/domain/search/filter"
	"github.com/garden-ai/garden-catalog/internal/domain/search/request"
)

type mockRepo struct {
	validateFn func(filters []filter.Filter) error
	ensureFn   func(ctx context.Context) error
	countFn    func(ctx context.Context, req *request.Request) (int, error)
	pageFn     func(ctx context.Context, req *request.Request) ([]domgarden.Garden, error)
	facetFn    func(ctx context.Context, field facet.Field, filters []filter.Filter) (facet.Counts, error)
}

func (m *mockRepo) ValidateFilters(filters []filter.Filter) error {
	if m.validateFn != nil {
		return m.validateFn(filters)
	}
	return nil
}

func (m *mockRepo) EnsureRankFunction(ctx context.Context) error {
	if m.ensureFn != nil {
		return m.ensureFn(ctx)
	}
	return nil
}

func (m *mockRepo) Count(ctx context.Context, req *request.Request) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, req)
	}
	return 0, nil
}

func (m *mockRepo) Page(ctx context.Context, req *request.Request) ([]domgarden.Garden, error) {
	if m.pageFn != nil {
		return m.pageFn(ctx, req)
	}
	return nil, nil
}

func (m *mockRepo) Facet(ctx context.Context, field facet.Field, filters []filter.Filter) (facet.Counts, error) {
	if m.facetFn != nil {
		return m.facetFn(ctx, field, filters)
	}
	return facet.Counts{}, nil
}

type mockEntrypoints struct {
	attachFn func(ctx context.Context, gardens []domgarden.Garden) error
}

func (m *mockEntrypoints) AttachEntrypoints(ctx context.Context, gardens []domgarden.Garden) error {
	if m.attachFn != nil {
		return m.attachFn(ctx, gardens)
	}
	return nil
}

func mustRequest(t *testing.T, q string, filters []filter.Filter, offset, limit int) *request.Request {
	t.Helper()
	r, err := request.New(q, filters, offset, limit, nil)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func mustFilter(t *testing.T, field string, values ...string) filter.Filter {
	t.Helper()
	f, err := filter.New(field, values)
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	return f
}
