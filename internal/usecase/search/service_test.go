package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/garden-ai/garden-catalog/internal/domain"
	domentry "github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/search/facet"
	"github.com/garden-ai/garden-catalog/internal/domain/search/filter"
	"github.com/garden-ai/garden-catalog/internal/domain/search/request"
)

// memRepo evaluates requests over an in-memory garden list, matching the
// SQL semantics closely enough for orchestration tests: the query matches
// authors, the title or an entrypoint title, filters match exact values.
// Query matching lives in repository/search; these tests cover orchestration.
func memRepo(gardens []domgarden.Garden) *mockRepo {
	matches := func(g *domgarden.Garden, q string, filters []filter.Filter) bool {
		if q != "" && !contains(g.Authors, q) && !strings.Contains(g.Title, q) && !entrypointTitleMatches(g, q) {
			return false
		}
		for _, f := range filters {
			if f.IsEmpty() {
				continue
			}
			ok := false
			for _, v := range f.Values() {
				switch f.Field() {
				case "tags":
					ok = ok || contains(g.Tags, v)
				case "authors":
					ok = ok || contains(g.Authors, v)
				case "year":
					ok = ok || g.Year == v
				}
			}
			if !ok {
				return false
			}
		}
		return true
	}
	selectAll := func(q string, filters []filter.Filter) []domgarden.Garden {
		var out []domgarden.Garden
		for i := range gardens {
			if matches(&gardens[i], q, filters) {
				out = append(out, gardens[i])
			}
		}
		return out
	}

	return &mockRepo{
		countFn: func(_ context.Context, req *request.Request) (int, error) {
			return len(selectAll(req.Query(), req.Filters())), nil
		},
		pageFn: func(_ context.Context, req *request.Request) ([]domgarden.Garden, error) {
			all := selectAll(req.Query(), req.Filters())
			if req.Offset() >= len(all) {
				return nil, nil
			}
			end := min(req.Offset()+req.Limit(), len(all))
			return all[req.Offset():end], nil
		},
		facetFn: func(_ context.Context, field facet.Field, filters []filter.Filter) (facet.Counts, error) {
			counts := facet.Counts{}
			for _, g := range selectAll("", filters) {
				switch field {
				case facet.Tags:
					for _, v := range g.Tags {
						counts[v]++
					}
				case facet.Authors:
					for _, v := range g.Authors {
						counts[v]++
					}
				case facet.Year:
					if g.Year != "" {
						counts[g.Year]++
					}
				}
			}
			return counts, nil
		},
	}
}

func entrypointTitleMatches(g *domgarden.Garden, q string) bool {
	for _, e := range g.Entrypoints {
		if strings.Contains(e.Title, q) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func TestSearch_QueryByAuthorFacets(t *testing.T) {
	repo := memRepo([]domgarden.Garden{
		{ID: 1, DOI: "10.1/a", Title: "Models", Authors: []string{"Owen"}, Tags: []string{"python"}, Year: "2023"},
	})
	var ensured atomic.Int32
	repo.ensureFn = func(context.Context) error { ensured.Add(1); return nil }

	svc := New(repo, &mockEntrypoints{})
	page, err := svc.Search(context.Background(), mustRequest(t, "Owen", nil, 0, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count() != 1 || page.Gardens()[0].DOI != "10.1/a" {
		t.Fatalf("gardens = %+v", page.Gardens())
	}
	if got := page.Facets().Get(facet.Authors); len(got) != 1 || got["Owen"] != 1 {
		t.Errorf("authors facet = %v", got)
	}
	if got := page.Facets().Get(facet.Year); len(got) != 1 || got["2023"] != 1 {
		t.Errorf("year facet = %v", got)
	}
	if ensured.Load() != 1 {
		t.Errorf("rank function ensured %d times, want 1", ensured.Load())
	}
}

func TestSearch_FilterNarrowsResultsAndFacets(t *testing.T) {
	repo := memRepo([]domgarden.Garden{
		{ID: 1, DOI: "10.1/a", Title: "A", Tags: []string{"python"}},
		{ID: 2, DOI: "10.1/b", Title: "B", Tags: []string{"python"}},
		{ID: 3, DOI: "10.1/c", Title: "C", Tags: []string{"testing"}},
	})
	svc := New(repo, &mockEntrypoints{})

	req := mustRequest(t, "", []filter.Filter{mustFilter(t, "tags", "testing")}, 0, 10)
	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total() != 1 || page.Gardens()[0].DOI != "10.1/c" {
		t.Fatalf("gardens = %+v", page.Gardens())
	}
	if got := page.Facets().Get(facet.Tags); len(got) != 1 || got["testing"] != 1 {
		t.Errorf("tags facet = %v, want only testing", got)
	}
}

func TestSearch_PaginationPastTheEnd(t *testing.T) {
	gardens := make([]domgarden.Garden, 20)
	for i := range gardens {
		gardens[i] = domgarden.Garden{ID: int64(i + 1), DOI: fmt.Sprintf("10.1/%d", i), Title: "G"}
	}
	svc := New(memRepo(gardens), &mockEntrypoints{})

	page, err := svc.Search(context.Background(), mustRequest(t, "", nil, 15, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total() != 20 || page.Count() != 5 || page.Offset() != 15 {
		t.Errorf("total=%d count=%d offset=%d, want 20/5/15", page.Total(), page.Count(), page.Offset())
	}

	page, err = svc.Search(context.Background(), mustRequest(t, "", nil, 25, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total() != 20 || page.Count() != 0 {
		t.Errorf("past the end: total=%d count=%d", page.Total(), page.Count())
	}
	if page.Gardens() == nil {
		t.Error("gardens must be an empty list, not nil")
	}
}

func TestSearch_EntrypointTitleAloneMatchesGarden(t *testing.T) {
	repo := memRepo([]domgarden.Garden{
		{
			ID: 1, DOI: "10.1/a", Title: "Materials", Authors: []string{"Ada"},
			Entrypoints: []domentry.Entrypoint{{DOI: "10.1/ep-a", Title: "Crystal Predictor"}},
		},
		{
			ID: 2, DOI: "10.1/b", Title: "Proteins", Authors: []string{"Bo"},
			Entrypoints: []domentry.Entrypoint{{DOI: "10.1/ep-b", Title: "Folding"}},
		},
	})
	svc := New(repo, &mockEntrypoints{})

	page, err := svc.Search(context.Background(), mustRequest(t, "Crystal", nil, 0, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total() != 1 || page.Count() != 1 || page.Gardens()[0].DOI != "10.1/a" {
		t.Fatalf("gardens = %+v, want only 10.1/a", page.Gardens())
	}
}

func TestSearch_InvalidFilterFailsFast(t *testing.T) {
	var queried atomic.Int32
	repo := &mockRepo{
		validateFn: func([]filter.Filter) error { return domain.NewInvalidFilterField("colour") },
		countFn:    func(context.Context, *request.Request) (int, error) { queried.Add(1); return 0, nil },
		pageFn: func(context.Context, *request.Request) ([]domgarden.Garden, error) {
			queried.Add(1)
			return nil, nil
		},
		facetFn: func(context.Context, facet.Field, []filter.Filter) (facet.Counts, error) {
			queried.Add(1)
			return nil, nil
		},
	}
	svc := New(repo, &mockEntrypoints{})

	_, err := svc.Search(context.Background(), mustRequest(t, "x", []filter.Filter{mustFilter(t, "colour", "red")}, 0, 10))
	if !errors.Is(err, domain.ErrInvalidFilterField) {
		t.Fatalf("expected ErrInvalidFilterField, got %v", err)
	}
	if !strings.Contains(err.Error(), "colour") {
		t.Errorf("error %q should name the field", err)
	}
	if queried.Load() != 0 {
		t.Errorf("%d queries ran after validation failed", queried.Load())
	}
}

func TestSearch_NoQuerySkipsRankFunction(t *testing.T) {
	repo := &mockRepo{ensureFn: func(context.Context) error { return errors.New("must not be called") }}
	svc := New(repo, &mockEntrypoints{})

	if _, err := svc.Search(context.Background(), mustRequest(t, "", nil, 0, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearch_RankFunctionError(t *testing.T) {
	repo := &mockRepo{ensureFn: func(context.Context) error { return errors.New("permission denied") }}
	svc := New(repo, &mockEntrypoints{})

	if _, err := svc.Search(context.Background(), mustRequest(t, "q", nil, 0, 10)); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_FacetErrorFailsWholeSearch(t *testing.T) {
	boom := errors.New("boom")
	repo := &mockRepo{
		facetFn: func(_ context.Context, field facet.Field, _ []filter.Filter) (facet.Counts, error) {
			if field == facet.Year {
				return nil, boom
			}
			return facet.Counts{}, nil
		},
	}
	svc := New(repo, &mockEntrypoints{})

	if _, err := svc.Search(context.Background(), mustRequest(t, "", nil, 0, 10)); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestSearch_AttachesEntrypointsToPage(t *testing.T) {
	repo := &mockRepo{
		pageFn: func(context.Context, *request.Request) ([]domgarden.Garden, error) {
			return []domgarden.Garden{{ID: 7, DOI: "10.1/x"}}, nil
		},
	}
	var attached []int64
	eps := &mockEntrypoints{attachFn: func(_ context.Context, gardens []domgarden.Garden) error {
		for _, g := range gardens {
			attached = append(attached, g.ID)
		}
		return nil
	}}

	if _, err := New(repo, eps).Search(context.Background(), mustRequest(t, "", nil, 0, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attached) != 1 || attached[0] != 7 {
		t.Errorf("attached = %v", attached)
	}
}

func TestSearch_FacetsIgnoreQuery(t *testing.T) {
	repo := &mockRepo{
		facetFn: func(_ context.Context, _ facet.Field, filters []filter.Filter) (facet.Counts, error) {
			if len(filters) != 1 || filters[0].Field() != "tags" {
				return nil, fmt.Errorf("unexpected filters %v", filters)
			}
			return facet.Counts{"python": 2}, nil
		},
	}
	svc := New(repo, &mockEntrypoints{})

	page, err := svc.Search(context.Background(), mustRequest(t, "owen", []filter.Filter{mustFilter(t, "tags", "python")}, 0, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range facet.Fields {
		if _, ok := page.Facets()[f]; !ok {
			t.Errorf("facet %s missing", f)
		}
	}
}
