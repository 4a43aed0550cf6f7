package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garden-ai/garden-catalog/internal/domain"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/search/facet"
	"github.com/garden-ai/garden-catalog/internal/domain/search/request"
	"github.com/garden-ai/garden-catalog/internal/domain/search/result"
	"github.com/garden-ai/garden-catalog/internal/metrics"
)

// Service answers ranked, filtered and faceted garden searches.
type Service struct {
	repo        Repository
	entrypoints EntrypointLoader
}

// New creates a search service.
func New(repo Repository, entrypoints EntrypointLoader) *Service {
	return &Service{repo: repo, entrypoints: entrypoints}
}

// Search validates the filters, then computes the total, the page and every
// facet concurrently. Facets cover the filtered set and ignore the query.
func (s *Service) Search(ctx context.Context, req *request.Request) (page result.Page, err error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(strconv.FormatBool(req.HasQuery())).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.SearchErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		}
	}()

	if err = s.repo.ValidateFilters(req.Filters()); err != nil {
		return result.Page{}, err
	}
	if req.HasQuery() {
		if err = s.repo.EnsureRankFunction(ctx); err != nil {
			return result.Page{}, fmt.Errorf("ensure rank function: %w", err)
		}
	}

	var (
		total   int
		gardens []domgarden.Garden
		mu      sync.Mutex
		facets  = make(facet.Facets, len(facet.Fields))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Count(gctx, req)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		p, err := s.repo.Page(gctx, req)
		if err != nil {
			return fmt.Errorf("page: %w", err)
		}
		if err := s.entrypoints.AttachEntrypoints(gctx, p); err != nil {
			return fmt.Errorf("attach entrypoints: %w", err)
		}
		gardens = p
		return nil
	})
	for _, field := range facet.Fields {
		g.Go(func() error {
			counts, err := s.repo.Facet(gctx, field, req.Filters())
			if err != nil {
				return fmt.Errorf("facet %s: %w", field, err)
			}
			mu.Lock()
			facets[field] = counts
			mu.Unlock()
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return result.Page{}, err
	}

	return result.New(total, req.Offset(), gardens, facets), nil
}

func errorKind(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) ||
		errors.Is(err, domain.ErrInvalidFilterField) ||
		errors.Is(err, domain.ErrInvalidSort) {
		return "client"
	}
	return "internal"
}
