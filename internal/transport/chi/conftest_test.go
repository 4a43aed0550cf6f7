package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garden-ai/garden-catalog/internal/domain"
	domentry "github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/principal"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
	"github.com/garden-ai/garden-catalog/internal/domain/search/request"
	"github.com/garden-ai/garden-catalog/internal/domain/search/result"
	healthuc "github.com/garden-ai/garden-catalog/internal/usecase/health"
)

var (
	testOwner = uuid.MustParse("0b7c8e7e-1f7a-4a0e-9a7e-3f1d6c2b5a01")
	testToken = "test-token"
)

// --- mock garden service ---

type mockGardens struct {
	createFn  func(ctx context.Context, p principal.Principal, g domgarden.Garden, draft *bool) (domgarden.Garden, error)
	getFn     func(ctx context.Context, doi string) (domgarden.Garden, error)
	listFn    func(ctx context.Context, owner *uuid.UUID, offset, limit int) ([]domgarden.Garden, error)
	replaceFn func(ctx context.Context, p principal.Principal, doi string, g domgarden.Garden, draft *bool) (domgarden.Garden, error)
	patchFn   func(ctx context.Context, p principal.Principal, doi string, patch domgarden.Patch) (domgarden.Garden, error)
	deleteFn  func(ctx context.Context, p principal.Principal, doi string) error
}

func (m *mockGardens) Create(ctx context.Context, p principal.Principal, g domgarden.Garden, draft *bool) (domgarden.Garden, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p, g, draft)
	}
	g.OwnerID = p.ID()
	return g, nil
}

func (m *mockGardens) Get(ctx context.Context, doi string) (domgarden.Garden, error) {
	if m.getFn != nil {
		return m.getFn(ctx, doi)
	}
	return domgarden.Garden{}, domain.ErrNotFound
}

func (m *mockGardens) List(ctx context.Context, owner *uuid.UUID, offset, limit int) ([]domgarden.Garden, error) {
	if m.listFn != nil {
		return m.listFn(ctx, owner, offset, limit)
	}
	return nil, nil
}

func (m *mockGardens) Replace(ctx context.Context, p principal.Principal, doi string, g domgarden.Garden, draft *bool) (domgarden.Garden, error) {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, p, doi, g, draft)
	}
	return g, nil
}

func (m *mockGardens) Patch(ctx context.Context, p principal.Principal, doi string, patch domgarden.Patch) (domgarden.Garden, error) {
	if m.patchFn != nil {
		return m.patchFn(ctx, p, doi, patch)
	}
	return domgarden.Garden{DOI: doi}, nil
}

func (m *mockGardens) Delete(ctx context.Context, p principal.Principal, doi string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, p, doi)
	}
	return nil
}

// --- mock entrypoint service ---

type mockEntrypoints struct {
	createFn  func(ctx context.Context, p principal.Principal, e domentry.Entrypoint, draft *bool) (domentry.Entrypoint, error)
	getFn     func(ctx context.Context, doi string) (domentry.Entrypoint, error)
	replaceFn func(ctx context.Context, p principal.Principal, doi string, e domentry.Entrypoint, draft *bool) (domentry.Entrypoint, error)
	deleteFn  func(ctx context.Context, p principal.Principal, doi string) error
}

func (m *mockEntrypoints) Create(ctx context.Context, p principal.Principal, e domentry.Entrypoint, draft *bool) (domentry.Entrypoint, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p, e, draft)
	}
	return e, nil
}

func (m *mockEntrypoints) Get(ctx context.Context, doi string) (domentry.Entrypoint, error) {
	if m.getFn != nil {
		return m.getFn(ctx, doi)
	}
	return domentry.Entrypoint{}, domain.ErrNotFound
}

func (m *mockEntrypoints) Replace(ctx context.Context, p principal.Principal, doi string, e domentry.Entrypoint, draft *bool) (domentry.Entrypoint, error) {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, p, doi, e, draft)
	}
	return e, nil
}

func (m *mockEntrypoints) Delete(ctx context.Context, p principal.Principal, doi string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, p, doi)
	}
	return nil
}

// --- mock search service ---

type mockSearch struct {
	searchFn func(ctx context.Context, req *request.Request) (result.Page, error)
}

func (m *mockSearch) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return result.New(0, req.Offset(), nil, nil), nil
}

// --- mock failed updates ---

type mockFailed struct {
	rows []domrec.FailedUpdate
	err  error
}

func (m *mockFailed) ListFailed(context.Context) ([]domrec.FailedUpdate, error) {
	return m.rows, m.err
}

func (m *mockFailed) MaxRetries() int { return 3 }

// --- mock health ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- mock resolver ---

type mockResolver struct {
	principals map[string]principal.Principal
}

func (m *mockResolver) Resolve(_ context.Context, token string) (principal.Principal, error) {
	if p, ok := m.principals[token]; ok {
		return p, nil
	}
	return principal.Principal{}, errors.Join(domain.ErrUnauthorized, errors.New("unknown token"))
}

func newTestResolver() *mockResolver {
	return &mockResolver{principals: map[string]principal.Principal{
		testToken: principal.New(testOwner, "owen", []string{principal.ScopeDefault}),
	}}
}

type testDeps struct {
	gardens     *mockGardens
	entrypoints *mockEntrypoints
	search      *mockSearch
	failed      *mockFailed
	health      *mockHealth
}

func newTestDeps() *testDeps {
	return &testDeps{
		gardens:     &mockGardens{},
		entrypoints: &mockEntrypoints{},
		search:      &mockSearch{},
		failed:      &mockFailed{},
		health:      &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK}}},
	}
}

func (d *testDeps) handler() http.Handler {
	srv := NewServer(d.gardens, d.entrypoints, d.search, d.failed, d.health, Limits{DefaultLimit: 10, MaxLimit: 100}, zap.NewNop())
	return NewRouter(srv, newTestResolver(), zap.NewNop())
}
