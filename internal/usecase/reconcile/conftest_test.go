package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garden-ai/garden-catalog/internal/domain"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
	"github.com/garden-ai/garden-catalog/internal/domain/searchindex"
)

type mockIndex struct {
	createFn func(ctx context.Context, e searchindex.Entry) (searchindex.Task, error)
	deleteFn func(ctx context.Context, subject string) (searchindex.Task, error)
	awaitFn  func(ctx context.Context, taskID string) (searchindex.Task, error)
}

func (m *mockIndex) CreateEntry(ctx context.Context, e searchindex.Entry) (searchindex.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, e)
	}
	return searchindex.Completed("c"), nil
}

func (m *mockIndex) DeleteEntry(ctx context.Context, subject string) (searchindex.Task, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, subject)
	}
	return searchindex.Completed("d"), nil
}

func (m *mockIndex) AwaitTask(ctx context.Context, taskID string) (searchindex.Task, error) {
	if m.awaitFn != nil {
		return m.awaitFn(ctx, taskID)
	}
	return searchindex.Completed(taskID), nil
}

type mockGardens struct {
	getFn    func(ctx context.Context, doi string) (domgarden.Garden, error)
	existsFn func(ctx context.Context, doi string) (bool, error)
}

func (m *mockGardens) Get(ctx context.Context, doi string) (domgarden.Garden, error) {
	if m.getFn != nil {
		return m.getFn(ctx, doi)
	}
	return domgarden.Garden{ID: 1, DOI: doi, Title: "T"}, nil
}

func (m *mockGardens) Exists(ctx context.Context, doi string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, doi)
	}
	return true, nil
}

// memLedger mirrors the upsert and retry-cap semantics of the SQL ledger.
type memLedger struct {
	mu        sync.Mutex
	rows      map[string]domrec.FailedUpdate
	nextID    int64
	upsertErr error
}

func newMemLedger() *memLedger {
	return &memLedger{rows: map[string]domrec.FailedUpdate{}}
}

func (l *memLedger) Upsert(_ context.Context, op domrec.Operation, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.upsertErr != nil {
		return l.upsertErr
	}
	row, ok := l.rows[op.DOI]
	if !ok {
		l.nextID++
		row = domrec.FailedUpdate{ID: l.nextID, DOI: op.DOI}
	} else {
		row.RetryCount++
	}
	row.Type = op.Type
	row.ErrorMessage = message
	row.LastAttempt = time.Now()
	l.rows[op.DOI] = row
	return nil
}

func (l *memLedger) Delete(_ context.Context, doi string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rows, doi)
	return nil
}

func (l *memLedger) ListRetryable(ctx context.Context, maxRetries int) ([]domrec.FailedUpdate, error) {
	all, _ := l.List(ctx)
	out := all[:0]
	for _, r := range all {
		if r.RetryCount < maxRetries {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *memLedger) List(_ context.Context) ([]domrec.FailedUpdate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domrec.FailedUpdate, 0, len(l.rows))
	for _, r := range l.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *memLedger) Count(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows), nil
}

func (l *memLedger) get(doi string) (domrec.FailedUpdate, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rows[doi]
	return r, ok
}

func notFound(context.Context, string) (domgarden.Garden, error) {
	return domgarden.Garden{}, domain.ErrNotFound
}
