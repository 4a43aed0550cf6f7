package garden

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/garden-ai/garden-catalog/internal/domain"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
)

type mockRepo struct {
	mu      sync.Mutex
	gardens map[string]domgarden.Garden
	nextID  int64
	locked  []string

	createErr error
	updateErr error
}

func newMockRepo(seed ...domgarden.Garden) *mockRepo {
	m := &mockRepo{gardens: map[string]domgarden.Garden{}}
	for _, g := range seed {
		m.nextID++
		g.ID = m.nextID
		m.gardens[g.DOI] = g
	}
	return m
}

func (m *mockRepo) Create(_ context.Context, g *domgarden.Garden) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.gardens[g.DOI]; ok {
		return fmt.Errorf("garden %s: %w", g.DOI, domain.ErrAlreadyExists)
	}
	m.nextID++
	g.ID = m.nextID
	m.gardens[g.DOI] = *g
	return nil
}

func (m *mockRepo) Get(_ context.Context, doi string) (domgarden.Garden, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gardens[doi]
	if !ok {
		return domgarden.Garden{}, fmt.Errorf("garden %s: %w", doi, domain.ErrNotFound)
	}
	return g, nil
}

func (m *mockRepo) GetForUpdate(ctx context.Context, doi string) (domgarden.Garden, error) {
	m.mu.Lock()
	m.locked = append(m.locked, doi)
	m.mu.Unlock()
	return m.Get(ctx, doi)
}

func (m *mockRepo) List(_ context.Context, owner *uuid.UUID, offset, limit int) ([]domgarden.Garden, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domgarden.Garden
	for _, g := range m.gardens {
		if owner == nil || g.OwnerID == *owner {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []domgarden.Garden{}, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (m *mockRepo) Update(_ context.Context, g *domgarden.Garden) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cur, ok := m.gardens[g.DOI]
	if !ok {
		return fmt.Errorf("garden %s: %w", g.DOI, domain.ErrNotFound)
	}
	g.ID, g.OwnerID = cur.ID, cur.OwnerID
	m.gardens[g.DOI] = *g
	return nil
}

func (m *mockRepo) Delete(_ context.Context, doi string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gardens[doi]; !ok {
		return fmt.Errorf("garden %s: %w", doi, domain.ErrNotFound)
	}
	delete(m.gardens, doi)
	return nil
}

type mockTx struct {
	calls int
}

func (m *mockTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockScheduler struct {
	ops []domrec.Operation
}

func (m *mockScheduler) Schedule(_ context.Context, op domrec.Operation) {
	m.ops = append(m.ops, op)
}

type mockRegistry struct {
	registered map[string]bool
	err        error
}

func (m *mockRegistry) IsRegistered(_ context.Context, doi string) (bool, error) {
	return m.registered[doi], m.err
}
