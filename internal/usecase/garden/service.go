// Package garden implements garden CRUD with post-commit index reconciliation.
package garden

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/garden-ai/garden-catalog/internal/domain"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/principal"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
)

// Service handles garden mutations and reads.
type Service struct {
	repo     Repository
	tx       TxRunner
	outbox   Scheduler
	registry Registry
}

// New creates a garden service.
func New(repo Repository, tx TxRunner, outbox Scheduler, registry Registry) *Service {
	return &Service{repo: repo, tx: tx, outbox: outbox, registry: registry}
}

// Create stores a garden owned by the caller. When draft is nil the garden
// is a draft unless its DOI is already registered.
func (s *Service) Create(ctx context.Context, p principal.Principal, g domgarden.Garden, draft *bool) (domgarden.Garden, error) {
	if err := requireScope(p); err != nil {
		return domgarden.Garden{}, err
	}
	if err := g.Validate(); err != nil {
		return domgarden.Garden{}, err
	}

	if draft != nil {
		g.DOIIsDraft = *draft
	} else {
		registered, err := s.registry.IsRegistered(ctx, g.DOI)
		if err != nil {
			return domgarden.Garden{}, fmt.Errorf("check doi registration: %w", err)
		}
		g.DOIIsDraft = !registered
	}
	g.OwnerID = p.ID()

	var out domgarden.Garden
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, &g); err != nil {
			return err
		}
		var err error
		out, err = s.repo.Get(ctx, g.DOI)
		return err
	})
	if err != nil {
		return domgarden.Garden{}, fmt.Errorf("create garden: %w", err)
	}

	s.outbox.Schedule(ctx, domrec.Upsert(out.DOI))
	return out, nil
}

// Get returns a garden with its entrypoints.
func (s *Service) Get(ctx context.Context, doi string) (domgarden.Garden, error) {
	g, err := s.repo.Get(ctx, doi)
	if err != nil {
		return domgarden.Garden{}, fmt.Errorf("get garden: %w", err)
	}
	return g, nil
}

// List returns gardens in insertion order, optionally only those of one owner.
func (s *Service) List(ctx context.Context, owner *uuid.UUID, offset, limit int) ([]domgarden.Garden, error) {
	if offset < 0 {
		return nil, domain.InvalidRequestf("offset must be >= 0, got %d", offset)
	}
	if limit < 1 {
		return nil, domain.InvalidRequestf("limit must be >= 1, got %d", limit)
	}
	gardens, err := s.repo.List(ctx, owner, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list gardens: %w", err)
	}
	return gardens, nil
}

// Replace overwrites every mutable field of the caller's garden. A nil
// draft keeps the stored draft flag.
func (s *Service) Replace(
	ctx context.Context, p principal.Principal, doi string, next domgarden.Garden, draft *bool,
) (domgarden.Garden, error) {
	if next.DOI == "" {
		next.DOI = doi
	}
	return s.mutate(ctx, p, doi, func(cur domgarden.Garden) domgarden.Garden {
		next.DOIIsDraft = cur.DOIIsDraft
		if draft != nil {
			next.DOIIsDraft = *draft
		}
		return next
	})
}

// Patch changes only the fields set in the patch. An empty patch returns
// the stored garden without writing.
func (s *Service) Patch(ctx context.Context, p principal.Principal, doi string, patch domgarden.Patch) (domgarden.Garden, error) {
	if patch.IsEmpty() {
		if err := requireScope(p); err != nil {
			return domgarden.Garden{}, err
		}
		return s.Get(ctx, doi)
	}
	return s.mutate(ctx, p, doi, patch.Apply)
}

func (s *Service) mutate(
	ctx context.Context, p principal.Principal, doi string, change func(domgarden.Garden) domgarden.Garden,
) (domgarden.Garden, error) {
	if err := requireScope(p); err != nil {
		return domgarden.Garden{}, err
	}

	var out domgarden.Garden
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetForUpdate(ctx, doi)
		if err != nil {
			return err
		}
		if err := requireOwner(p, &cur); err != nil {
			return err
		}

		next := change(cur)
		if err := domgarden.CheckTransition(&cur, &next); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, &next); err != nil {
			return err
		}
		out, err = s.repo.Get(ctx, doi)
		return err
	})
	if err != nil {
		return domgarden.Garden{}, fmt.Errorf("update garden: %w", err)
	}

	s.outbox.Schedule(ctx, domrec.Upsert(out.DOI))
	return out, nil
}

// Delete removes the caller's garden. Published or registered gardens stay.
func (s *Service) Delete(ctx context.Context, p principal.Principal, doi string) error {
	if err := requireScope(p); err != nil {
		return err
	}

	cur, err := s.repo.Get(ctx, doi)
	if err != nil {
		return fmt.Errorf("delete garden: %w", err)
	}
	if err := requireOwner(p, &cur); err != nil {
		return err
	}
	if err := checkDeletable(&cur); err != nil {
		return err
	}
	registered, err := s.registry.IsRegistered(ctx, doi)
	if err != nil {
		return fmt.Errorf("check doi registration: %w", err)
	}
	if registered {
		return fmt.Errorf("garden %s is registered: %w", doi, domain.ErrPublished)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.GetForUpdate(ctx, doi)
		if err != nil {
			return err
		}
		if err := checkDeletable(&locked); err != nil {
			return err
		}
		return s.repo.Delete(ctx, doi)
	})
	if err != nil {
		return fmt.Errorf("delete garden: %w", err)
	}

	s.outbox.Schedule(ctx, domrec.Delete(doi))
	return nil
}

func checkDeletable(g *domgarden.Garden) error {
	if !g.DOIIsDraft {
		return fmt.Errorf("garden %s: %w", g.DOI, domain.ErrPublished)
	}
	return nil
}

func requireScope(p principal.Principal) error {
	if !p.HasScope(principal.ScopeDefault) {
		return fmt.Errorf("missing %q scope: %w", principal.ScopeDefault, domain.ErrForbidden)
	}
	return nil
}

func requireOwner(p principal.Principal, g *domgarden.Garden) error {
	if !g.OwnedBy(p.ID()) {
		return fmt.Errorf("garden %s belongs to another identity: %w", g.DOI, domain.ErrForbidden)
	}
	return nil
}
