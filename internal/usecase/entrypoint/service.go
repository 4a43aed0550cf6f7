// Package entrypoint implements entrypoint CRUD. Every change re-projects
// the gardens that contain the entrypoint.
package entrypoint

import (
	"context"
	"fmt"

	"github.com/garden-ai/garden-catalog/internal/domain"
	domentry "github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
	"github.com/garden-ai/garden-catalog/internal/domain/principal"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
)

// Service handles entrypoint mutations and reads.
type Service struct {
	repo     Repository
	tx       TxRunner
	outbox   Scheduler
	registry Registry
}

// New creates an entrypoint service.
func New(repo Repository, tx TxRunner, outbox Scheduler, registry Registry) *Service {
	return &Service{repo: repo, tx: tx, outbox: outbox, registry: registry}
}

// Create stores an entrypoint owned by the caller. When draft is nil the
// entrypoint is a draft unless its DOI is already registered.
func (s *Service) Create(ctx context.Context, p principal.Principal, e domentry.Entrypoint, draft *bool) (domentry.Entrypoint, error) {
	if err := requireScope(p); err != nil {
		return domentry.Entrypoint{}, err
	}
	if err := e.Validate(); err != nil {
		return domentry.Entrypoint{}, err
	}
	if draft != nil {
		e.DOIIsDraft = *draft
	} else {
		registered, err := s.registry.IsRegistered(ctx, e.DOI)
		if err != nil {
			return domentry.Entrypoint{}, fmt.Errorf("check doi registration: %w", err)
		}
		e.DOIIsDraft = !registered
	}
	e.OwnerID = p.ID()

	if err := s.repo.Create(ctx, &e); err != nil {
		return domentry.Entrypoint{}, fmt.Errorf("create entrypoint: %w", err)
	}
	return e, nil
}

// Get returns one entrypoint.
func (s *Service) Get(ctx context.Context, doi string) (domentry.Entrypoint, error) {
	e, err := s.repo.Get(ctx, doi)
	if err != nil {
		return domentry.Entrypoint{}, fmt.Errorf("get entrypoint: %w", err)
	}
	return e, nil
}

// Replace overwrites the caller's entrypoint and re-projects its gardens.
// A nil draft keeps the stored draft flag.
func (s *Service) Replace(
	ctx context.Context, p principal.Principal, doi string, next domentry.Entrypoint, draft *bool,
) (domentry.Entrypoint, error) {
	if err := requireScope(p); err != nil {
		return domentry.Entrypoint{}, err
	}
	if next.DOI == "" {
		next.DOI = doi
	}

	var gardens []string
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetForUpdate(ctx, doi)
		if err != nil {
			return err
		}
		if err := requireOwner(p, &cur); err != nil {
			return err
		}
		if next.DOI != cur.DOI {
			return domain.InvalidRequestf("doi is immutable: %q", cur.DOI)
		}
		next.DOIIsDraft = cur.DOIIsDraft
		if draft != nil {
			next.DOIIsDraft = *draft
		}
		if !cur.DOIIsDraft && next.DOIIsDraft {
			return fmt.Errorf("%s: %w", cur.DOI, domain.ErrInvalidDraftTransition)
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, &next); err != nil {
			return err
		}
		gardens, err = s.repo.GardenDOIs(ctx, doi)
		return err
	})
	if err != nil {
		return domentry.Entrypoint{}, fmt.Errorf("update entrypoint: %w", err)
	}

	s.scheduleGardens(ctx, gardens)
	return next, nil
}

// Delete removes the caller's entrypoint. Gardens that contained it are
// captured before the delete and re-projected after commit.
func (s *Service) Delete(ctx context.Context, p principal.Principal, doi string) error {
	if err := requireScope(p); err != nil {
		return err
	}

	var gardens []string
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetForUpdate(ctx, doi)
		if err != nil {
			return err
		}
		if err := requireOwner(p, &cur); err != nil {
			return err
		}
		if gardens, err = s.repo.GardenDOIs(ctx, doi); err != nil {
			return err
		}
		return s.repo.Delete(ctx, doi)
	})
	if err != nil {
		return fmt.Errorf("delete entrypoint: %w", err)
	}

	s.scheduleGardens(ctx, gardens)
	return nil
}

func (s *Service) scheduleGardens(ctx context.Context, dois []string) {
	for _, doi := range dois {
		s.outbox.Schedule(ctx, domrec.Upsert(doi))
	}
}

func requireScope(p principal.Principal) error {
	if !p.HasScope(principal.ScopeDefault) {
		return fmt.Errorf("missing %q scope: %w", principal.ScopeDefault, domain.ErrForbidden)
	}
	return nil
}

func requireOwner(p principal.Principal, e *domentry.Entrypoint) error {
	if !e.OwnedBy(p.ID()) {
		return fmt.Errorf("entrypoint %s belongs to another identity: %w", e.DOI, domain.ErrForbidden)
	}
	return nil
}
