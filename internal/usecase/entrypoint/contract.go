package entrypoint

import (
	"context"

	domentry "github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
)

// Repository defines the storage contract for entrypoints.
type Repository interface {
	Create(ctx context.Context, e *domentry.Entrypoint) error
	Get(ctx context.Context, doi string) (domentry.Entrypoint, error)
	GetForUpdate(ctx context.Context, doi string) (domentry.Entrypoint, error)
	Update(ctx context.Context, e *domentry.Entrypoint) error
	Delete(ctx context.Context, doi string) error
	GardenDOIs(ctx context.Context, doi string) ([]string, error)
}

// TxRunner scopes repository calls to one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Scheduler receives post-commit reconciliation operations.
type Scheduler interface {
	Schedule(ctx context.Context, op domrec.Operation)
}

// Registry answers whether a DOI is registered with the DOI provider.
type Registry interface {
	IsRegistered(ctx context.Context, doi string) (bool, error)
}
