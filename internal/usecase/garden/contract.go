package garden

import (
	"context"

	"github.com/google/uuid"

	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
)

// Repository defines the storage contract for gardens.
type Repository interface {
	Create(ctx context.Context, g *domgarden.Garden) error
	Get(ctx context.Context, doi string) (domgarden.Garden, error)
	GetForUpdate(ctx context.Context, doi string) (domgarden.Garden, error)
	List(ctx context.Context, owner *uuid.UUID, offset, limit int) ([]domgarden.Garden, error)
	Update(ctx context.Context, g *domgarden.Garden) error
	Delete(ctx context.Context, doi string) error
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
