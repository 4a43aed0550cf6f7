package reconcile

import (
	"context"

	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
	"github.com/garden-ai/garden-catalog/internal/domain/searchindex"
)

// Index is the external search index the outbox projects gardens into.
type Index interface {
	CreateEntry(ctx context.Context, e searchindex.Entry) (searchindex.Task, error)
	DeleteEntry(ctx context.Context, subject string) (searchindex.Task, error)
	AwaitTask(ctx context.Context, taskID string) (searchindex.Task, error)
}

// GardenReader reloads the current state of a garden.
type GardenReader interface {
	Get(ctx context.Context, doi string) (domgarden.Garden, error)
	Exists(ctx context.Context, doi string) (bool, error)
}

// Ledger stores failed reconciliations.
type Ledger interface {
	Upsert(ctx context.Context, op domrec.Operation, message string) error
	Delete(ctx context.Context, doi string) error
	ListRetryable(ctx context.Context, maxRetries int) ([]domrec.FailedUpdate, error)
	List(ctx context.Context) ([]domrec.FailedUpdate, error)
	Count(ctx context.Context) (int, error)
}
