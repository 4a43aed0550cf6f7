// Package failedupdate stores the search index reconciliation ledger.
package failedupdate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/garden-ai/garden-catalog/internal/db/postgres"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
)

type conns interface {
	Conn(ctx context.Context) postgres.Querier
}

// Repo is the ledger of gardens whose index projection is stale.
type Repo struct {
	db conns
}

// New creates a ledger repository.
func New(db conns) *Repo {
	return &Repo{db: db}
}

const columns = `id, garden_doi, operation_type, error_message, retry_count, last_attempt`

// Upsert records a failed attempt. The first failure for a DOI starts at
// retry_count 0; later ones bump the counter and replace the operation and message.
func (r *Repo) Upsert(ctx context.Context, op domrec.Operation, message string) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO failed_search_index_updates AS t (garden_doi, operation_type, error_message, retry_count, last_attempt)
		VALUES ($1, $2, $3, 0, now())
		ON CONFLICT (garden_doi) DO UPDATE SET
			operation_type = EXCLUDED.operation_type,
			error_message = EXCLUDED.error_message,
			retry_count = t.retry_count + 1,
			last_attempt = now()`,
		op.DOI, string(op.Type), message)
	if err != nil {
		return fmt.Errorf("upsert failed update %s: %w", op.DOI, err)
	}
	return nil
}

// Delete clears the ledger row of a DOI. A missing row is not an error.
func (r *Repo) Delete(ctx context.Context, doi string) error {
	if _, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM failed_search_index_updates WHERE garden_doi = $1`, doi); err != nil {
		return fmt.Errorf("delete failed update %s: %w", doi, err)
	}
	return nil
}

// ListRetryable returns rows under the retry cap, oldest attempt first.
func (r *Repo) ListRetryable(ctx context.Context, maxRetries int) ([]domrec.FailedUpdate, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT `+columns+` FROM failed_search_index_updates
		WHERE retry_count < $1 ORDER BY last_attempt ASC, id ASC`, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("list retryable updates: %w", err)
	}
	return collect(rows)
}

// List returns every ledger row, oldest attempt first.
func (r *Repo) List(ctx context.Context) ([]domrec.FailedUpdate, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT `+columns+` FROM failed_search_index_updates
		ORDER BY last_attempt ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list failed updates: %w", err)
	}
	return collect(rows)
}

// Count returns the ledger size.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Conn(ctx).QueryRow(ctx, `SELECT count(*) FROM failed_search_index_updates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed updates: %w", err)
	}
	return n, nil
}

func collect(rows pgx.Rows) ([]domrec.FailedUpdate, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domrec.FailedUpdate, error) {
		var (
			f  domrec.FailedUpdate
			op string
		)
		if err := row.Scan(&f.ID, &f.DOI, &op, &f.ErrorMessage, &f.RetryCount, &f.LastAttempt); err != nil {
			return f, err
		}
		t, err := domrec.ParseOpType(op)
		if err != nil {
			return f, err
		}
		f.Type = t
		return f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed updates: %w", err)
	}
	return out, nil
}
