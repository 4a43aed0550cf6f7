package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
	"github.com/garden-ai/garden-catalog/internal/metrics"
)

// RetryLoop runs RunOnce every retry interval until ctx is cancelled.
// Errors and panics of a pass are logged and the loop keeps going.
func (o *Outbox) RetryLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.safePass(ctx)
		}
	}
}

func (o *Outbox) safePass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("retry pass panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	if _, err := o.RunOnce(ctx); err != nil && ctx.Err() == nil {
		o.logger.Error("retry pass failed", zap.Error(err))
	}
}

// RunOnce retries every ledger row under the retry cap, oldest attempt
// first, and returns how many rows were retried successfully. A garden that
// still exists is re-projected, a missing one is removed from the index.
func (o *Outbox) RunOnce(ctx context.Context) (int, error) {
	rows, err := o.ledger.ListRetryable(ctx, o.cfg.MaxRetries)
	if err != nil {
		return 0, fmt.Errorf("list retryable: %w", err)
	}

	recovered := 0
	for i := range rows {
		if ctx.Err() != nil {
			return recovered, ctx.Err()
		}
		if o.retry(ctx, &rows[i]) {
			recovered++
		}
	}

	if n, err := o.ledger.Count(ctx); err == nil {
		metrics.ReconcileFailedUpdates.Set(float64(n))
	}
	if len(rows) > 0 {
		o.logger.Info("retry pass done", zap.Int("rows", len(rows)), zap.Int("recovered", recovered))
	}
	return recovered, nil
}

func (o *Outbox) retry(ctx context.Context, row *domrec.FailedUpdate) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("retry panic", zap.String("doi", row.DOI), zap.Any("panic", r), zap.Stack("stack"))
			ok = false
		}
	}()

	actx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	defer cancel()

	exists, err := o.gardens.Exists(actx, row.DOI)
	if err != nil {
		o.logger.Warn("retry: check garden", zap.String("doi", row.DOI), zap.Error(err))
		return false
	}
	op := domrec.Delete(row.DOI)
	if exists {
		op = domrec.Upsert(row.DOI)
	}
	err = o.Reconcile(actx, op)
	o.logUnrecorded(op, err)
	return err == nil
}
