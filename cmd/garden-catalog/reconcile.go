package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/garden-ai/garden-catalog/internal/db/postgres"
	"github.com/garden-ai/garden-catalog/internal/metrics"
	failedupdaterepo "github.com/garden-ai/garden-catalog/internal/repository/failedupdate"
	gardenrepo "github.com/garden-ai/garden-catalog/internal/repository/garden"
	"github.com/garden-ai/garden-catalog/internal/usecase/reconcile"
)

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Retry every failed index update once and exit",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := bootstrap(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			metrics.Register()

			index, closeIndex, err := a.openSearchIndex(ctx)
			if err != nil {
				return err
			}
			defer closeIndex()

			txm := postgres.NewTxManager(a.pool)
			outbox := reconcile.New(index, gardenrepo.New(txm), failedupdaterepo.New(txm), a.reconcileConfig(), a.logger)

			fixed, err := outbox.RunOnce(ctx)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			remaining, err := outbox.ListFailed(ctx)
			if err != nil {
				return fmt.Errorf("list failed updates: %w", err)
			}
			exhausted := 0
			for i := range remaining {
				if remaining[i].Exhausted(outbox.MaxRetries()) {
					exhausted++
				}
			}
			fields := []zap.Field{
				zap.Int("reconciled", fixed),
				zap.Int("remaining", len(remaining)),
				zap.Int("exhausted", exhausted),
			}
			if n, err := index.Count(ctx); err == nil {
				fields = append(fields, zap.Int("index_entries", n))
			}
			a.logger.Info("Reconciliation pass finished", fields...)
			return nil
		},
	}
}
