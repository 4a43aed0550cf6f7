package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/garden-ai/garden-catalog/internal/db/postgres"
	"github.com/garden-ai/garden-catalog/internal/metrics"
	entrypointrepo "github.com/garden-ai/garden-catalog/internal/repository/entrypoint"
	failedupdaterepo "github.com/garden-ai/garden-catalog/internal/repository/failedupdate"
	gardenrepo "github.com/garden-ai/garden-catalog/internal/repository/garden"
	searchrepo "github.com/garden-ai/garden-catalog/internal/repository/search"
	chiTransport "github.com/garden-ai/garden-catalog/internal/transport/chi"
	"github.com/garden-ai/garden-catalog/internal/transport/doi"
	entrypointuc "github.com/garden-ai/garden-catalog/internal/usecase/entrypoint"
	gardenuc "github.com/garden-ai/garden-catalog/internal/usecase/garden"
	healthuc "github.com/garden-ai/garden-catalog/internal/usecase/health"
	"github.com/garden-ai/garden-catalog/internal/usecase/reconcile"
	searchuc "github.com/garden-ai/garden-catalog/internal/usecase/search"
	"github.com/garden-ai/garden-catalog/internal/version"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API and the reconciliation workers",
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	logger.Info("Starting garden catalog",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("search_index", cfg.SearchIndex.Driver),
	)

	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, a.pool, logger); err != nil {
			return err
		}
	}

	metrics.Register()

	index, closeIndex, err := a.openSearchIndex(ctx)
	if err != nil {
		return err
	}
	defer closeIndex()

	txm := postgres.NewTxManager(a.pool)
	gardens := gardenrepo.New(txm)
	entrypoints := entrypointrepo.New(txm)
	ledger := failedupdaterepo.New(txm)
	registry := doi.New(cfg.DOI.ResolverURL, time.Duration(cfg.DOI.TimeoutSec)*time.Second)

	outbox := reconcile.New(index, gardens, ledger, a.reconcileConfig(), logger.Named("reconcile"))

	gardenSvc := gardenuc.New(gardens, txm, outbox, registry)
	entrypointSvc := entrypointuc.New(entrypoints, txm, outbox, registry)
	searchSvc := searchuc.New(searchrepo.New(txm), gardens)
	healthSvc := healthuc.New(a.pool, index)

	server := chiTransport.NewServer(
		gardenSvc, entrypointSvc, searchSvc, outbox, healthSvc,
		chiTransport.Limits{DefaultLimit: cfg.Search.DefaultLimit, MaxLimit: cfg.Search.MaxLimit},
		logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, a.identityResolver(), logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Workers outlive the HTTP server so in-flight mutations can still
	// schedule; they are stopped after Shutdown returns.
	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()
	outboxDone := make(chan struct{})
	if cfg.Reconcile.Disabled {
		logger.Warn("Reconciliation disabled, mutations are parked in the failure ledger")
		outbox.Stop(ctx)
		close(outboxDone)
	} else {
		go func() {
			defer close(outboxDone)
			outbox.Run(workerCtx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	stopWorkers()
	<-outboxDone

	logger.Info("Server stopped gracefully")
	return nil
}
