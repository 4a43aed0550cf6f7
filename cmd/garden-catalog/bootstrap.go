package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/garden-ai/garden-catalog/internal/config"
	"github.com/garden-ai/garden-catalog/internal/db/postgres"
	dbRedis "github.com/garden-ai/garden-catalog/internal/db/redis"
	"github.com/garden-ai/garden-catalog/internal/identity"
	logpkg "github.com/garden-ai/garden-catalog/internal/logger"
	"github.com/garden-ai/garden-catalog/internal/repository/projection"
	meili "github.com/garden-ai/garden-catalog/internal/transport/meilisearch"
	"github.com/garden-ai/garden-catalog/internal/usecase/reconcile"
)

// app holds what every command needs: configuration, a logger and the pool.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func bootstrap(ctx context.Context, cmd *cli.Command) (*app, error) {
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if p := cmd.String("config"); p != "" {
		cfg, err = config.LoadFile(p)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: time.Duration(cfg.Database.MaxConnLifetimeSec) * time.Second,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	if err := postgres.WaitForReady(ctx, pool, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		pool.Close()
		_ = logger.Sync()
		return nil, err
	}
	logger.Info("Connected to database")

	return &app{env: env, cfg: cfg, logger: logger, pool: pool}, nil
}

func (a *app) Close() {
	a.pool.Close()
	_ = a.logger.Sync()
}

// searchIndex is what the composition root needs from either index driver.
type searchIndex interface {
	reconcile.Index
	EnsureIndex(ctx context.Context) error
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// openSearchIndex builds the configured index client. The returned closer
// releases driver resources.
func (a *app) openSearchIndex(ctx context.Context) (searchIndex, func(), error) {
	sc := a.cfg.SearchIndex
	var (
		index searchIndex
		closeFn = func() {}
	)

	switch sc.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    sc.Redis.Addrs,
			Username: sc.Redis.Username,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create %s store: %w", sc.Driver, err)
		}
		if err := store.WaitForReady(ctx, time.Duration(a.cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("%s not ready: %w", sc.Driver, err)
		}
		index = projection.New(store, sc.Redis.KeyPrefix, sc.Redis.Index)
		closeFn = store.Close
	default:
		index = meili.New(&meili.Config{
			Host:         sc.Meilisearch.Host,
			APIKey:       sc.Meilisearch.APIKey,
			Index:        sc.Meilisearch.Index,
			PollInterval: time.Duration(sc.Meilisearch.PollIntervalMs) * time.Millisecond,
			Logger:       a.logger,
		})
	}

	if err := index.EnsureIndex(ctx); err != nil {
		// The index may come up later; failed projections land in the ledger.
		a.logger.Warn("Search index not initialized", zap.String("driver", sc.Driver), zap.Error(err))
	}
	return index, closeFn, nil
}

func (a *app) reconcileConfig() reconcile.Config {
	rc := a.cfg.Reconcile
	return reconcile.Config{
		Workers:        rc.Workers,
		QueueSize:      rc.QueueSize,
		RetryInterval:  time.Duration(rc.RetryIntervalSec) * time.Second,
		MaxRetries:     rc.MaxRetries,
		AttemptTimeout: time.Duration(rc.AttemptTimeout) * time.Second,
		RatePerSecond:  rc.RatePerSecond,
	}
}

func (a *app) identityResolver() *identity.Resolver {
	keys := make([]identity.APIKey, 0, len(a.cfg.Auth.APIKeys))
	for _, k := range a.cfg.Auth.APIKeys {
		keys = append(keys, identity.APIKey{
			Key:      k.Key,
			ID:       uuid.MustParse(k.IdentityID), // checked by config.Validate
			Username: k.Username,
			Scopes:   k.Scopes,
		})
	}
	return identity.NewResolver(keys, identity.JWTConfig{
		Secret:   a.cfg.Auth.JWT.Secret,
		Issuer:   a.cfg.Auth.JWT.Issuer,
		Audience: a.cfg.Auth.JWT.Audience,
	})
}
