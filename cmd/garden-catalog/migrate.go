package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/garden-ai/garden-catalog/internal/db/postgres"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show the schema version without applying migrations",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := bootstrap(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Bool("status") {
				return migrationStatus(ctx, a.pool)
			}
			return migrate(ctx, a.pool, a.logger)
		},
	}
}

func migrate(ctx context.Context, pool postgres.Pool, logger *zap.Logger) error {
	m, err := postgres.NewMigrator(pool)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	applied, err := m.Upgrade(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if len(applied) == 0 {
		logger.Info("Schema up to date", zap.Int("version", m.Latest()))
		return nil
	}
	logger.Info("Applied migrations", zap.Ints("versions", applied))
	return nil
}

func migrationStatus(ctx context.Context, pool postgres.Pool) error {
	m, err := postgres.NewMigrator(pool)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	current, err := m.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d, latest %d", current, m.Latest())
	if current < m.Latest() {
		fmt.Printf(" (%d pending)", m.Latest()-current)
	}
	fmt.Println()
	return nil
}
