package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/garden-ai/garden-catalog/internal/version"
)

func main() {
	app := &cli.Command{
		Name:    "garden-catalog",
		Usage:   "Garden and entrypoint registry with ranked search",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Configuration file path (default: per-environment lookup)",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			reconcileCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "garden-catalog:", err)
		os.Exit(1)
	}
}
