package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/logging"
	"storefront-cart/internal/migrate"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel).With("component", "migrate")

	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	withPool := func(fn func(ctx context.Context, pool *pgxpool.Pool) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			pool, err := db.Connect(cmd.Context(), cfg.DBConnString)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			defer pool.Close()
			return fn(cmd.Context(), pool)
		}
	}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the storefront database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			if err := migrate.Apply(ctx, pool); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("migrations applied")
			return nil
		}),
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			if err := migrate.Rollback(ctx, pool, steps); err != nil {
				return fmt.Errorf("rollback migrations: %w", err)
			}
			logger.Info("migrations rolled back", "steps", steps)
			return nil
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			v, dirty, err := migrate.Version(ctx, pool)
			if err != nil {
				return fmt.Errorf("read version: %w", err)
			}
			logger.Info("schema version", "version", v, "dirty", dirty)
			return nil
		}),
	}

	root.AddCommand(up, down, version)
	// A bare invocation applies everything.
	root.RunE = up.RunE
	return root
}
