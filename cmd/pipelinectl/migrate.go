package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xavierca1/institut-pipeline/internal/config"
	"github.com/xavierca1/institut-pipeline/internal/infra/database"
)

func migrateCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), load, func(ctx context.Context, db *sql.DB) error {
				if err := database.Migrate(ctx, db); err != nil {
					return err
				}
				return printVersion(ctx, cmd, db)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return errors.New("--steps must be >= 1")
			}
			return withDB(cmd.Context(), load, func(ctx context.Context, db *sql.DB) error {
				if err := database.Rollback(ctx, db, steps); err != nil {
					return err
				}
				return printVersion(ctx, cmd, db)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), load, func(ctx context.Context, db *sql.DB) error {
				return printVersion(ctx, cmd, db)
			})
		},
	})

	return cmd
}

func withDB(ctx context.Context, load configLoader, fn func(context.Context, *sql.DB) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations need the postgres driver, storage.driver is %q", cfg.Storage.Driver)
	}
	db, err := database.NewDBConnection(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

func printVersion(ctx context.Context, cmd *cobra.Command, db *sql.DB) error {
	v, err := database.MigrationVersion(ctx, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
	return nil
}
