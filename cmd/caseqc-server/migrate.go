package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/caseqc/internal/config"
	"github.com/persistorai/caseqc/internal/db"
	"github.com/persistorai/caseqc/internal/db/migrations"
)

const migrateTimeout = 5 * time.Minute

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied and expected schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), false)
		},
	})

	return cmd
}

func runMigrate(parent context.Context, apply bool) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.StoreBackend != config.BackendPostgres {
		return errors.New("migrations only apply to the postgres backend")
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(parent, migrateTimeout)
	defer cancel()

	sqlDB, err := db.OpenSQL(cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer sqlDB.Close() //nolint:errcheck // best-effort on exit.

	if apply {
		if err := db.RunMigrations(ctx, sqlDB, log, migrations.FS); err != nil {
			return err
		}
	}

	applied, err := db.AppliedVersion(ctx, sqlDB)
	if err != nil {
		return err
	}

	fmt.Printf("schema version %d (binary expects %d)\n", applied, db.LatestVersion())

	return nil
}
