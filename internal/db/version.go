package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/persistorai/caseqc/internal/db/migrations"
)

// LatestVersion returns the number of embedded SQL migration files, which
// equals the schema version this binary expects.
func LatestVersion() int64 {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return 0
	}

	var count int64
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}

	return count
}

// AppliedVersion returns the highest migration version goose has applied,
// or 0 on a fresh database.
func AppliedVersion(ctx context.Context, sqlDB *sql.DB) (int64, error) {
	var version int64

	err := sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading applied schema version: %w", err)
	}

	return version, nil
}

// CheckSchema returns an error unless the database is migrated to exactly
// the version this binary expects.
func CheckSchema(ctx context.Context, sqlDB *sql.DB) error {
	applied, err := AppliedVersion(ctx, sqlDB)
	if err != nil {
		return err
	}

	if want := LatestVersion(); applied != want {
		return fmt.Errorf("schema version %d, binary expects %d", applied, want)
	}

	return nil
}
