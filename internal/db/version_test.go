package db_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/persistorai/caseqc/internal/db"
)

const versionQuery = `SELECT COALESCE\(MAX\(version_id\), 0\) FROM goose_db_version WHERE is_applied`

func TestLatestVersion(t *testing.T) {
	if got := db.LatestVersion(); got < 1 {
		t.Fatalf("LatestVersion = %d, want at least 1 embedded migration", got)
	}
}

func TestAppliedVersion(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()

	mock.ExpectQuery(versionQuery).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(3)))

	got, err := db.AppliedVersion(context.Background(), sqlDB)
	if err != nil {
		t.Fatalf("AppliedVersion: %v", err)
	}

	if got != 3 {
		t.Errorf("AppliedVersion = %d, want 3", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAppliedVersion_QueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()

	mock.ExpectQuery(versionQuery).WillReturnError(errors.New("relation \"goose_db_version\" does not exist"))

	if _, err := db.AppliedVersion(context.Background(), sqlDB); err == nil {
		t.Fatal("expected error")
	}
}

func TestCheckSchema(t *testing.T) {
	tests := []struct {
		name    string
		applied int64
		wantErr string
	}{
		{name: "current", applied: db.LatestVersion()},
		{name: "behind", applied: db.LatestVersion() - 1, wantErr: "binary expects"},
		{name: "ahead", applied: db.LatestVersion() + 1, wantErr: "binary expects"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sqlDB, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock: %v", err)
			}
			defer sqlDB.Close()

			mock.ExpectQuery(versionQuery).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(tc.applied))

			err = db.CheckSchema(context.Background(), sqlDB)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
