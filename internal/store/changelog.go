package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/caseqc/internal/models"
)

// ChangeLogStore reads the review_change_log table. Entries are written only
// inside an approval transaction (see pgReviewTx) and never updated.
type ChangeLogStore struct {
	Base
}

// NewChangeLogStore creates a ChangeLogStore.
func NewChangeLogStore(base Base) *ChangeLogStore {
	return &ChangeLogStore{Base: base}
}

// ListChangeLog returns change log entries for a review, newest first, with
// optional field and author filters and has_more pagination.
func (s *ChangeLogStore) ListChangeLog(
	ctx context.Context, opts models.ChangeLogListOpts,
) ([]models.ChangeLogEntry, bool, error) {
	if !validUUID(opts.ReviewID) {
		return []models.ChangeLogEntry{}, false, nil
	}

	limit, offset := normalizePage(opts.Limit, opts.Offset)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("listing change log: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	query := "SELECT " + changeLogColumns + " FROM review_change_log WHERE review_id = $1"
	args := []any{opts.ReviewID}
	argIdx := 2

	if opts.FieldName != "" {
		query += fmt.Sprintf(" AND field_name = $%d", argIdx)
		args = append(args, opts.FieldName)
		argIdx++
	}

	if opts.AuthorID != "" {
		query += fmt.Sprintf(" AND author_id = $%d", argIdx)
		args = append(args, opts.AuthorID)
		argIdx++
	}

	query += " ORDER BY id DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit+1, offset)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying change log: %w", err)
	}
	defer rows.Close()

	entries, err := s.collectChanges(ctx, rows)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	return entries, hasMore, nil
}

// GetChangeLogEntry returns a single change log entry by ID.
func (s *ChangeLogStore) GetChangeLogEntry(ctx context.Context, entryID string) (*models.ChangeLogEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	row := tx.QueryRow(ctx, "SELECT "+changeLogColumns+" FROM review_change_log WHERE id = $1", entryID)

	e, err := scanChangeLogEntry(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrChangeNotFound
		}

		return nil, fmt.Errorf("getting change log entry: %w", err)
	}

	if err := s.decryptChange(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}
