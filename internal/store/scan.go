package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/caseqc/internal/models"
)

// reviewColumns lists the columns selected for review queries.
const reviewColumns = `id, case_id, reviewer_id, supervisor_id, status, version,
	model_outputs, reviewer_notes, supervisor_notes,
	review_started_at, review_completed_at, approved_at, rejected_at, completed_at,
	created_at, updated_at`

// changeLogColumns lists the columns selected for change log queries.
const changeLogColumns = `id, review_id, field_name, previous_value, new_value,
	annotation, author_id, created_at`

// caseColumns lists the columns selected for case queries.
const caseColumns = `id, organization_id, title, status, final_output, finalized_at,
	created_at, updated_at`

// auditColumns lists the columns selected for audit queries.
const auditColumns = `id, action, entity_type, entity_id, review_id, case_id, actor,
	status_before, status_after, detail, created_at`

// scanReview scans a single row into a models.Review. Notes are still
// encrypted; callers run decryptReview.
func scanReview(scan func(dest ...any) error) (*models.Review, error) {
	var r models.Review
	var outputs []byte

	err := scan(
		&r.ID,
		&r.CaseID,
		&r.ReviewerID,
		&r.SupervisorID,
		&r.Status,
		&r.Version,
		&outputs,
		&r.ReviewerNotes,
		&r.SupervisorNotes,
		&r.ReviewStartedAt,
		&r.ReviewCompletedAt,
		&r.ApprovedAt,
		&r.RejectedAt,
		&r.CompletedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(outputs, &r.ModelOutputs); err != nil {
		return nil, fmt.Errorf("unmarshalling review model outputs: %w", err)
	}

	return &r, nil
}

// scanChangeLogEntry scans a single row into a models.ChangeLogEntry.
// Values are still encrypted; callers run decryptChange.
func scanChangeLogEntry(scan func(dest ...any) error) (*models.ChangeLogEntry, error) {
	var e models.ChangeLogEntry

	err := scan(
		&e.ID,
		&e.ReviewID,
		&e.FieldName,
		&e.PreviousValue,
		&e.NewValue,
		&e.Annotation,
		&e.AuthorID,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// scanCase scans a single row into a models.Case, returning the encrypted
// final output alongside it.
func scanCase(scan func(dest ...any) error) (*models.Case, *string, error) {
	var c models.Case
	var finalOutput *string

	err := scan(
		&c.ID,
		&c.OrganizationID,
		&c.Title,
		&c.Status,
		&finalOutput,
		&c.FinalizedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, nil, err
	}

	return &c, finalOutput, nil
}

// collectReviews scans and decrypts all rows into a review slice.
func (b *Base) collectReviews(ctx context.Context, rows pgx.Rows) ([]models.Review, error) {
	reviews := make([]models.Review, 0, 16)

	for rows.Next() {
		r, err := scanReview(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning review row: %w", err)
		}

		reviews = append(reviews, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating review rows: %w", err)
	}

	for i := range reviews {
		if err := b.decryptReview(ctx, &reviews[i]); err != nil {
			return nil, err
		}
	}

	return reviews, nil
}

// collectChanges scans and decrypts all rows into a change log slice.
func (b *Base) collectChanges(ctx context.Context, rows pgx.Rows) ([]models.ChangeLogEntry, error) {
	entries := make([]models.ChangeLogEntry, 0, 16)

	for rows.Next() {
		e, err := scanChangeLogEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning change log row: %w", err)
		}

		entries = append(entries, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change log rows: %w", err)
	}

	for i := range entries {
		if err := b.decryptChange(ctx, &entries[i]); err != nil {
			return nil, err
		}
	}

	return entries, nil
}
