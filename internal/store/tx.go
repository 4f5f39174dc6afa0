package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/caseqc/internal/db"
	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/models"
)

// pgReviewTx implements domain.ReviewTx over a single pgx transaction.
type pgReviewTx struct {
	base *Base
	tx   pgx.Tx
}

var _ domain.ReviewTx = (*pgReviewTx)(nil)

func (t *pgReviewTx) GetReview(ctx context.Context, reviewID string) (*models.Review, error) {
	if !validUUID(reviewID) {
		return nil, models.ErrReviewNotFound
	}

	return getReview(ctx, t.base, t.tx, reviewID)
}

func (t *pgReviewTx) GetCase(ctx context.Context, caseID string) (*models.Case, error) {
	return getCase(ctx, t.base, t.tx, caseID)
}

func (t *pgReviewTx) InsertReview(ctx context.Context, r *models.Review) error {
	outputs, err := json.Marshal(r.ModelOutputs)
	if err != nil {
		return fmt.Errorf("marshalling model outputs: %w", err)
	}

	reviewerNotes, supervisorNotes, err := t.base.encryptNotes(ctx, r)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO reviews (id, case_id, reviewer_id, supervisor_id, status, version,
			model_outputs, reviewer_notes, supervisor_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.CaseID, r.ReviewerID, r.SupervisorID, r.Status, r.Version,
		outputs, reviewerNotes, supervisorNotes, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateKey
		}

		return fmt.Errorf("inserting review: %w", err)
	}

	return nil
}

// UpdateReview writes the fields a transition may change. The version guard
// turns a concurrent commit into ErrConflict instead of a lost update.
func (t *pgReviewTx) UpdateReview(ctx context.Context, r *models.Review, expectedVersion int64) error {
	reviewerNotes, supervisorNotes, err := t.base.encryptNotes(ctx, r)
	if err != nil {
		return err
	}

	var version int64

	err = t.tx.QueryRow(ctx, `
		UPDATE reviews SET
			status = $3,
			supervisor_id = $4,
			reviewer_notes = $5,
			supervisor_notes = $6,
			review_started_at = $7,
			review_completed_at = $8,
			approved_at = $9,
			rejected_at = $10,
			completed_at = $11,
			updated_at = $12,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`,
		r.ID, expectedVersion,
		r.Status, r.SupervisorID, reviewerNotes, supervisorNotes,
		r.ReviewStartedAt, r.ReviewCompletedAt, r.ApprovedAt, r.RejectedAt, r.CompletedAt,
		r.UpdatedAt,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrConflict
		}

		return fmt.Errorf("updating review: %w", err)
	}

	r.Version = version

	return nil
}

// PinReview takes a share lock on the review row, so a concurrent
// transition waits for this transaction, and checks the version under it.
func (t *pgReviewTx) PinReview(ctx context.Context, reviewID string, version int64) error {
	var current int64

	err := t.tx.QueryRow(ctx,
		"SELECT version FROM reviews WHERE id = $1 FOR SHARE", reviewID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrConflict
		}

		return fmt.Errorf("locking review: %w", err)
	}

	if current != version {
		return models.ErrConflict
	}

	return nil
}

func (t *pgReviewTx) UpdateCaseStatus(ctx context.Context, caseID string, status models.CaseStatus) error {
	tag, err := t.tx.Exec(ctx,
		"UPDATE cases SET status = $2, updated_at = NOW() WHERE id = $1", caseID, status)
	if err != nil {
		return fmt.Errorf("updating case status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrCaseNotFound
	}

	return nil
}

func (t *pgReviewTx) FinalizeCase(ctx context.Context, caseID string, out *models.CaseOutput) (bool, error) {
	ciphertext, err := t.base.encryptOutput(ctx, caseID, out)
	if err != nil {
		return false, err
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE cases SET final_output = $2, finalized_at = $3, updated_at = NOW()
		WHERE id = $1 AND final_output IS NULL`,
		caseID, ciphertext, out.ApprovedAt,
	)
	if err != nil {
		return false, fmt.Errorf("finalizing case output: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (t *pgReviewTx) InsertChangeLogEntry(ctx context.Context, e *models.ChangeLogEntry) error {
	enc, err := t.base.encryptChange(ctx, e)
	if err != nil {
		return err
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO review_change_log (id, review_id, field_name, previous_value, new_value,
			annotation, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ReviewID, e.FieldName, enc.previous, enc.next, enc.annotation, e.AuthorID, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateKey
		}

		return fmt.Errorf("inserting change log entry: %w", err)
	}

	return nil
}

func (t *pgReviewTx) ListChangeLogEntries(ctx context.Context, reviewID string) ([]models.ChangeLogEntry, error) {
	rows, err := t.tx.Query(ctx,
		"SELECT "+changeLogColumns+" FROM review_change_log WHERE review_id = $1 ORDER BY id ASC", reviewID)
	if err != nil {
		return nil, fmt.Errorf("listing change log entries: %w", err)
	}
	defer rows.Close()

	return t.base.collectChanges(ctx, rows)
}

func (t *pgReviewTx) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	return insertAudit(ctx, t.tx, e)
}

// Publish issues pg_notify inside the transaction; PostgreSQL delivers it to
// listeners only once the transaction commits.
func (t *pgReviewTx) Publish(ctx context.Context, event models.ReviewEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling review event: %w", err)
	}

	if _, err := t.tx.Exec(ctx, "SELECT pg_notify($1, $2)", db.EventChannel, string(payload)); err != nil {
		return fmt.Errorf("publishing review event: %w", err)
	}

	return nil
}
