package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/caseqc/internal/models"
)

// CaseStore provides data access for the cases table.
type CaseStore struct {
	Base
}

// NewCaseStore creates a CaseStore.
func NewCaseStore(base Base) *CaseStore {
	return &CaseStore{Base: base}
}

// GetCase returns a single case by ID, including its finalized output.
func (s *CaseStore) GetCase(ctx context.Context, caseID string) (*models.Case, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	return getCase(ctx, &s.Base, tx, caseID)
}

// RegisterCase creates a case or updates its title and organization, and
// appends audit in the same transaction. The status of an existing case is
// left alone.
func (s *CaseStore) RegisterCase(
	ctx context.Context, req models.RegisterCaseRequest, audit *models.AuditEntry,
) (*models.Case, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	_, err = tx.Exec(ctx, `
		INSERT INTO cases (id, organization_id, title, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			title = EXCLUDED.title,
			updated_at = NOW()`,
		req.ID, req.OrganizationID, req.Title, models.CaseStatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("registering case: %w", err)
	}

	c, err := getCase(ctx, &s.Base, tx, req.ID)
	if err != nil {
		return nil, err
	}

	if audit != nil {
		if err := insertAudit(ctx, tx, audit); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing case registration: %w", err)
	}

	return c, nil
}

// getCase loads one case using tx and decrypts its final output.
func getCase(ctx context.Context, b *Base, tx pgx.Tx, caseID string) (*models.Case, error) {
	row := tx.QueryRow(ctx, "SELECT "+caseColumns+" FROM cases WHERE id = $1", caseID)

	c, finalOutput, err := scanCase(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrCaseNotFound
		}

		return nil, fmt.Errorf("getting case: %w", err)
	}

	if finalOutput != nil {
		out, err := b.decryptOutput(ctx, c.ID, *finalOutput)
		if err != nil {
			return nil, err
		}

		c.FinalOutput = out
	}

	return c, nil
}
