package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/models"
)

// AuditStore provides data access for the append-only audit_log table.
// There is deliberately no update or delete path.
type AuditStore struct {
	Base
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(base Base) *AuditStore {
	return &AuditStore{Base: base}
}

// RecordAudit appends an audit entry in its own transaction. Used for
// actions that are not part of an approval transaction, such as denied reads.
func (s *AuditStore) RecordAudit(ctx context.Context, entry *models.AuditEntry) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	if err := insertAudit(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// insertAudit appends entry using tx and fills in its ID.
func insertAudit(ctx context.Context, tx pgx.Tx, e *models.AuditEntry) error {
	var detailJSON []byte
	if e.Detail != nil {
		var err error

		detailJSON, err = json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO audit_log (action, entity_type, entity_id, review_id, case_id, actor,
			status_before, status_after, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		e.Action, e.EntityType, e.EntityID,
		nullIfEmpty(e.ReviewID), nullIfEmpty(e.CaseID), e.Actor,
		nullIfEmpty(string(e.StatusBefore)), nullIfEmpty(string(e.StatusAfter)),
		detailJSON, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// buildAuditFilter builds WHERE clause and args from AuditQueryOpts.
func buildAuditFilter(opts models.AuditQueryOpts) (where string, args []any, nextArg int) {
	var conditions []string
	argIdx := 1

	if opts.ReviewID != "" {
		if !validUUID(opts.ReviewID) {
			conditions = append(conditions, "FALSE")
		} else {
			conditions = append(conditions, "review_id = $"+strconv.Itoa(argIdx))
			args = append(args, opts.ReviewID)
			argIdx++
		}
	}
	if opts.CaseID != "" {
		conditions = append(conditions, "case_id = $"+strconv.Itoa(argIdx))
		args = append(args, opts.CaseID)
		argIdx++
	}
	if opts.Actor != "" {
		conditions = append(conditions, "actor = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Actor)
		argIdx++
	}
	if opts.Action != "" {
		conditions = append(conditions, "action = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Action)
		argIdx++
	}
	if opts.EntityType != "" {
		conditions = append(conditions, "entity_type = $"+strconv.Itoa(argIdx))
		args = append(args, opts.EntityType)
		argIdx++
	}
	if opts.Since != nil {
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(argIdx))
		args = append(args, *opts.Since)
		argIdx++
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, argIdx
}

// QueryAudit returns audit entries matching the given filters, newest first.
// Returns entries, hasMore flag, and any error.
func (s *AuditStore) QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	where, args, argIdx := buildAuditFilter(opts)

	query := fmt.Sprintf(
		"SELECT %s FROM audit_log %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		auditColumns, where, argIdx, argIdx+1,
	)
	args = append(args, limit+1, offset)

	entries, err := scanAuditRows(ctx, tx, query, args, s.Log)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	return entries, hasMore, nil
}

// scanAuditRows executes a query and scans audit entries from the result.
func scanAuditRows(ctx context.Context, tx pgx.Tx, query string, args []any, log *logrus.Logger) ([]models.AuditEntry, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0, 16)
	for rows.Next() {
		var e models.AuditEntry
		var detailJSON []byte
		var reviewID, caseID, before, after *string

		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &reviewID, &caseID, &e.Actor,
			&before, &after, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if reviewID != nil {
			e.ReviewID = *reviewID
		}
		if caseID != nil {
			e.CaseID = *caseID
		}
		if before != nil {
			e.StatusBefore = models.ReviewStatus(*before)
		}
		if after != nil {
			e.StatusAfter = models.ReviewStatus(*after)
		}
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				log.WithError(err).Warn("failed to unmarshal audit detail")
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	return entries, nil
}
