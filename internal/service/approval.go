// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/ids"
	"github.com/persistorai/caseqc/internal/metrics"
	"github.com/persistorai/caseqc/internal/models"
	"github.com/persistorai/caseqc/internal/workflow"
)

// Compile-time check: *ApprovalService must satisfy domain.ApprovalService.
var _ domain.ApprovalService = (*ApprovalService)(nil)

// ApprovalService is the only writer of reviews and case status. Each
// operation validates against committed state and applies all of its effects
// in one transaction.
type ApprovalService struct {
	store domain.TxRunner
	table *workflow.Table
	log   *logrus.Logger
	now   func() time.Time
}

// ApprovalOption configures an ApprovalService.
type ApprovalOption func(*ApprovalService)

// WithClock overrides the time source used for review timestamps.
func WithClock(now func() time.Time) ApprovalOption {
	return func(s *ApprovalService) { s.now = now }
}

// NewApprovalService creates an ApprovalService over store using table as the
// transition rules.
func NewApprovalService(
	store domain.TxRunner, table *workflow.Table, log *logrus.Logger, opts ...ApprovalOption,
) *ApprovalService {
	s := &ApprovalService{store: store, table: table, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateReview opens a PENDING review on an existing case.
func (s *ApprovalService) CreateReview(
	ctx context.Context, actor models.Actor, req models.CreateReviewRequest,
) (*models.Review, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !actor.Role.AtLeast(models.RoleReviewer) {
		return nil, models.ErrAccessDenied
	}

	now := s.now().UTC()
	outputs := append([]models.ModelOutputRef{}, req.ModelOutputs...)
	review := &models.Review{
		ID:           uuid.NewString(),
		CaseID:       req.CaseID,
		ReviewerID:   req.ReviewerID,
		Status:       models.StatusPending,
		Version:      1,
		ModelOutputs: outputs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx domain.ReviewTx) error {
		if _, err := tx.GetCase(ctx, req.CaseID); err != nil {
			return err
		}

		if err := tx.InsertReview(ctx, review); err != nil {
			return err
		}

		if err := tx.AppendAudit(ctx, &models.AuditEntry{
			Action:      models.AuditReviewCreate,
			EntityType:  models.EntityReview,
			EntityID:    review.ID,
			ReviewID:    review.ID,
			CaseID:      review.CaseID,
			Actor:       actor.ID,
			StatusAfter: review.Status,
			Detail: map[string]any{
				"role":          string(actor.Role),
				"reviewer_id":   review.ReviewerID,
				"model_outputs": len(review.ModelOutputs),
			},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		return tx.Publish(ctx, reviewEvent(models.EventReviewCreated, review, actor, "", now))
	})
	if err != nil {
		return nil, persistenceErr(err)
	}

	metrics.ReviewsCreated.Inc()
	s.log.WithFields(logrus.Fields{
		"review_id":   review.ID,
		"case_id":     review.CaseID,
		"reviewer_id": review.ReviewerID,
		"actor":       actor.ID,
	}).Info("review created")

	return review, nil
}

// RequestTransition moves a review to req.TargetStatus when the table allows
// it for the actor's role. A concurrent commit against the same review yields
// models.ErrConflict; the caller decides whether to re-read and retry.
func (s *ApprovalService) RequestTransition(
	ctx context.Context, actor models.Actor, reviewID string, req models.TransitionRequest,
) (*models.Review, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		from    models.ReviewStatus
		updated *models.Review
		final   bool
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx domain.ReviewTx) error {
		review, err := tx.GetReview(ctx, reviewID)
		if err != nil {
			return err
		}

		if !workflow.IsAuthorizedActor(review, actor) {
			return models.ErrAccessDenied
		}

		from = review.Status
		if !s.table.Permits(from, actor.Role, req.TargetStatus) {
			return &models.TransitionError{
				From:    from,
				To:      req.TargetStatus,
				Role:    actor.Role,
				Allowed: s.table.Allowed(from, actor.Role),
			}
		}

		now := s.now().UTC()
		updated = review.Clone()
		applyTransition(updated, actor, req, now)

		if err := tx.UpdateReview(ctx, updated, review.Version); err != nil {
			return err
		}

		if req.TargetStatus == models.StatusSupervisorApproved {
			if err := tx.UpdateCaseStatus(ctx, updated.CaseID, models.CaseStatusSupervisorApproved); err != nil {
				return err
			}

			if final, err = finalizeCase(ctx, tx, updated, actor, now); err != nil {
				return err
			}
		}

		detail := map[string]any{"role": string(actor.Role), "version": updated.Version}
		if req.Notes != nil {
			detail["notes"] = *req.Notes
		}

		if err := tx.AppendAudit(ctx, &models.AuditEntry{
			Action:       models.AuditReviewTransition,
			EntityType:   models.EntityReview,
			EntityID:     updated.ID,
			ReviewID:     updated.ID,
			CaseID:       updated.CaseID,
			Actor:        actor.ID,
			StatusBefore: from,
			StatusAfter:  updated.Status,
			Detail:       detail,
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		return tx.Publish(ctx, reviewEvent(models.EventReviewTransitioned, updated, actor, from, now))
	})

	fields := logrus.Fields{
		"review_id": reviewID,
		"actor":     actor.ID,
		"role":      actor.Role,
		"from":      from,
		"to":        req.TargetStatus,
	}

	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(statusLabel(from), string(req.TargetStatus), transitionResult(err)).Inc()

		switch {
		case errors.Is(err, models.ErrConflict):
			s.log.WithFields(fields).Info("review transition conflicted")
		case errors.Is(err, models.ErrAccessDenied):
			s.log.WithFields(fields).Warn("review transition denied")
		case !models.IsDomainError(err):
			s.log.WithFields(fields).WithError(err).Error("review transition failed")
		}

		return nil, persistenceErr(err)
	}

	metrics.TransitionsTotal.WithLabelValues(string(from), string(updated.Status), "ok").Inc()
	if final {
		metrics.CasesFinalized.Inc()
		s.log.WithFields(fields).WithField("case_id", updated.CaseID).Info("case output finalized")
	}

	s.log.WithFields(fields).WithField("version", updated.Version).Info("review transitioned")

	return updated, nil
}

// RecordChangeLogEntry appends one field correction to a review's change log.
// The review's status and version are left alone.
func (s *ApprovalService) RecordChangeLogEntry(
	ctx context.Context, actor models.Actor, reviewID string, req models.ChangeLogRequest,
) (*models.ChangeLogEntry, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}

	if !actor.Role.AtLeast(models.RoleReviewer) {
		return nil, models.ErrAccessDenied
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var entry *models.ChangeLogEntry

	err := s.store.WithTx(ctx, func(ctx context.Context, tx domain.ReviewTx) error {
		review, err := tx.GetReview(ctx, reviewID)
		if err != nil {
			return err
		}

		if !workflow.IsAuthorizedActor(review, actor) {
			return models.ErrAccessDenied
		}

		if review.Status == models.StatusCompleted {
			return models.ErrReviewClosed
		}

		if err := tx.PinReview(ctx, review.ID, review.Version); err != nil {
			return err
		}

		now := s.now().UTC()
		entry = &models.ChangeLogEntry{
			ID:            ids.NewAt(now),
			ReviewID:      review.ID,
			FieldName:     req.FieldName,
			PreviousValue: req.PreviousValue,
			NewValue:      req.NewValue,
			Annotation:    req.Annotation,
			AuthorID:      actor.ID,
			CreatedAt:     now,
		}

		if err := tx.InsertChangeLogEntry(ctx, entry); err != nil {
			return err
		}

		if err := tx.AppendAudit(ctx, &models.AuditEntry{
			Action:     models.AuditChangeLogRecord,
			EntityType: models.EntityChangeLog,
			EntityID:   entry.ID,
			ReviewID:   review.ID,
			CaseID:     review.CaseID,
			Actor:      actor.ID,
			Detail:     map[string]any{"field_name": entry.FieldName, "role": string(actor.Role)},
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		return tx.Publish(ctx, reviewEvent(models.EventChangeRecorded, review, actor, "", now))
	})
	if err != nil {
		if !models.IsDomainError(err) {
			s.log.WithError(err).WithField("review_id", reviewID).Error("recording change log entry failed")
		}

		return nil, persistenceErr(err)
	}

	metrics.ChangeEntriesTotal.Inc()
	s.log.WithFields(logrus.Fields{
		"review_id":  reviewID,
		"change_id":  entry.ID,
		"field_name": entry.FieldName,
		"actor":      actor.ID,
	}).Info("change log entry recorded")

	return entry, nil
}

// applyTransition sets the status, notes, supervisor and timestamp fields a
// transition to req.TargetStatus changes. Nothing else on r is touched.
func applyTransition(r *models.Review, actor models.Actor, req models.TransitionRequest, now time.Time) {
	r.Status = req.TargetStatus
	r.UpdatedAt = now

	if req.Notes != nil {
		if actor.Role == models.RoleSupervisor {
			r.SupervisorNotes = *req.Notes
		} else {
			r.ReviewerNotes = *req.Notes
		}
	}

	if actor.Role == models.RoleSupervisor {
		id := actor.ID
		r.SupervisorID = &id
	}

	stamp := now
	switch req.TargetStatus {
	case models.StatusInReview:
		if r.ReviewStartedAt == nil {
			r.ReviewStartedAt = &stamp
		}
	case models.StatusReviewerApproved:
		r.ReviewCompletedAt = &stamp
	case models.StatusSupervisorApproved:
		r.ApprovedAt = &stamp
	case models.StatusRejected:
		r.RejectedAt = &stamp
	case models.StatusCompleted:
		r.CompletedAt = &stamp
	case models.StatusPending, models.StatusChangesRequested:
	}
}

// finalizeCase writes the review's accepted corrections as the case output
// unless an earlier approval already did.
func finalizeCase(
	ctx context.Context, tx domain.ReviewTx, r *models.Review, actor models.Actor, now time.Time,
) (bool, error) {
	c, err := tx.GetCase(ctx, r.CaseID)
	if err != nil {
		return false, err
	}

	if c.FinalOutput != nil {
		return false, nil
	}

	entries, err := tx.ListChangeLogEntries(ctx, r.ID)
	if err != nil {
		return false, err
	}

	return tx.FinalizeCase(ctx, r.CaseID, buildCaseOutput(r, actor, now, entries))
}

// buildCaseOutput folds change log entries into the last value recorded per
// field. Entries are ordered by CreatedAt, then ID.
func buildCaseOutput(r *models.Review, actor models.Actor, now time.Time, entries []models.ChangeLogEntry) *models.CaseOutput {
	entries = slices.Clone(entries)
	slices.SortStableFunc(entries, func(a, b models.ChangeLogEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	out := &models.CaseOutput{
		ReviewID:     r.ID,
		ApprovedBy:   actor.ID,
		ApprovedAt:   now,
		ModelOutputs: append([]models.ModelOutputRef{}, r.ModelOutputs...),
		Fields:       make(map[string]models.FinalField, len(entries)),
		ChangeCount:  len(entries),
	}

	for _, e := range entries {
		out.Fields[e.FieldName] = models.FinalField{
			Value:     e.NewValue,
			ChangeID:  e.ID,
			AuthorID:  e.AuthorID,
			ChangedAt: e.CreatedAt,
		}
	}

	return out
}

func reviewEvent(
	typ string, r *models.Review, actor models.Actor, from models.ReviewStatus, at time.Time,
) models.ReviewEvent {
	ev := models.ReviewEvent{
		Type:       typ,
		ReviewID:   r.ID,
		CaseID:     r.CaseID,
		ReviewerID: r.ReviewerID,
		Actor:      actor.ID,
		Version:    r.Version,
		At:         at,
	}

	if typ == models.EventReviewTransitioned {
		ev.From = from
		ev.To = r.Status
	}

	return ev
}

// persistenceErr passes domain errors through and wraps anything else,
// including timeouts, as models.ErrPersistence.
func persistenceErr(err error) error {
	if models.IsDomainError(err) {
		return err
	}

	return fmt.Errorf("%w: %w", models.ErrPersistence, err)
}

func transitionResult(err error) string {
	switch {
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid"
	case errors.Is(err, models.ErrAccessDenied):
		return "denied"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func statusLabel(s models.ReviewStatus) string {
	if s == "" {
		return "unknown"
	}

	return string(s)
}
