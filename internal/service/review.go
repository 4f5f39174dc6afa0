package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/models"
	"github.com/persistorai/caseqc/internal/workflow"
)

// ReviewReadStore is the data-access interface ReviewService depends on.
type ReviewReadStore interface {
	domain.ReviewReader
	domain.ChangeLogReader
	QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

// Compile-time check: *ReviewService must satisfy domain.ReviewService.
var _ domain.ReviewService = (*ReviewService)(nil)

// ReviewService serves access-checked reads of reviews and their change logs.
type ReviewService struct {
	store       ReviewReadStore
	auditWorker AuditEnqueuer
	log         *logrus.Logger
}

// NewReviewService creates a ReviewService.
func NewReviewService(store ReviewReadStore, auditWorker AuditEnqueuer, log *logrus.Logger) *ReviewService {
	return &ReviewService{store: store, auditWorker: auditWorker, log: log}
}

// GetReview returns a review to its assigned reviewer or a supervisor.
func (s *ReviewService) GetReview(ctx context.Context, actor models.Actor, reviewID string) (*models.Review, error) {
	review, err := s.authorizedReview(ctx, actor, reviewID, "get_review")
	if err != nil {
		return nil, err
	}

	return review, nil
}

// ListReviews returns reviews visible to actor. Reviewers see only their own
// assignments; Mine narrows a supervisor's view the same way.
func (s *ReviewService) ListReviews(
	ctx context.Context, actor models.Actor, opts models.ReviewListOpts,
) ([]models.Review, bool, error) {
	if !actor.Authenticated() {
		return nil, false, models.ErrUnauthorized
	}

	if opts.Status != "" && !opts.Status.Valid() {
		return nil, false, &models.ValidationError{Field: "status", Message: "unknown status " + string(opts.Status)}
	}

	if actor.Role != models.RoleSupervisor || opts.Mine {
		if opts.ReviewerID != "" && opts.ReviewerID != actor.ID {
			return []models.Review{}, false, nil
		}

		opts.ReviewerID = actor.ID
	}

	reviews, hasMore, err := s.store.ListReviews(ctx, opts)
	if err != nil {
		return nil, false, persistenceErr(err)
	}

	return reviews, hasMore, nil
}

// ListChangeLogEntries returns a review's change log, newest first.
func (s *ReviewService) ListChangeLogEntries(
	ctx context.Context, actor models.Actor, opts models.ChangeLogListOpts,
) ([]models.ChangeLogEntry, bool, error) {
	if _, err := s.authorizedReview(ctx, actor, opts.ReviewID, "list_changes"); err != nil {
		return nil, false, err
	}

	entries, hasMore, err := s.store.ListChangeLog(ctx, opts)
	if err != nil {
		return nil, false, persistenceErr(err)
	}

	return entries, hasMore, nil
}

// GetChangeLogEntry returns one change log entry if actor may read its review.
func (s *ReviewService) GetChangeLogEntry(
	ctx context.Context, actor models.Actor, entryID string,
) (*models.ChangeLogEntry, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}

	entry, err := s.store.GetChangeLogEntry(ctx, entryID)
	if err != nil {
		return nil, persistenceErr(err)
	}

	if _, err := s.authorizedReview(ctx, actor, entry.ReviewID, "get_change"); err != nil {
		return nil, err
	}

	return entry, nil
}

// ListReviewAudit returns the audit trail of one review, newest first.
func (s *ReviewService) ListReviewAudit(
	ctx context.Context, actor models.Actor, reviewID string, limit, offset int,
) ([]models.AuditEntry, bool, error) {
	if _, err := s.authorizedReview(ctx, actor, reviewID, "list_audit"); err != nil {
		return nil, false, err
	}

	entries, hasMore, err := s.store.QueryAudit(ctx, models.AuditQueryOpts{
		ReviewID: reviewID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, false, persistenceErr(err)
	}

	return entries, hasMore, nil
}

// authorizedReview loads a review and applies the read rule, auditing denials.
func (s *ReviewService) authorizedReview(
	ctx context.Context, actor models.Actor, reviewID, operation string,
) (*models.Review, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}

	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, persistenceErr(err)
	}

	if !workflow.IsAuthorizedActor(review, actor) {
		s.auditDenied(actor, review, operation)
		return nil, models.ErrAccessDenied
	}

	return review, nil
}

// auditDenied enqueues a review.access_denied entry (best-effort, non-blocking).
func (s *ReviewService) auditDenied(actor models.Actor, review *models.Review, operation string) {
	s.log.WithFields(logrus.Fields{
		"review_id": review.ID,
		"actor":     actor.ID,
		"role":      actor.Role,
		"operation": operation,
	}).Warn("review access denied")

	if s.auditWorker == nil {
		return
	}

	s.auditWorker.Enqueue(&models.AuditEntry{
		Action:     models.AuditReviewAccessDenied,
		EntityType: models.EntityReview,
		EntityID:   review.ID,
		ReviewID:   review.ID,
		CaseID:     review.CaseID,
		Actor:      actor.ID,
		Detail:     map[string]any{"operation": operation, "role": string(actor.Role)},
	})
}
