// Package domain defines the canonical interfaces shared between the
// service, store and transport layers. Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/persistorai/caseqc/internal/models"
)

// ReviewTx is the set of operations available inside one atomic unit of
// work. Everything written through a ReviewTx commits together or not at all.
type ReviewTx interface {
	GetReview(ctx context.Context, reviewID string) (*models.Review, error)
	GetCase(ctx context.Context, caseID string) (*models.Case, error)
	InsertReview(ctx context.Context, review *models.Review) error
	// UpdateReview persists review if the stored row still carries
	// expectedVersion; otherwise it returns models.ErrConflict. On success
	// review.Version holds the new version.
	UpdateReview(ctx context.Context, review *models.Review, expectedVersion int64) error
	// PinReview makes the transaction depend on the review still carrying
	// version: it fails with models.ErrConflict, now or at commit, if the
	// review moved.
	PinReview(ctx context.Context, reviewID string, version int64) error
	UpdateCaseStatus(ctx context.Context, caseID string, status models.CaseStatus) error
	// FinalizeCase stores output as the case's accepted output unless one is
	// already stored. It reports whether output was written.
	FinalizeCase(ctx context.Context, caseID string, output *models.CaseOutput) (bool, error)
	InsertChangeLogEntry(ctx context.Context, entry *models.ChangeLogEntry) error
	// ListChangeLogEntries returns every entry for a review, oldest first.
	ListChangeLogEntries(ctx context.Context, reviewID string) ([]models.ChangeLogEntry, error)
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	// Publish queues event for delivery after commit.
	Publish(ctx context.Context, event models.ReviewEvent) error
}

// TxRunner runs fn in a transaction, committing when fn returns nil.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx ReviewTx) error) error
}

// ReviewReader reads committed review and case state.
type ReviewReader interface {
	GetReview(ctx context.Context, reviewID string) (*models.Review, error)
	ListReviews(ctx context.Context, opts models.ReviewListOpts) ([]models.Review, bool, error)
	GetCase(ctx context.Context, caseID string) (*models.Case, error)
}

// CaseRegistrar registers cases handed over by ingestion.
type CaseRegistrar interface {
	// RegisterCase upserts the case and, when audit is non-nil, appends audit
	// in the same transaction.
	RegisterCase(ctx context.Context, req models.RegisterCaseRequest, audit *models.AuditEntry) (*models.Case, error)
}

// ChangeLogReader reads committed change log entries.
type ChangeLogReader interface {
	ListChangeLog(ctx context.Context, opts models.ChangeLogListOpts) ([]models.ChangeLogEntry, bool, error)
	GetChangeLogEntry(ctx context.Context, entryID string) (*models.ChangeLogEntry, error)
}

// AuditLog appends standalone audit entries and queries the log.
type AuditLog interface {
	RecordAudit(ctx context.Context, entry *models.AuditEntry) error
	QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

// Store is everything the services need from persistence.
type Store interface {
	TxRunner
	ReviewReader
	CaseRegistrar
	ChangeLogReader
	AuditLog
}

// ApprovalService is the orchestrator: the only path that mutates reviews.
type ApprovalService interface {
	CreateReview(ctx context.Context, actor models.Actor, req models.CreateReviewRequest) (*models.Review, error)
	RequestTransition(ctx context.Context, actor models.Actor, reviewID string, req models.TransitionRequest) (*models.Review, error)
	RecordChangeLogEntry(ctx context.Context, actor models.Actor, reviewID string, req models.ChangeLogRequest) (*models.ChangeLogEntry, error)
}

// ReviewService defines the access-checked read operations.
type ReviewService interface {
	GetReview(ctx context.Context, actor models.Actor, reviewID string) (*models.Review, error)
	ListReviews(ctx context.Context, actor models.Actor, opts models.ReviewListOpts) ([]models.Review, bool, error)
	ListChangeLogEntries(ctx context.Context, actor models.Actor, opts models.ChangeLogListOpts) ([]models.ChangeLogEntry, bool, error)
	GetChangeLogEntry(ctx context.Context, actor models.Actor, entryID string) (*models.ChangeLogEntry, error)
	ListReviewAudit(ctx context.Context, actor models.Actor, reviewID string, limit, offset int) ([]models.AuditEntry, bool, error)
}

// CaseService defines supervisor case operations.
type CaseService interface {
	RegisterCase(ctx context.Context, actor models.Actor, req models.RegisterCaseRequest) (*models.Case, error)
	GetCase(ctx context.Context, actor models.Actor, caseID string) (*models.Case, error)
}

// AuditService defines audit log queries.
type AuditService interface {
	QueryAudit(ctx context.Context, actor models.Actor, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

// EventBroadcaster fans committed review events out to live subscribers.
type EventBroadcaster interface {
	BroadcastReviewEvent(event models.ReviewEvent)
}
