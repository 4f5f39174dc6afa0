package api_test

import (
	"context"

	"github.com/persistorai/caseqc/internal/models"
)

// mockApprovals implements api.ApprovalService for testing.
type mockApprovals struct {
	createFn     func(ctx context.Context, actor models.Actor, req models.CreateReviewRequest) (*models.Review, error)
	transitionFn func(ctx context.Context, actor models.Actor, reviewID string, req models.TransitionRequest) (*models.Review, error)
	recordFn     func(ctx context.Context, actor models.Actor, reviewID string, req models.ChangeLogRequest) (*models.ChangeLogEntry, error)
}

func (m *mockApprovals) CreateReview(ctx context.Context, actor models.Actor, req models.CreateReviewRequest) (*models.Review, error) {
	return m.createFn(ctx, actor, req)
}

func (m *mockApprovals) RequestTransition(ctx context.Context, actor models.Actor, reviewID string, req models.TransitionRequest) (*models.Review, error) {
	return m.transitionFn(ctx, actor, reviewID, req)
}

func (m *mockApprovals) RecordChangeLogEntry(ctx context.Context, actor models.Actor, reviewID string, req models.ChangeLogRequest) (*models.ChangeLogEntry, error) {
	return m.recordFn(ctx, actor, reviewID, req)
}

// mockReviews implements api.ReviewService for testing.
type mockReviews struct {
	getFn         func(ctx context.Context, actor models.Actor, reviewID string) (*models.Review, error)
	listFn        func(ctx context.Context, actor models.Actor, opts models.ReviewListOpts) ([]models.Review, bool, error)
	listChangesFn func(ctx context.Context, actor models.Actor, opts models.ChangeLogListOpts) ([]models.ChangeLogEntry, bool, error)
	getChangeFn   func(ctx context.Context, actor models.Actor, entryID string) (*models.ChangeLogEntry, error)
	auditFn       func(ctx context.Context, actor models.Actor, reviewID string, limit, offset int) ([]models.AuditEntry, bool, error)
}

func (m *mockReviews) GetReview(ctx context.Context, actor models.Actor, reviewID string) (*models.Review, error) {
	return m.getFn(ctx, actor, reviewID)
}

func (m *mockReviews) ListReviews(ctx context.Context, actor models.Actor, opts models.ReviewListOpts) ([]models.Review, bool, error) {
	return m.listFn(ctx, actor, opts)
}

func (m *mockReviews) ListChangeLogEntries(ctx context.Context, actor models.Actor, opts models.ChangeLogListOpts) ([]models.ChangeLogEntry, bool, error) {
	return m.listChangesFn(ctx, actor, opts)
}

func (m *mockReviews) GetChangeLogEntry(ctx context.Context, actor models.Actor, entryID string) (*models.ChangeLogEntry, error) {
	return m.getChangeFn(ctx, actor, entryID)
}

func (m *mockReviews) ListReviewAudit(ctx context.Context, actor models.Actor, reviewID string, limit, offset int) ([]models.AuditEntry, bool, error) {
	return m.auditFn(ctx, actor, reviewID, limit, offset)
}

// mockCases implements api.CaseService for testing.
type mockCases struct {
	registerFn func(ctx context.Context, actor models.Actor, req models.RegisterCaseRequest) (*models.Case, error)
	getFn      func(ctx context.Context, actor models.Actor, caseID string) (*models.Case, error)
}

func (m *mockCases) RegisterCase(ctx context.Context, actor models.Actor, req models.RegisterCaseRequest) (*models.Case, error) {
	return m.registerFn(ctx, actor, req)
}

func (m *mockCases) GetCase(ctx context.Context, actor models.Actor, caseID string) (*models.Case, error) {
	return m.getFn(ctx, actor, caseID)
}

// mockAudits implements api.AuditService for testing.
type mockAudits struct {
	queryFn func(ctx context.Context, actor models.Actor, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

func (m *mockAudits) QueryAudit(ctx context.Context, actor models.Actor, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	return m.queryFn(ctx, actor, opts)
}

// mockPinger implements api.DBPinger for testing.
type mockPinger struct {
	err error
}

func (m *mockPinger) HealthCheck(context.Context) error { return m.err }
