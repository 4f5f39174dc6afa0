package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/models"
	"github.com/persistorai/caseqc/internal/store"
	"github.com/persistorai/caseqc/internal/workflow"
)

var (
	reviewer      = models.Actor{ID: "rev-1", Role: models.RoleReviewer}
	otherReviewer = models.Actor{ID: "rev-2", Role: models.RoleReviewer}
	supervisor    = models.Actor{ID: "sup-1", Role: models.RoleSupervisor}
	plainUser     = models.Actor{ID: "rev-1", Role: models.RoleUser}
)

// fataler is satisfied by *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

// harness wires an ApprovalService and ReviewService over a fresh memory store
// with one registered case.
type harness struct {
	store    *store.Memory
	approval *ApprovalService
	reviews  *ReviewService
	audits   *mockEnqueuer
	caseID   string
}

func newHarness(t fataler) *harness {
	t.Helper()

	m := store.NewMemory()
	if _, err := m.RegisterCase(context.Background(), models.RegisterCaseRequest{ID: "case-1", Title: "Case"}, nil); err != nil {
		t.Fatalf("RegisterCase: %v", err)
	}

	enq := &mockEnqueuer{}
	log := quietLogger()

	return &harness{
		store:    m,
		approval: NewApprovalService(m, workflow.DefaultTable(), log, WithClock(func() time.Time { return testNow })),
		reviews:  NewReviewService(m, enq, log),
		audits:   enq,
		caseID:   "case-1",
	}
}

// seedReview stores a review assigned to rev-1 directly in status.
func (h *harness) seedReview(t fataler, status models.ReviewStatus) *models.Review {
	t.Helper()

	r := &models.Review{
		ID:           uuid.NewString(),
		CaseID:       h.caseID,
		ReviewerID:   reviewer.ID,
		Status:       status,
		Version:      1,
		ModelOutputs: []models.ModelOutputRef{{Model: "m1", OutputID: "o1"}},
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}

	err := h.store.WithTx(context.Background(), func(ctx context.Context, tx domain.ReviewTx) error {
		return tx.InsertReview(ctx, r)
	})
	if err != nil {
		t.Fatalf("seeding review: %v", err)
	}

	return r
}

func (h *harness) auditCount(t fataler, reviewID string) int {
	t.Helper()

	entries, _, err := h.store.QueryAudit(context.Background(), models.AuditQueryOpts{ReviewID: reviewID, Limit: 1000})
	if err != nil {
		t.Fatalf("QueryAudit: %v", err)
	}

	return len(entries)
}

// mockAuditor records audit calls.
type mockAuditor struct {
	mu    sync.Mutex
	calls []models.AuditEntry

	err error
}

func (m *mockAuditor) RecordAudit(_ context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, *entry)
	return m.err
}

func (m *mockAuditor) getCalls() []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]models.AuditEntry, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// mockEnqueuer records enqueued audit entries.
type mockEnqueuer struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (m *mockEnqueuer) Enqueue(entry *models.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
}

func (m *mockEnqueuer) getEntries() []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]models.AuditEntry, len(m.entries))
	copy(cp, m.entries)
	return cp
}

// failingRunner wraps a TxRunner and makes one ReviewTx method fail.
type failingRunner struct {
	inner  domain.TxRunner
	method string
	err    error
}

func (f *failingRunner) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.ReviewTx) error) error {
	return f.inner.WithTx(ctx, func(ctx context.Context, tx domain.ReviewTx) error {
		return fn(ctx, &failingTx{ReviewTx: tx, method: f.method, err: f.err})
	})
}

type failingTx struct {
	domain.ReviewTx
	method string
	err    error
}

func (f *failingTx) fail(name string) error {
	if f.method == name {
		return f.err
	}
	return nil
}

func (f *failingTx) UpdateCaseStatus(ctx context.Context, caseID string, status models.CaseStatus) error {
	if err := f.fail("UpdateCaseStatus"); err != nil {
		return err
	}
	return f.ReviewTx.UpdateCaseStatus(ctx, caseID, status)
}

func (f *failingTx) FinalizeCase(ctx context.Context, caseID string, out *models.CaseOutput) (bool, error) {
	if err := f.fail("FinalizeCase"); err != nil {
		return false, err
	}
	return f.ReviewTx.FinalizeCase(ctx, caseID, out)
}

func (f *failingTx) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	if err := f.fail("AppendAudit"); err != nil {
		return err
	}
	return f.ReviewTx.AppendAudit(ctx, e)
}

func (f *failingTx) Publish(ctx context.Context, ev models.ReviewEvent) error {
	if err := f.fail("Publish"); err != nil {
		return err
	}
	return f.ReviewTx.Publish(ctx, ev)
}

// barrierRunner holds every transaction after its first review read until
// all parties have read, forcing them to validate against the same version.
type barrierRunner struct {
	inner domain.TxRunner
	wg    *sync.WaitGroup
}

func newBarrierRunner(inner domain.TxRunner, parties int) *barrierRunner {
	wg := &sync.WaitGroup{}
	wg.Add(parties)
	return &barrierRunner{inner: inner, wg: wg}
}

func (b *barrierRunner) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.ReviewTx) error) error {
	return b.inner.WithTx(ctx, func(ctx context.Context, tx domain.ReviewTx) error {
		return fn(ctx, &barrierTx{ReviewTx: tx, wg: b.wg})
	})
}

type barrierTx struct {
	domain.ReviewTx
	wg   *sync.WaitGroup
	once sync.Once
}

func (b *barrierTx) GetReview(ctx context.Context, reviewID string) (*models.Review, error) {
	r, err := b.ReviewTx.GetReview(ctx, reviewID)
	b.once.Do(func() {
		b.wg.Done()
		b.wg.Wait()
	})
	return r, err
}

// beforeCommitRunner runs hook after fn succeeds and before the
// transaction commits.
type beforeCommitRunner struct {
	inner domain.TxRunner
	hook  func(ctx context.Context)
}

func (b *beforeCommitRunner) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.ReviewTx) error) error {
	return b.inner.WithTx(ctx, func(ctx context.Context, tx domain.ReviewTx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		b.hook(ctx)
		return nil
	})
}

var errInjected = errors.New("injected storage failure")
