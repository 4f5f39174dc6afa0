package store

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/models"
)

// errTxDone is returned when a ReviewTx is used after its WithTx call returned.
var errTxDone = errors.New("transaction already finished")

// Memory is an in-process domain.Store. Transactions read committed state,
// buffer their writes and apply them under a single lock at commit, after
// re-checking every version they depended on. It backs tests and the
// memory backend of caseqc-server.
type Memory struct {
	mu          sync.RWMutex
	reviews     map[string]*models.Review
	cases       map[string]*models.Case
	changes     map[string][]models.ChangeLogEntry
	changeByID  map[string]models.ChangeLogEntry
	audit       []models.AuditEntry
	nextAuditID int64

	subMu       sync.RWMutex
	subscribers []domain.EventBroadcaster
}

var _ domain.Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		reviews:    make(map[string]*models.Review),
		cases:      make(map[string]*models.Case),
		changes:    make(map[string][]models.ChangeLogEntry),
		changeByID: make(map[string]models.ChangeLogEntry),
	}
}

// Subscribe registers b to receive every event published by a committed
// transaction. Events from rolled-back transactions are never delivered.
func (m *Memory) Subscribe(b domain.EventBroadcaster) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.subscribers = append(m.subscribers, b)
}

// WithTx runs fn against a buffered transaction and commits its writes
// atomically when fn returns nil.
func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.ReviewTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := newMemTx(m)
	defer func() { tx.done = true }()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.commit(tx); err != nil {
		return err
	}

	m.deliver(tx.events)

	return nil
}

func (m *Memory) commit(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, expected := range tx.expected {
		current, ok := m.reviews[id]
		if !ok || current.Version != expected {
			return models.ErrConflict
		}
	}

	for _, id := range tx.inserted {
		if _, ok := m.reviews[id]; ok {
			return models.ErrDuplicateKey
		}
	}

	for _, e := range tx.changes {
		if _, ok := m.changeByID[e.ID]; ok {
			return models.ErrDuplicateKey
		}
	}

	for id, r := range tx.reviews {
		m.reviews[id] = r.Clone()
	}

	for id, status := range tx.caseStatus {
		if c, ok := m.cases[id]; ok {
			c.Status = status
			c.UpdatedAt = tx.now
		}
	}

	for id, out := range tx.finalized {
		if c, ok := m.cases[id]; ok && c.FinalOutput == nil {
			approvedAt := out.ApprovedAt
			c.FinalOutput = out
			c.FinalizedAt = &approvedAt
			c.UpdatedAt = tx.now
		}
	}

	for _, e := range tx.changes {
		m.changes[e.ReviewID] = append(m.changes[e.ReviewID], e)
		m.changeByID[e.ID] = e
	}

	for _, e := range tx.audits {
		m.appendAuditLocked(e)
	}

	return nil
}

func (m *Memory) appendAuditLocked(e *models.AuditEntry) {
	m.nextAuditID++
	e.ID = m.nextAuditID

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	m.audit = append(m.audit, *e)
}

func (m *Memory) deliver(events []models.ReviewEvent) {
	if len(events) == 0 {
		return
	}

	m.subMu.RLock()
	subs := slices.Clone(m.subscribers)
	m.subMu.RUnlock()

	for _, ev := range events {
		for _, s := range subs {
			s.BroadcastReviewEvent(ev)
		}
	}
}

// GetReview returns a copy of the committed review.
func (m *Memory) GetReview(_ context.Context, reviewID string) (*models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reviews[reviewID]
	if !ok {
		return nil, models.ErrReviewNotFound
	}

	return r.Clone(), nil
}

// ListReviews returns committed reviews matching opts, newest first.
func (m *Memory) ListReviews(_ context.Context, opts models.ReviewListOpts) ([]models.Review, bool, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	m.mu.RLock()
	matched := make([]models.Review, 0, len(m.reviews))
	for _, r := range m.reviews {
		if opts.Status != "" && r.Status != opts.Status {
			continue
		}
		if opts.ReviewerID != "" && r.ReviewerID != opts.ReviewerID {
			continue
		}
		if opts.CaseID != "" && r.CaseID != opts.CaseID {
			continue
		}
		matched = append(matched, *r.Clone())
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b models.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(b.ID, a.ID)
	})

	return paginate(matched, limit, offset)
}

// GetCase returns a copy of the committed case.
func (m *Memory) GetCase(_ context.Context, caseID string) (*models.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cases[caseID]
	if !ok {
		return nil, models.ErrCaseNotFound
	}

	return cloneCase(c), nil
}

// RegisterCase creates a case or updates its title and organization, and
// appends audit under the same lock.
func (m *Memory) RegisterCase(
	ctx context.Context, req models.RegisterCaseRequest, audit *models.AuditEntry,
) (*models.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()

	c, ok := m.cases[req.ID]
	if !ok {
		c = &models.Case{ID: req.ID, Status: models.CaseStatusOpen, CreatedAt: now}
		m.cases[req.ID] = c
	}

	c.OrganizationID = req.OrganizationID
	c.Title = req.Title
	c.UpdatedAt = now

	if audit != nil {
		m.appendAuditLocked(audit)
	}

	return cloneCase(c), nil
}

// ListChangeLog returns committed entries for a review, newest first.
func (m *Memory) ListChangeLog(_ context.Context, opts models.ChangeLogListOpts) ([]models.ChangeLogEntry, bool, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	m.mu.RLock()
	all := m.changes[opts.ReviewID]
	matched := make([]models.ChangeLogEntry, 0, len(all))
	for _, e := range all {
		if opts.FieldName != "" && e.FieldName != opts.FieldName {
			continue
		}
		if opts.AuthorID != "" && e.AuthorID != opts.AuthorID {
			continue
		}
		matched = append(matched, e)
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b models.ChangeLogEntry) int { return cmp.Compare(b.ID, a.ID) })

	return paginate(matched, limit, offset)
}

// GetChangeLogEntry returns one committed change log entry.
func (m *Memory) GetChangeLogEntry(_ context.Context, entryID string) (*models.ChangeLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.changeByID[entryID]
	if !ok {
		return nil, models.ErrChangeNotFound
	}

	return &e, nil
}

// RecordAudit appends a standalone audit entry.
func (m *Memory) RecordAudit(ctx context.Context, entry *models.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendAuditLocked(entry)

	return nil
}

// QueryAudit returns audit entries matching opts, newest first.
func (m *Memory) QueryAudit(_ context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	m.mu.RLock()
	matched := make([]models.AuditEntry, 0, len(m.audit))
	for _, e := range m.audit {
		if opts.ReviewID != "" && e.ReviewID != opts.ReviewID {
			continue
		}
		if opts.CaseID != "" && e.CaseID != opts.CaseID {
			continue
		}
		if opts.Actor != "" && e.Actor != opts.Actor {
			continue
		}
		if opts.Action != "" && e.Action != opts.Action {
			continue
		}
		if opts.EntityType != "" && e.EntityType != opts.EntityType {
			continue
		}
		if opts.Since != nil && e.CreatedAt.Before(*opts.Since) {
			continue
		}
		matched = append(matched, e)
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b models.AuditEntry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(b.ID, a.ID)
	})

	return paginate(matched, limit, offset)
}

func paginate[T any](items []T, limit, offset int) ([]T, bool, error) {
	if offset >= len(items) {
		return []T{}, false, nil
	}

	items = items[offset:]

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	return items, hasMore, nil
}

func cloneCase(c *models.Case) *models.Case {
	out := *c
	if c.FinalizedAt != nil {
		t := *c.FinalizedAt
		out.FinalizedAt = &t
	}

	return &out
}

// memTx buffers the writes of one Memory transaction.
type memTx struct {
	m    *Memory
	now  time.Time
	done bool

	reviews    map[string]*models.Review
	inserted   []string
	expected   map[string]int64
	caseStatus map[string]models.CaseStatus
	finalized  map[string]*models.CaseOutput
	changes    []models.ChangeLogEntry
	audits     []*models.AuditEntry
	events     []models.ReviewEvent
}

var _ domain.ReviewTx = (*memTx)(nil)

func newMemTx(m *Memory) *memTx {
	return &memTx{
		m:          m,
		now:        time.Now().UTC(),
		reviews:    make(map[string]*models.Review),
		expected:   make(map[string]int64),
		caseStatus: make(map[string]models.CaseStatus),
		finalized:  make(map[string]*models.CaseOutput),
	}
}

func (t *memTx) check(ctx context.Context) error {
	if t.done {
		return errTxDone
	}

	return ctx.Err()
}

// view returns the review as this transaction sees it.
func (t *memTx) view(reviewID string) (*models.Review, bool) {
	if r, ok := t.reviews[reviewID]; ok {
		return r, true
	}

	t.m.mu.RLock()
	defer t.m.mu.RUnlock()

	r, ok := t.m.reviews[reviewID]

	return r, ok
}

func (t *memTx) GetReview(ctx context.Context, reviewID string) (*models.Review, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	r, ok := t.view(reviewID)
	if !ok {
		return nil, models.ErrReviewNotFound
	}

	return r.Clone(), nil
}

func (t *memTx) GetCase(ctx context.Context, caseID string) (*models.Case, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	c, err := t.m.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	if status, ok := t.caseStatus[caseID]; ok {
		c.Status = status
	}

	if out, ok := t.finalized[caseID]; ok && c.FinalOutput == nil {
		approvedAt := out.ApprovedAt
		c.FinalOutput = out
		c.FinalizedAt = &approvedAt
	}

	return c, nil
}

func (t *memTx) InsertReview(ctx context.Context, r *models.Review) error {
	if err := t.check(ctx); err != nil {
		return err
	}

	if _, ok := t.view(r.ID); ok {
		return models.ErrDuplicateKey
	}

	t.reviews[r.ID] = r.Clone()
	t.inserted = append(t.inserted, r.ID)

	return nil
}

func (t *memTx) UpdateReview(ctx context.Context, r *models.Review, expectedVersion int64) error {
	if err := t.check(ctx); err != nil {
		return err
	}

	current, ok := t.view(r.ID)
	if !ok || current.Version != expectedVersion {
		return models.ErrConflict
	}

	_, pending := t.reviews[r.ID]
	if !pending {
		t.expected[r.ID] = expectedVersion
	}

	r.Version = expectedVersion + 1
	t.reviews[r.ID] = r.Clone()

	return nil
}

// PinReview adds the review to the versions commit re-checks. A review
// already written in this transaction is guarded by its UpdateReview.
func (t *memTx) PinReview(ctx context.Context, reviewID string, version int64) error {
	if err := t.check(ctx); err != nil {
		return err
	}

	current, ok := t.view(reviewID)
	if !ok || current.Version != version {
		return models.ErrConflict
	}

	if _, pending := t.reviews[reviewID]; !pending {
		t.expected[reviewID] = version
	}

	return nil
}

func (t *memTx) UpdateCaseStatus(ctx context.Context, caseID string, status models.CaseStatus) error {
	if _, err := t.GetCase(ctx, caseID); err != nil {
		return err
	}

	t.caseStatus[caseID] = status

	return nil
}

func (t *memTx) FinalizeCase(ctx context.Context, caseID string, out *models.CaseOutput) (bool, error) {
	c, err := t.GetCase(ctx, caseID)
	if err != nil {
		return false, err
	}

	if c.FinalOutput != nil {
		return false, nil
	}

	t.finalized[caseID] = out

	return true, nil
}

func (t *memTx) InsertChangeLogEntry(ctx context.Context, e *models.ChangeLogEntry) error {
	if err := t.check(ctx); err != nil {
		return err
	}

	if _, err := t.m.GetChangeLogEntry(ctx, e.ID); err == nil {
		return models.ErrDuplicateKey
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.now
	}

	t.changes = append(t.changes, *e)

	return nil
}

func (t *memTx) ListChangeLogEntries(ctx context.Context, reviewID string) ([]models.ChangeLogEntry, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	t.m.mu.RLock()
	entries := slices.Clone(t.m.changes[reviewID])
	t.m.mu.RUnlock()

	for _, e := range t.changes {
		if e.ReviewID == reviewID {
			entries = append(entries, e)
		}
	}

	slices.SortFunc(entries, func(a, b models.ChangeLogEntry) int { return cmp.Compare(a.ID, b.ID) })

	return entries, nil
}

func (t *memTx) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	if err := t.check(ctx); err != nil {
		return err
	}

	t.audits = append(t.audits, e)

	return nil
}

func (t *memTx) Publish(ctx context.Context, event models.ReviewEvent) error {
	if err := t.check(ctx); err != nil {
		return err
	}

	t.events = append(t.events, event)

	return nil
}
