package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/models"
)

// AuditQueryStore is the data-access interface AuditService depends on.
type AuditQueryStore interface {
	QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

// Compile-time check: *AuditService must satisfy domain.AuditService.
var _ domain.AuditService = (*AuditService)(nil)

// AuditService serves supervisor queries over the append-only audit log.
type AuditService struct {
	store AuditQueryStore
	log   *logrus.Logger
}

// NewAuditService creates an AuditService.
func NewAuditService(store AuditQueryStore, log *logrus.Logger) *AuditService {
	return &AuditService{store: store, log: log}
}

// QueryAudit returns audit entries matching the given filters, newest first.
func (s *AuditService) QueryAudit(
	ctx context.Context, actor models.Actor, opts models.AuditQueryOpts,
) ([]models.AuditEntry, bool, error) {
	if err := requireSupervisor(actor); err != nil {
		return nil, false, err
	}

	s.log.WithFields(logrus.Fields{
		"actor":     actor.ID,
		"review_id": opts.ReviewID,
		"case_id":   opts.CaseID,
		"action":    opts.Action,
	}).Debug("audit.query")

	entries, hasMore, err := s.store.QueryAudit(ctx, opts)
	if err != nil {
		return nil, false, persistenceErr(err)
	}

	return entries, hasMore, nil
}
