package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/models"
)

// CaseStore is the data-access interface CaseService depends on.
type CaseStore interface {
	GetCase(ctx context.Context, caseID string) (*models.Case, error)
	domain.CaseRegistrar
}

// Compile-time check: *CaseService must satisfy domain.CaseService.
var _ domain.CaseService = (*CaseService)(nil)

// CaseService registers cases and exposes their finalized output. Both
// operations are reserved for supervisors.
type CaseService struct {
	store CaseStore
	log   *logrus.Logger
}

// NewCaseService creates a CaseService.
func NewCaseService(store CaseStore, log *logrus.Logger) *CaseService {
	return &CaseService{store: store, log: log}
}

// RegisterCase creates or renames a case so reviews can reference it.
func (s *CaseService) RegisterCase(
	ctx context.Context, actor models.Actor, req models.RegisterCaseRequest,
) (*models.Case, error) {
	if err := requireSupervisor(actor); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	c, err := s.store.RegisterCase(ctx, req, &models.AuditEntry{
		Action:     models.AuditCaseRegister,
		EntityType: models.EntityCase,
		EntityID:   req.ID,
		CaseID:     req.ID,
		Actor:      actor.ID,
		Detail:     map[string]any{"title": req.Title, "organization_id": req.OrganizationID},
	})
	if err != nil {
		return nil, persistenceErr(err)
	}

	s.log.WithFields(logrus.Fields{
		"case_id": c.ID,
		"actor":   actor.ID,
	}).Info("case registered")

	return c, nil
}

// GetCase returns a case and its finalized output, if any.
func (s *CaseService) GetCase(ctx context.Context, actor models.Actor, caseID string) (*models.Case, error) {
	if err := requireSupervisor(actor); err != nil {
		return nil, err
	}

	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, persistenceErr(err)
	}

	return c, nil
}

func requireSupervisor(actor models.Actor) error {
	if !actor.Authenticated() {
		return models.ErrUnauthorized
	}

	if actor.Role != models.RoleSupervisor {
		return models.ErrAccessDenied
	}

	return nil
}
