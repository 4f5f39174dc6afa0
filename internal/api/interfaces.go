package api

import (
	"context"

	"github.com/persistorai/caseqc/internal/domain"
)

// Handlers depend on the canonical service interfaces.
type (
	// ApprovalService is the only write path for reviews.
	ApprovalService = domain.ApprovalService
	// ReviewService serves access-checked review reads.
	ReviewService = domain.ReviewService
	// CaseService serves supervisor case operations.
	CaseService = domain.CaseService
	// AuditService serves audit log queries.
	AuditService = domain.AuditService
)

// DBPinger is the part of the connection pool the health endpoints use.
type DBPinger interface {
	HealthCheck(ctx context.Context) error
}
