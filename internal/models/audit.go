package models

import "time"

// Audit actions.
const (
	AuditReviewCreate       = "review.create"
	AuditReviewTransition   = "review.transition"
	AuditChangeLogRecord    = "changelog.record"
	AuditCaseRegister       = "case.register"
	AuditReviewAccessDenied = "review.access_denied"
)

// Audit entity types.
const (
	EntityReview    = "review"
	EntityCase      = "case"
	EntityChangeLog = "change_log"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           int64          `json:"id"`
	Action       string         `json:"action"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	ReviewID     string         `json:"review_id,omitempty"`
	CaseID       string         `json:"case_id,omitempty"`
	Actor        string         `json:"actor"`
	StatusBefore ReviewStatus   `json:"status_before,omitempty"`
	StatusAfter  ReviewStatus   `json:"status_after,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditQueryOpts holds filters for querying the audit log.
type AuditQueryOpts struct {
	ReviewID   string
	CaseID     string
	Actor      string
	Action     string
	EntityType string
	Since      *time.Time
	Limit      int
	Offset     int
}
