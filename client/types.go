package client

import "time"

// Review statuses.
const (
	StatusPending            = "PENDING"
	StatusInReview           = "IN_REVIEW"
	StatusChangesRequested   = "CHANGES_REQUESTED"
	StatusReviewerApproved   = "REVIEWER_APPROVED"
	StatusSupervisorApproved = "SUPERVISOR_APPROVED"
	StatusRejected           = "REJECTED"
	StatusCompleted          = "COMPLETED"
)

// Review is the QC lifecycle record for one case.
type Review struct {
	ID                string           `json:"id"`
	CaseID            string           `json:"case_id"`
	ReviewerID        string           `json:"reviewer_id"`
	SupervisorID      *string          `json:"supervisor_id,omitempty"`
	Status            string           `json:"status"`
	Version           int64            `json:"version"`
	ModelOutputs      []ModelOutputRef `json:"model_outputs"`
	ReviewerNotes     string           `json:"reviewer_notes"`
	SupervisorNotes   string           `json:"supervisor_notes"`
	ReviewStartedAt   *time.Time       `json:"review_started_at,omitempty"`
	ReviewCompletedAt *time.Time       `json:"review_completed_at,omitempty"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`
	RejectedAt        *time.Time       `json:"rejected_at,omitempty"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ModelOutputRef points at one model-generated extraction under review.
type ModelOutputRef struct {
	Model    string `json:"model"`
	OutputID string `json:"output_id"`
}

// CreateReviewRequest is the payload for opening a review.
type CreateReviewRequest struct {
	CaseID       string           `json:"case_id"`
	ReviewerID   string           `json:"reviewer_id"`
	ModelOutputs []ModelOutputRef `json:"model_outputs,omitempty"`
}

// TransitionRequest asks to move a review to a new status.
type TransitionRequest struct {
	TargetStatus string  `json:"target_status"`
	Notes        *string `json:"notes,omitempty"`
}

// ReviewListOptions holds query parameters for listing reviews.
type ReviewListOptions struct {
	Status     string
	ReviewerID string
	CaseID     string
	Mine       bool
	Limit      int
	Offset     int
}

// ChangeLogEntry records one field-level correction made during a review.
type ChangeLogEntry struct {
	ID            string    `json:"id"`
	ReviewID      string    `json:"review_id"`
	FieldName     string    `json:"field_name"`
	PreviousValue string    `json:"previous_value"`
	NewValue      string    `json:"new_value"`
	Annotation    string    `json:"annotation"`
	AuthorID      string    `json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChangeLogRequest is the payload for recording a field correction.
type ChangeLogRequest struct {
	FieldName     string `json:"field_name"`
	PreviousValue string `json:"previous_value"`
	NewValue      string `json:"new_value"`
	Annotation    string `json:"annotation,omitempty"`
}

// ChangeListOptions holds query parameters for listing a review's changes.
type ChangeListOptions struct {
	FieldName string
	AuthorID  string
	Limit     int
	Offset    int
}

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           int64          `json:"id"`
	Action       string         `json:"action"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	ReviewID     string         `json:"review_id,omitempty"`
	CaseID       string         `json:"case_id,omitempty"`
	Actor        string         `json:"actor"`
	StatusBefore string         `json:"status_before,omitempty"`
	StatusAfter  string         `json:"status_after,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditQueryOptions holds query parameters for the audit log.
type AuditQueryOptions struct {
	ReviewID   string
	CaseID     string
	Actor      string
	Action     string
	EntityType string
	Since      *time.Time
	Limit      int
	Offset     int
}

// Case is the matter a review belongs to.
type Case struct {
	ID             string      `json:"id"`
	OrganizationID string      `json:"organization_id"`
	Title          string      `json:"title"`
	Status         string      `json:"status"`
	FinalOutput    *CaseOutput `json:"final_output,omitempty"`
	FinalizedAt    *time.Time  `json:"finalized_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// RegisterCaseRequest is the payload for registering a case.
type RegisterCaseRequest struct {
	OrganizationID string `json:"organization_id,omitempty"`
	Title          string `json:"title,omitempty"`
}

// CaseOutput is the accepted result written on first supervisor approval.
type CaseOutput struct {
	ReviewID     string                `json:"review_id"`
	ApprovedBy   string                `json:"approved_by"`
	ApprovedAt   time.Time             `json:"approved_at"`
	ModelOutputs []ModelOutputRef      `json:"model_outputs"`
	Fields       map[string]FinalField `json:"fields"`
	ChangeCount  int                   `json:"change_count"`
}

// FinalField is one accepted field value and the change that produced it.
type FinalField struct {
	Value     string    `json:"value"`
	ChangeID  string    `json:"change_id"`
	AuthorID  string    `json:"author_id"`
	ChangedAt time.Time `json:"changed_at"`
}

// HealthResponse is the liveness check payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Backend       string  `json:"backend"`
	Database      string  `json:"database"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadyResponse is the readiness check payload.
type ReadyResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	SchemaVersion int64             `json:"schema_version,omitempty"`
}
