// Package models defines data types for case QC reviews.
package models

import (
	"time"
)

// Maximum number of model outputs a single review may compare.
const MaxModelOutputs = 2

// Review is the QC lifecycle record for one case.
type Review struct {
	ID                string           `json:"id"`
	CaseID            string           `json:"case_id"`
	ReviewerID        string           `json:"reviewer_id"`
	SupervisorID      *string          `json:"supervisor_id,omitempty"`
	Status            ReviewStatus     `json:"status"`
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

// Clone returns a deep copy of the review.
func (r *Review) Clone() *Review {
	c := *r
	c.ModelOutputs = append([]ModelOutputRef(nil), r.ModelOutputs...)
	c.SupervisorID = clonePtr(r.SupervisorID)
	c.ReviewStartedAt = clonePtr(r.ReviewStartedAt)
	c.ReviewCompletedAt = clonePtr(r.ReviewCompletedAt)
	c.ApprovedAt = clonePtr(r.ApprovedAt)
	c.RejectedAt = clonePtr(r.RejectedAt)
	c.CompletedAt = clonePtr(r.CompletedAt)

	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}

// ModelOutputRef points at one model-generated extraction under review.
type ModelOutputRef struct {
	Model    string `json:"model"`
	OutputID string `json:"output_id"`
}

// CreateReviewRequest is the payload for opening a review on a case.
type CreateReviewRequest struct {
	CaseID       string           `json:"case_id"`
	ReviewerID   string           `json:"reviewer_id"`
	ModelOutputs []ModelOutputRef `json:"model_outputs,omitempty"`
}

// Validate checks required fields and limits on CreateReviewRequest.
func (r *CreateReviewRequest) Validate() error {
	if r.CaseID == "" {
		return ErrMissingField("case_id")
	}

	if len(r.CaseID) > 255 {
		return ErrFieldTooLong("case_id", 255)
	}

	if r.ReviewerID == "" {
		return ErrMissingField("reviewer_id")
	}

	if len(r.ReviewerID) > 255 {
		return ErrFieldTooLong("reviewer_id", 255)
	}

	if len(r.ModelOutputs) > MaxModelOutputs {
		return &ValidationError{Field: "model_outputs", Message: "at most 2 model outputs may be compared"}
	}

	for _, ref := range r.ModelOutputs {
		if ref.Model == "" || ref.OutputID == "" {
			return &ValidationError{Field: "model_outputs", Message: "model and output_id are required"}
		}
	}

	return nil
}

// TransitionRequest asks to move a review to a new status. Notes is the only
// other field a transition may change; it lands in the notes field of the
// acting role.
type TransitionRequest struct {
	TargetStatus ReviewStatus `json:"target_status"`
	Notes        *string      `json:"notes,omitempty"`
}

// Validate checks the target status and notes length.
func (r *TransitionRequest) Validate() error {
	if r.TargetStatus == "" {
		return ErrMissingField("target_status")
	}

	if !r.TargetStatus.Valid() {
		return &ValidationError{Field: "target_status", Message: "unknown status " + string(r.TargetStatus)}
	}

	if r.Notes != nil && len(*r.Notes) > 10000 {
		return ErrFieldTooLong("notes", 10000)
	}

	return nil
}

// ReviewListOpts holds filters for listing reviews.
type ReviewListOpts struct {
	Status     ReviewStatus
	ReviewerID string
	CaseID     string
	Mine       bool
	Limit      int
	Offset     int
}

// Case is the underlying matter a review belongs to.
type Case struct {
	ID             string      `json:"id"`
	OrganizationID string      `json:"organization_id"`
	Title          string      `json:"title"`
	Status         CaseStatus  `json:"status"`
	FinalOutput    *CaseOutput `json:"final_output,omitempty"`
	FinalizedAt    *time.Time  `json:"finalized_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// RegisterCaseRequest is the payload for registering an ingested case.
type RegisterCaseRequest struct {
	ID             string `json:"-"`
	OrganizationID string `json:"organization_id"`
	Title          string `json:"title"`
}

// Validate checks required fields and limits on RegisterCaseRequest.
func (r *RegisterCaseRequest) Validate() error {
	if r.ID == "" {
		return ErrMissingField("id")
	}

	if len(r.ID) > 255 {
		return ErrFieldTooLong("id", 255)
	}

	if len(r.OrganizationID) > 255 {
		return ErrFieldTooLong("organization_id", 255)
	}

	if len(r.Title) > 1000 {
		return ErrFieldTooLong("title", 1000)
	}

	return nil
}

// CaseOutput is the accepted result written to a case on its first
// supervisor approval. Fields holds the last corrected value per field name.
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
