package models

import "fmt"

// ReviewStatus is the QC lifecycle state of a review.
type ReviewStatus string

// Review statuses.
const (
	StatusPending            ReviewStatus = "PENDING"
	StatusInReview           ReviewStatus = "IN_REVIEW"
	StatusChangesRequested   ReviewStatus = "CHANGES_REQUESTED"
	StatusReviewerApproved   ReviewStatus = "REVIEWER_APPROVED"
	StatusSupervisorApproved ReviewStatus = "SUPERVISOR_APPROVED"
	StatusRejected           ReviewStatus = "REJECTED"
	StatusCompleted          ReviewStatus = "COMPLETED"
)

// AllStatuses lists every review status in lifecycle order.
var AllStatuses = []ReviewStatus{
	StatusPending,
	StatusInReview,
	StatusChangesRequested,
	StatusReviewerApproved,
	StatusSupervisorApproved,
	StatusRejected,
	StatusCompleted,
}

// Valid reports whether s is a known status.
func (s ReviewStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}

	return false
}

// ParseReviewStatus converts s to a ReviewStatus.
func ParseReviewStatus(s string) (ReviewStatus, error) {
	st := ReviewStatus(s)
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
	}

	return st, nil
}

// CaseStatus is the status of the case a review belongs to.
type CaseStatus string

// Case statuses.
const (
	CaseStatusOpen               CaseStatus = "open"
	CaseStatusSupervisorApproved CaseStatus = "supervisor_approved"
)
