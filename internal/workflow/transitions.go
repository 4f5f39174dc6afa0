// Package workflow holds the review state machine: the transition table and
// the access rule that gates every review operation.
package workflow

import "github.com/persistorai/caseqc/internal/models"

// Table maps (current status, role) to the statuses that role may move a
// review into. A Table is immutable after construction.
type Table struct {
	rules map[models.ReviewStatus]map[models.Role][]models.ReviewStatus
}

// DefaultTable returns the review approval rules.
func DefaultTable() *Table {
	return NewTable(map[models.ReviewStatus]map[models.Role][]models.ReviewStatus{
		models.StatusPending: {
			models.RoleReviewer:   {models.StatusInReview},
			models.RoleSupervisor: {models.StatusInReview, models.StatusRejected},
		},
		models.StatusInReview: {
			models.RoleReviewer:   {models.StatusReviewerApproved, models.StatusChangesRequested},
			models.RoleSupervisor: {models.StatusSupervisorApproved, models.StatusChangesRequested, models.StatusRejected},
		},
		models.StatusChangesRequested: {
			models.RoleReviewer:   {models.StatusInReview, models.StatusReviewerApproved},
			models.RoleSupervisor: {models.StatusSupervisorApproved, models.StatusRejected},
		},
		models.StatusReviewerApproved: {
			models.RoleSupervisor: {models.StatusSupervisorApproved, models.StatusChangesRequested, models.StatusRejected},
		},
		models.StatusSupervisorApproved: {
			models.RoleSupervisor: {models.StatusCompleted},
		},
		models.StatusRejected: {
			models.RoleSupervisor: {models.StatusInReview},
		},
	})
}

// NewTable builds a Table from rules. The rules are copied and each target
// list is stored in lifecycle order.
func NewTable(rules map[models.ReviewStatus]map[models.Role][]models.ReviewStatus) *Table {
	t := &Table{rules: make(map[models.ReviewStatus]map[models.Role][]models.ReviewStatus, len(rules))}

	for from, byRole := range rules {
		copied := make(map[models.Role][]models.ReviewStatus, len(byRole))
		for role, targets := range byRole {
			copied[role] = inLifecycleOrder(targets)
		}
		t.rules[from] = copied
	}

	return t
}

// Allowed returns the statuses role may move a review into from status.
// The result is a fresh slice; callers may modify it.
func (t *Table) Allowed(from models.ReviewStatus, role models.Role) []models.ReviewStatus {
	targets := t.rules[from][role]

	return append([]models.ReviewStatus{}, targets...)
}

// Permits reports whether role may move a review from status to target.
func (t *Table) Permits(from models.ReviewStatus, role models.Role, to models.ReviewStatus) bool {
	for _, s := range t.rules[from][role] {
		if s == to {
			return true
		}
	}

	return false
}

// IsTerminal reports whether no role may leave status.
func (t *Table) IsTerminal(status models.ReviewStatus) bool {
	for _, targets := range t.rules[status] {
		if len(targets) > 0 {
			return false
		}
	}

	return true
}

func inLifecycleOrder(targets []models.ReviewStatus) []models.ReviewStatus {
	out := make([]models.ReviewStatus, 0, len(targets))

	for _, s := range models.AllStatuses {
		for _, target := range targets {
			if target == s {
				out = append(out, s)
				break
			}
		}
	}

	return out
}
