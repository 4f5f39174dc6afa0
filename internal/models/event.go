package models

import "time"

// Review event types published after a commit.
const (
	EventReviewCreated      = "review.created"
	EventReviewTransitioned = "review.transitioned"
	EventChangeRecorded     = "review.change_recorded"
)

// ReviewEvent notifies listeners of a committed review change.
type ReviewEvent struct {
	Type       string       `json:"type"`
	ReviewID   string       `json:"review_id"`
	CaseID     string       `json:"case_id"`
	ReviewerID string       `json:"reviewer_id"`
	From       ReviewStatus `json:"from,omitempty"`
	To         ReviewStatus `json:"to,omitempty"`
	Actor      string       `json:"actor"`
	Version    int64        `json:"version"`
	At         time.Time    `json:"at"`
}
