package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/persistorai/caseqc/internal/models"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type       string          `json:"type"`
	ID         uint64          `json:"id"`
	ReviewerID string          `json:"-"`
	Data       json.RawMessage `json:"data"`
	Time       time.Time       `json:"time"`
}

// visibleTo reports whether actor may receive the event: supervisors see
// every review, reviewers only the ones assigned to them.
func (e *Event) visibleTo(actor models.Actor) bool {
	if actor.Role == models.RoleSupervisor {
		return true
	}

	return actor.Role == models.RoleReviewer && actor.ID == e.ReviewerID
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client to do a full refresh (requested events too old).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EventSequence hands out monotonic event IDs.
type EventSequence struct {
	counter atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{}
}

// Next returns the next sequence number.
func (es *EventSequence) Next() uint64 {
	return es.counter.Add(1)
}
