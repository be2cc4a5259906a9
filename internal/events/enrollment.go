// Package events defines the payloads published when a roster changes.
package events

import (
	"time"

	"example.com/extracurricular/internal/domain"
)

// Event types carried in the event_type message header.
const (
	TypeSignedUp  = "enrollment.signed_up"
	TypeWithdrawn = "enrollment.withdrawn"
)

// EnrollmentChanged is emitted after a participant joins or leaves an activity.
type EnrollmentChanged struct {
	EventID     string    `json:"event_id"`
	Activity    string    `json:"activity"`
	Participant string    `json:"participant"`
	Action      string    `json:"action"`
	RosterSize  int       `json:"roster_size"`
	Capacity    int       `json:"capacity"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// TypeForAction maps a roster action to its event type. It reports false for
// actions that have no event type.
func TypeForAction(action domain.Action) (string, bool) {
	switch action {
	case domain.ActionSignedUp:
		return TypeSignedUp, true
	case domain.ActionWithdrawn:
		return TypeWithdrawn, true
	default:
		return "", false
	}
}
