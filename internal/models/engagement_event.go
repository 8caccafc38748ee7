package models

import "time"

const (
	EventPointsAwarded = "points.awarded"
	EventRaffleWinner  = "raffle.winner"
	EventCheckedIn     = "attendee.checked_in"
)

// EngagementEvent is the payload published to Kafka for every committed state change.
// Points is the delta applied to AttendeeID, zero for events that move no points.
type EngagementEvent struct {
	Type       string    `json:"type"`
	AttendeeID string    `json:"attendee_id"`
	Name       string    `json:"name,omitempty"`
	Role       Role      `json:"role,omitempty"`
	Points     int       `json:"points"`
	Source     string    `json:"source,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewPointsAwardedEvent(attendeeID string, points int, source, reference string) EngagementEvent {
	return EngagementEvent{
		Type:       EventPointsAwarded,
		AttendeeID: attendeeID,
		Points:     points,
		Source:     source,
		Reference:  reference,
		OccurredAt: time.Now().UTC(),
	}
}
