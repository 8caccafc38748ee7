package models

// EngagementSummary backs the admin dashboard counters.
type EngagementSummary struct {
	Attendees     int `json:"attendees" bun:"attendees"`
	CheckedIn     int `json:"checked_in" bun:"checked_in"`
	TotalPoints   int `json:"total_points" bun:"total_points"`
	Scans         int `json:"scans" bun:"scans"`
	BonusClaims   int `json:"bonus_claims" bun:"bonus_claims"`
	RaffleWinners int `json:"raffle_winners" bun:"raffle_winners"`
}

type LeaderboardEntry struct {
	AttendeeID string `json:"attendee_id"`
	Name       string `json:"name,omitempty"`
	Points     int    `json:"points"`
	Rank       int    `json:"rank"`
}
