package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RaffleWinner struct {
	bun.BaseModel `bun:"table:raffle_winners"`

	ID         string    `bun:"id,pk" json:"id"`
	AttendeeID string    `bun:"attendee_id,notnull" json:"attendee_id"`
	RaffleType string    `bun:"raffle_type,notnull" json:"raffle_type"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type CreateRaffleSessionRequest struct {
	AllowRepeatWinners bool `json:"allow_repeat_winners"`
}

type DrawRequest struct {
	RaffleType string `json:"raffle_type"`
}

// RaffleDraw is what a draw reports back for display.
type RaffleDraw struct {
	SessionID   string    `json:"session_id"`
	WinnerID    string    `json:"winner_id"`
	WinnerName  string    `json:"winner_name"`
	Points      int       `json:"points"`
	RaffleType  string    `json:"raffle_type"`
	Weight      float64   `json:"weight"`
	Probability float64   `json:"probability"`
	DrawnAt     time.Time `json:"drawn_at"`
}

type RaffleSessionView struct {
	SessionID          string       `json:"session_id"`
	AllowRepeatWinners bool         `json:"allow_repeat_winners"`
	RemainingEligible  int          `json:"remaining_eligible"`
	TotalPoints        int          `json:"total_points"`
	Eligible           []Attendee   `json:"eligible"`
	Winners            []RaffleDraw `json:"winners"`
}
