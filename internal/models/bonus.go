package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BonusCode is a shared code redeemable for points. A nil MaxClaims means unlimited.
type BonusCode struct {
	bun.BaseModel `bun:"table:bonus_codes"`

	Code        string    `bun:"code,pk" json:"code"`
	Points      int       `bun:"points,notnull" json:"points"`
	Description string    `bun:"description" json:"description"`
	MaxClaims   *int      `bun:"max_claims" json:"max_claims,omitempty"`
	ClaimCount  int       `bun:"claim_count,notnull,default:0" json:"claim_count"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Exhausted reports whether the global claim ceiling has been reached.
func (b BonusCode) Exhausted() bool {
	return b.MaxClaims != nil && b.ClaimCount >= *b.MaxClaims
}

type BonusClaim struct {
	bun.BaseModel `bun:"table:bonus_claims"`

	ID         string    `bun:"id,pk" json:"id"`
	AttendeeID string    `bun:"attendee_id,notnull,unique:bonus_claims_attendee_id_code_key" json:"attendee_id"`
	Code       string    `bun:"code,notnull,unique:bonus_claims_attendee_id_code_key" json:"code"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
