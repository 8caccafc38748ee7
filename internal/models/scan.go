package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Scan records that ScannerID scanned ScannedID's ticket. The pair is unique.
type Scan struct {
	bun.BaseModel `bun:"table:scans"`

	ID        string    `bun:"id,pk" json:"id"`
	ScannerID string    `bun:"scanner_id,notnull,unique:scans_scanner_id_scanned_id_key" json:"scanner_id"`
	ScannedID string    `bun:"scanned_id,notnull,unique:scans_scanner_id_scanned_id_key" json:"scanned_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type ScanRequest struct {
	Code string `json:"code"`
}

type ScanOutcomeKind string

const (
	ScanOutcomeAttendee ScanOutcomeKind = "attendee"
	ScanOutcomeBonus    ScanOutcomeKind = "bonus"
)

type ScanOutcome struct {
	Kind          ScanOutcomeKind `json:"kind"`
	TargetID      string          `json:"target_id"`
	TargetName    string          `json:"target_name,omitempty"`
	Description   string          `json:"description,omitempty"`
	PointsAwarded int             `json:"points_awarded"`
}
