package analytics

import (
	"context"

	"ms-engagement/internal/models"

	"github.com/uptrace/bun"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// GetSummary counts the dashboard totals in one round trip.
func (db *DB) GetSummary(ctx context.Context) (models.EngagementSummary, error) {
	var summary models.EngagementSummary
	err := db.bun.NewRaw(`
		SELECT
			(SELECT COUNT(*) FROM attendees) AS attendees,
			(SELECT COUNT(*) FROM attendees WHERE checked_in = ?) AS checked_in,
			(SELECT COALESCE(SUM(points), 0) FROM attendees) AS total_points,
			(SELECT COUNT(*) FROM scans) AS scans,
			(SELECT COUNT(*) FROM bonus_claims) AS bonus_claims,
			(SELECT COUNT(*) FROM raffle_winners) AS raffle_winners
	`, true).Scan(ctx, &summary)

	return summary, err
}

// DailyScanData is the number of scans recorded on one day
type DailyScanData struct {
	ScanDate string `bun:"scan_date" json:"date"`
	Scans    int    `bun:"scans" json:"scans"`
}

// GetDailyScans groups scans by calendar day
func (db *DB) GetDailyScans(ctx context.Context) ([]DailyScanData, error) {
	var daily []DailyScanData
	err := db.bun.NewRaw(`
		SELECT
			CAST(DATE(created_at) AS TEXT) AS scan_date,
			COUNT(*) AS scans
		FROM
			scans
		GROUP BY
			DATE(created_at)
		ORDER BY
			DATE(created_at)
	`).Scan(ctx, &daily)

	return daily, err
}

// ScannerActivity is how many people one attendee has scanned
type ScannerActivity struct {
	AttendeeID string `bun:"attendee_id" json:"attendee_id"`
	Name       string `bun:"name" json:"name"`
	Scans      int    `bun:"scans" json:"scans"`
}

// GetTopScanners lists the most active scanners
func (db *DB) GetTopScanners(ctx context.Context, limit int) ([]ScannerActivity, error) {
	var top []ScannerActivity
	err := db.bun.NewSelect().
		ColumnExpr("s.scanner_id AS attendee_id").
		ColumnExpr("a.name AS name").
		ColumnExpr("COUNT(*) AS scans").
		TableExpr("scans AS s").
		Join("JOIN attendees AS a ON a.id = s.scanner_id").
		GroupExpr("s.scanner_id, a.name").
		OrderExpr("scans DESC, s.scanner_id ASC").
		Limit(limit).
		Scan(ctx, &top)

	return top, err
}
