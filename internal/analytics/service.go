package analytics

import (
	"context"

	"ms-engagement/internal/auth"
	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
)

// Service handles analytics operations
type Service struct {
	db *DB
}

// NewService creates a new analytics service
func NewService(db *DB) *Service {
	return &Service{db: db}
}

// Dashboard is everything the admin summary page shows
type Dashboard struct {
	Summary     models.EngagementSummary `json:"summary"`
	DailyScans  []DailyScanData          `json:"daily_scans"`
	TopScanners []ScannerActivity        `json:"top_scanners"`
}

const topScannerLimit = 10

// GetDashboard gathers the staff dashboard
func (s *Service) GetDashboard(ctx context.Context, op auth.Operator) (*Dashboard, error) {
	if err := auth.RequireStaff(op); err != nil {
		return nil, err
	}

	summary, err := s.db.GetSummary(ctx)
	if err != nil {
		return nil, rejection.Storage("failed to load summary", err)
	}

	daily, err := s.db.GetDailyScans(ctx)
	if err != nil {
		return nil, rejection.Storage("failed to load daily scans", err)
	}
	if daily == nil {
		daily = []DailyScanData{}
	}

	top, err := s.db.GetTopScanners(ctx, topScannerLimit)
	if err != nil {
		return nil, rejection.Storage("failed to load top scanners", err)
	}
	if top == nil {
		top = []ScannerActivity{}
	}

	return &Dashboard{Summary: summary, DailyScans: daily, TopScanners: top}, nil
}
