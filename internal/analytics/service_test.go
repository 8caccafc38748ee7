package analytics_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"ms-engagement/internal/analytics"
	"ms-engagement/internal/auth"
	"ms-engagement/internal/models"
	"ms-engagement/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*store.DB, *bun.DB) {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	db := store.New(bunDB)
	require.NoError(t, db.CreateSchema(context.Background()))
	return db, bunDB
}

func TestGetDashboard(t *testing.T) {
	db, bunDB := setupTestDB(t)
	ctx := context.Background()

	for _, a := range []models.Attendee{
		{ID: "a1", Name: "Ada", Email: "ada@x.io", CheckedIn: true},
		{ID: "b2", Name: "Bo", Email: "bo@x.io", CheckedIn: true, Value: 2},
		{ID: "c3", Name: "Cy", Email: "cy@x.io"},
	} {
		a := a
		require.NoError(t, db.CreateAttendee(ctx, &a))
	}
	require.NoError(t, db.AwardScan(ctx, "a1", "b2", 2))
	require.NoError(t, db.AwardScan(ctx, "a1", "c3", 1))
	require.NoError(t, db.AwardScan(ctx, "b2", "a1", 1))
	require.NoError(t, db.CreateBonusCode(ctx, &models.BonusCode{Code: "GOLD", Points: 5}))
	ok, err := db.ClaimBonusAtomic(ctx, "b2", "GOLD")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = db.InsertRaffleWinner(ctx, "a1", "weighted")
	require.NoError(t, err)

	svc := analytics.NewService(analytics.NewDB(bunDB))

	_, err = svc.GetDashboard(ctx, auth.Operator{AttendeeID: "a1", Role: models.RoleAttendee})
	assert.True(t, errors.Is(err, auth.ErrNotStaff))

	dash, err := svc.GetDashboard(ctx, auth.Operator{AttendeeID: "s1", Role: models.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, models.EngagementSummary{
		Attendees:     3,
		CheckedIn:     2,
		TotalPoints:   9,
		Scans:         3,
		BonusClaims:   1,
		RaffleWinners: 1,
	}, dash.Summary)

	require.Len(t, dash.DailyScans, 1)
	assert.Equal(t, 3, dash.DailyScans[0].Scans)
	assert.Len(t, dash.DailyScans[0].ScanDate, len("2006-01-02"))

	require.Len(t, dash.TopScanners, 2)
	assert.Equal(t, analytics.ScannerActivity{AttendeeID: "a1", Name: "Ada", Scans: 2}, dash.TopScanners[0])
}

func TestGetDashboard_Empty(t *testing.T) {
	_, bunDB := setupTestDB(t)
	svc := analytics.NewService(analytics.NewDB(bunDB))

	dash, err := svc.GetDashboard(context.Background(), auth.Operator{AttendeeID: "s1", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.EngagementSummary{}, dash.Summary)
	assert.Empty(t, dash.DailyScans)
	assert.Empty(t, dash.TopScanners)
}
