package store_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"ms-engagement/internal/models"
	"ms-engagement/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*store.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB; one connection keeps every goroutine on the same database
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

func seedAttendee(t *testing.T, db *store.DB, a models.Attendee) models.Attendee {
	require.NoError(t, db.CreateAttendee(context.Background(), &a))
	return a
}

func TestLoadEligibleAttendees(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	seedAttendee(t, db, models.Attendee{ID: "b", Name: "B", Email: "b@x.io", Points: 5, CheckedIn: true})
	seedAttendee(t, db, models.Attendee{ID: "a", Name: "A", Email: "a@x.io", Points: 5, CheckedIn: true})
	seedAttendee(t, db, models.Attendee{ID: "c", Name: "C", Email: "c@x.io", Points: 9, CheckedIn: true})
	seedAttendee(t, db, models.Attendee{ID: "absent", Name: "D", Email: "d@x.io", Points: 20})
	seedAttendee(t, db, models.Attendee{ID: "zero", Name: "E", Email: "e@x.io", CheckedIn: true})
	seedAttendee(t, db, models.Attendee{ID: "staff", Name: "F", Email: "f@x.io", Points: 30, CheckedIn: true, Role: models.RoleStaff})
	seedAttendee(t, db, models.Attendee{ID: "root", Name: "G", Email: "g@x.io", Points: 30, CheckedIn: true, Role: models.RoleSuperAdmin})

	eligible, err := db.LoadEligibleAttendees(ctx)
	require.NoError(t, err)

	ids := []string{}
	for _, a := range eligible {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestGetAttendee(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	seedAttendee(t, db, models.Attendee{ID: "a", Name: "Ada", Email: "Ada@Example.com"})

	got, err := db.GetAttendeeByEmail(ctx, "  ada@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, 1, got.Value)
	assert.Equal(t, models.RoleAttendee, got.Role)

	_, err = db.GetAttendeeByID(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	err = db.CreateAttendee(ctx, &models.Attendee{ID: "dup", Name: "Dup", Email: "Ada@Example.com"})
	assert.True(t, errors.Is(err, store.ErrDuplicate))
}

func TestCheckIn(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	seedAttendee(t, db, models.Attendee{ID: "a", Name: "Ada", Email: "a@x.io"})

	changed, err := db.CheckIn(ctx, "a")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = db.CheckIn(ctx, "a")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = db.CheckIn(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, db.SetCheckedIn(ctx, "a", false))
	got, err := db.GetAttendeeByID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, got.CheckedIn)

	assert.True(t, errors.Is(db.SetCheckedIn(ctx, "missing", true), store.ErrNotFound))
}

func TestAwardScan_PairIsUnique(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	seedAttendee(t, db, models.Attendee{ID: "scanner", Name: "S", Email: "s@x.io", CheckedIn: true})
	seedAttendee(t, db, models.Attendee{ID: "scanned", Name: "T", Email: "t@x.io", CheckedIn: true})

	require.NoError(t, db.AwardScan(ctx, "scanner", "scanned", 3))

	err := db.AwardScan(ctx, "scanner", "scanned", 3)
	assert.True(t, errors.Is(err, store.ErrDuplicate))

	// the reverse direction is a different pair
	require.NoError(t, db.AwardScan(ctx, "scanned", "scanner", 1))

	scanner, err := db.GetAttendeeByID(ctx, "scanner")
	require.NoError(t, err)
	assert.Equal(t, 3, scanner.Points)

	n, err := db.CountScansBy(ctx, "scanner")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAwardScan_RollsBackWhenScannerMissing(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	seedAttendee(t, db, models.Attendee{ID: "scanned", Name: "T", Email: "t@x.io", CheckedIn: true})

	err := db.AwardScan(ctx, "ghost", "scanned", 1)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	n, err := db.CountScansBy(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAwardScan_ConcurrentDuplicateAwardsOnce(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	seedAttendee(t, db, models.Attendee{ID: "scanner", Name: "S", Email: "s@x.io", CheckedIn: true})
	seedAttendee(t, db, models.Attendee{ID: "scanned", Name: "T", Email: "t@x.io", CheckedIn: true, Value: 2})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, duplicates := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.AwardScan(ctx, "scanner", "scanned", 2)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, store.ErrDuplicate):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, duplicates)

	scanner, err := db.GetAttendeeByID(ctx, "scanner")
	require.NoError(t, err)
	assert.Equal(t, 2, scanner.Points)
}

func TestAtomicIncrementPoints_Concurrent(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	seedAttendee(t, db, models.Attendee{ID: "a", Name: "A", Email: "a@x.io"})

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, db.AtomicIncrementPoints(ctx, "a", 2))
		}()
	}
	wg.Wait()

	a, err := db.GetAttendeeByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 50, a.Points)

	assert.True(t, errors.Is(db.AtomicIncrementPoints(ctx, "missing", 1), store.ErrNotFound))
}

func TestClaimBonusAtomic_MaxClaimsOne(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	seedAttendee(t, db, models.Attendee{ID: "a", Name: "A", Email: "a@x.io", CheckedIn: true})
	seedAttendee(t, db, models.Attendee{ID: "b", Name: "B", Email: "b@x.io", CheckedIn: true})

	one := 1
	require.NoError(t, db.CreateBonusCode(ctx, &models.BonusCode{Code: "BOOTH-7", Points: 10, MaxClaims: &one}))

	ok, err := db.ClaimBonusAtomic(ctx, "a", "BOOTH-7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.ClaimBonusAtomic(ctx, "b", "BOOTH-7")
	require.NoError(t, err)
	assert.False(t, ok)

	a, _ := db.GetAttendeeByID(ctx, "a")
	b, _ := db.GetAttendeeByID(ctx, "b")
	assert.Equal(t, 10, a.Points)
	assert.Equal(t, 0, b.Points)

	code, err := db.GetBonusCode(ctx, "BOOTH-7")
	require.NoError(t, err)
	assert.Equal(t, 1, code.ClaimCount)
	assert.True(t, code.Exhausted())
}

func TestClaimBonusAtomic_OncePerAttendee(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	seedAttendee(t, db, models.Attendee{ID: "a", Name: "A", Email: "a@x.io", CheckedIn: true})
	require.NoError(t, db.CreateBonusCode(ctx, &models.BonusCode{Code: "KEYNOTE", Points: 4}))

	ok, err := db.ClaimBonusAtomic(ctx, "a", "KEYNOTE")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.ClaimBonusAtomic(ctx, "a", "KEYNOTE")
	require.NoError(t, err)
	assert.False(t, ok)

	// the refused claim must not have consumed a slot
	code, err := db.GetBonusCode(ctx, "KEYNOTE")
	require.NoError(t, err)
	assert.Equal(t, 1, code.ClaimCount)

	a, _ := db.GetAttendeeByID(ctx, "a")
	assert.Equal(t, 4, a.Points)

	_, err = db.GetBonusCode(ctx, "NOPE")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestClaimBonusAtomic_ConcurrentCeiling(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	three := 3
	require.NoError(t, db.CreateBonusCode(ctx, &models.BonusCode{Code: "RUSH", Points: 1, MaxClaims: &three}))

	ids := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
	for _, id := range ids {
		seedAttendee(t, db, models.Attendee{ID: id, Name: id, Email: id + "@x.io", CheckedIn: true})
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ok, err := db.ClaimBonusAtomic(ctx, id, "RUSH")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 3, granted)
	code, err := db.GetBonusCode(ctx, "RUSH")
	require.NoError(t, err)
	assert.Equal(t, 3, code.ClaimCount)
}

func TestInsertRaffleWinner(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	w, err := db.InsertRaffleWinner(ctx, "a", "weighted")
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.False(t, w.CreatedAt.IsZero())

	winners, err := db.ListRaffleWinners(ctx)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, "weighted", winners[0].RaffleType)
}

func TestSettings(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	on, err := db.GetSetting(ctx, models.SettingGameOn)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, db.SetSetting(ctx, models.SettingGameOn, true))
	on, err = db.GetSetting(ctx, models.SettingGameOn)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, db.SetSetting(ctx, models.SettingGameOn, false))
	on, err = db.GetSetting(ctx, models.SettingGameOn)
	require.NoError(t, err)
	assert.False(t, on)
}
