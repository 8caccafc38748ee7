package scan_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"

	"ms-engagement/internal/logger"
	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
	"ms-engagement/internal/scan"
	"ms-engagement/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Mock implementations
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetAttendeeByID(ctx context.Context, id string) (*models.Attendee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attendee), args.Error(1)
}

func (m *MockStore) GetBonusCode(ctx context.Context, code string) (*models.BonusCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BonusCode), args.Error(1)
}

func (m *MockStore) GetSetting(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) AwardScan(ctx context.Context, scannerID, scannedID string, points int) error {
	args := m.Called(ctx, scannerID, scannedID, points)
	return args.Error(0)
}

func (m *MockStore) ClaimBonusAtomic(ctx context.Context, attendeeID, code string) (bool, error) {
	args := m.Called(ctx, attendeeID, code)
	return args.Bool(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEngagementEvent(ctx context.Context, event models.EngagementEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// openGuard lets every scan through so only storage decides.
type openGuard struct{}

func (openGuard) Acquire(context.Context, string) (func(), bool, error) { return func() {}, true, nil }

var (
	scanner = &models.Attendee{ID: "scanner", Name: "Sam", CheckedIn: true, Value: 1}
	scanned = &models.Attendee{ID: "scanned", Name: "Tia", CheckedIn: true, Value: 3}
)

func newMockLedger(st *MockStore, pub scan.EventPublisher) *scan.Ledger {
	return scan.NewLedger(st, nil, pub, logger.New(io.Discard), 0)
}

func gameOn(st *MockStore) {
	st.On("GetSetting", mock.Anything, models.SettingGameOn).Return(true, nil)
	st.On("GetAttendeeByID", mock.Anything, "scanner").Return(scanner, nil)
}

func TestRecordScan_SelfScanTouchesNoStorage(t *testing.T) {
	st := new(MockStore)
	ledger := newMockLedger(st, nil)

	_, err := ledger.RecordScan(context.Background(), "scanner", "scanner")
	assert.True(t, errors.Is(err, scan.ErrSelfScan))
	assert.Equal(t, rejection.KindValidation, rejection.KindOf(err))
	st.AssertNotCalled(t, "GetSetting", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "GetAttendeeByID", mock.Anything, mock.Anything)
	assert.Empty(t, st.Calls)
}

func TestRecordScan_MalformedPayload(t *testing.T) {
	st := new(MockStore)
	ledger := newMockLedger(st, nil)

	for _, payload := range []string{"", "   ", "\n"} {
		_, err := ledger.RecordScan(context.Background(), "scanner", payload)
		assert.True(t, errors.Is(err, scan.ErrMalformedCode))
	}
	assert.Empty(t, st.Calls)
}

func TestRecordScan_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(st *MockStore)
		wantErr error
		kind    rejection.Kind
	}{
		{
			name: "game off",
			setup: func(st *MockStore) {
				st.On("GetSetting", mock.Anything, models.SettingGameOn).Return(false, nil)
			},
			wantErr: scan.ErrGameOff,
			kind:    rejection.KindValidation,
		},
		{
			name: "settings unreachable",
			setup: func(st *MockStore) {
				st.On("GetSetting", mock.Anything, models.SettingGameOn).Return(false, errors.New("timeout"))
			},
			kind: rejection.KindStorage,
		},
		{
			name: "unknown scanner",
			setup: func(st *MockStore) {
				st.On("GetSetting", mock.Anything, models.SettingGameOn).Return(true, nil)
				st.On("GetAttendeeByID", mock.Anything, "scanner").Return(nil, store.ErrNotFound)
			},
			wantErr: scan.ErrUnknownScanner,
			kind:    rejection.KindNotFound,
		},
		{
			name: "scanner not checked in",
			setup: func(st *MockStore) {
				st.On("GetSetting", mock.Anything, models.SettingGameOn).Return(true, nil)
				st.On("GetAttendeeByID", mock.Anything, "scanner").
					Return(&models.Attendee{ID: "scanner", CheckedIn: false}, nil)
			},
			wantErr: scan.ErrScannerAbsent,
			kind:    rejection.KindValidation,
		},
		{
			name: "scanned attendee not checked in",
			setup: func(st *MockStore) {
				gameOn(st)
				st.On("GetAttendeeByID", mock.Anything, "scanned").
					Return(&models.Attendee{ID: "scanned", Value: 1}, nil)
			},
			wantErr: scan.ErrTargetAbsent,
			kind:    rejection.KindValidation,
		},
		{
			name: "invalid code",
			setup: func(st *MockStore) {
				gameOn(st)
				st.On("GetAttendeeByID", mock.Anything, "scanned").Return(nil, store.ErrNotFound)
				st.On("GetBonusCode", mock.Anything, "scanned").Return(nil, store.ErrNotFound)
			},
			wantErr: scan.ErrInvalidCode,
			kind:    rejection.KindNotFound,
		},
		{
			name: "lookup failure is not an invalid code",
			setup: func(st *MockStore) {
				gameOn(st)
				st.On("GetAttendeeByID", mock.Anything, "scanned").Return(nil, errors.New("connection reset"))
			},
			kind: rejection.KindStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(MockStore)
			tt.setup(st)
			ledger := newMockLedger(st, nil)

			_, err := ledger.RecordScan(context.Background(), "scanner", "scanned")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			assert.Equal(t, tt.kind, rejection.KindOf(err))
			st.AssertNotCalled(t, "AwardScan", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			st.AssertNotCalled(t, "ClaimBonusAtomic", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRecordScan_AttendeeAwardsScannedValue(t *testing.T) {
	st := new(MockStore)
	gameOn(st)
	st.On("GetAttendeeByID", mock.Anything, "scanned").Return(scanned, nil)
	st.On("AwardScan", mock.Anything, "scanner", "scanned", 3).Return(nil).Once()
	st.On("AwardScan", mock.Anything, "scanner", "scanned", 3).Return(store.ErrDuplicate)

	pub := new(MockPublisher)
	pub.On("PublishEngagementEvent", mock.Anything, mock.MatchedBy(func(e models.EngagementEvent) bool {
		return e.Type == models.EventPointsAwarded && e.AttendeeID == "scanner" && e.Points == 3
	})).Return(nil)

	ledger := newMockLedger(st, pub)

	outcome, err := ledger.RecordScan(context.Background(), "scanner", " scanned ")
	require.NoError(t, err)
	assert.Equal(t, models.ScanOutcomeAttendee, outcome.Kind)
	assert.Equal(t, "Tia", outcome.TargetName)
	assert.Equal(t, 3, outcome.PointsAwarded)

	_, err = ledger.RecordScan(context.Background(), "scanner", "scanned")
	assert.True(t, errors.Is(err, scan.ErrAlreadyScanned))
	assert.Equal(t, rejection.KindConflict, rejection.KindOf(err))

	pub.AssertNumberOfCalls(t, "PublishEngagementEvent", 1)
}

func TestRecordScan_PublishFailureKeepsAward(t *testing.T) {
	st := new(MockStore)
	gameOn(st)
	st.On("GetAttendeeByID", mock.Anything, "scanned").Return(scanned, nil)
	st.On("AwardScan", mock.Anything, "scanner", "scanned", 3).Return(nil)

	pub := new(MockPublisher)
	pub.On("PublishEngagementEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	outcome, err := newMockLedger(st, pub).RecordScan(context.Background(), "scanner", "scanned")
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.PointsAwarded)
}

func TestRecordScan_GuardReleasedBeforePublish(t *testing.T) {
	st := new(MockStore)
	gameOn(st)
	st.On("GetAttendeeByID", mock.Anything, "scanned").Return(scanned, nil)
	st.On("AwardScan", mock.Anything, "scanner", "scanned", 3).Return(nil)

	guard := scan.NewLocalGuard()
	freeWhilePublishing := false
	pub := new(MockPublisher)
	pub.On("PublishEngagementEvent", mock.Anything, mock.MatchedBy(func(e models.EngagementEvent) bool {
		return e.AttendeeID == "scanner" && e.Name == "Sam"
	})).Run(func(mock.Arguments) {
		release, ok, _ := guard.Acquire(context.Background(), "scanner")
		freeWhilePublishing = ok
		if ok {
			release()
		}
	}).Return(nil)

	ledger := scan.NewLedger(st, guard, pub, logger.New(io.Discard), 0)
	_, err := ledger.RecordScan(context.Background(), "scanner", "scanned")
	require.NoError(t, err)

	assert.True(t, freeWhilePublishing, "scanner stayed locked while the award was published")
	pub.AssertExpectations(t)
}

func TestRecordScan_BonusCode(t *testing.T) {
	st := new(MockStore)
	gameOn(st)
	bonus := &models.BonusCode{Code: "BOOTH-7", Points: 10, Description: "Visited booth 7"}
	st.On("GetAttendeeByID", mock.Anything, "BOOTH-7").Return(nil, store.ErrNotFound)
	st.On("GetBonusCode", mock.Anything, "BOOTH-7").Return(bonus, nil)
	st.On("ClaimBonusAtomic", mock.Anything, "scanner", "BOOTH-7").Return(true, nil).Once()
	st.On("ClaimBonusAtomic", mock.Anything, "scanner", "BOOTH-7").Return(false, nil)

	ledger := newMockLedger(st, nil)

	outcome, err := ledger.RecordScan(context.Background(), "scanner", "BOOTH-7")
	require.NoError(t, err)
	assert.Equal(t, models.ScanOutcomeBonus, outcome.Kind)
	assert.Equal(t, 10, outcome.PointsAwarded)
	assert.Equal(t, "Visited booth 7", outcome.Description)

	_, err = ledger.RecordScan(context.Background(), "scanner", "BOOTH-7")
	assert.True(t, errors.Is(err, scan.ErrBonusRefused))
}

func TestRecordScan_BusyScannerIsRejected(t *testing.T) {
	st := new(MockStore)
	guard := scan.NewLocalGuard()
	release, ok, err := guard.Acquire(context.Background(), "scanner")
	require.NoError(t, err)
	require.True(t, ok)

	ledger := scan.NewLedger(st, guard, nil, logger.New(io.Discard), 0)
	_, err = ledger.RecordScan(context.Background(), "scanner", "scanned")
	assert.True(t, errors.Is(err, scan.ErrScanInProgress))
	assert.Empty(t, st.Calls)

	release()
	gameOn(st)
	st.On("GetAttendeeByID", mock.Anything, "scanned").Return(scanned, nil)
	st.On("AwardScan", mock.Anything, "scanner", "scanned", 3).Return(nil)
	_, err = ledger.RecordScan(context.Background(), "scanner", "scanned")
	assert.NoError(t, err)
}

func setupStore(t *testing.T) *store.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	db := store.New(bunDB)
	ctx := context.Background()
	require.NoError(t, db.CreateSchema(ctx))
	require.NoError(t, db.SetSetting(ctx, models.SettingGameOn, true))
	require.NoError(t, db.CreateAttendee(ctx, &models.Attendee{ID: "scanner", Name: "Sam", Email: "sam@x.io", CheckedIn: true}))
	require.NoError(t, db.CreateAttendee(ctx, &models.Attendee{ID: "scanned", Name: "Tia", Email: "tia@x.io", CheckedIn: true, Value: 3}))
	return db
}

func TestRecordScan_ConcurrentDuplicatePairAwardsOnce(t *testing.T) {
	for name, guard := range map[string]scan.Guard{
		"storage only": openGuard{},
		"local guard":  scan.NewLocalGuard(),
	} {
		t.Run(name, func(t *testing.T) {
			db := setupStore(t)
			ledger := scan.NewLedger(db, guard, nil, logger.New(io.Discard), 0)

			var wg sync.WaitGroup
			var mu sync.Mutex
			awarded := 0
			for i := 0; i < 12; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := ledger.RecordScan(context.Background(), "scanner", "scanned")
					if err == nil {
						mu.Lock()
						awarded++
						mu.Unlock()
						return
					}
					assert.Equal(t, rejection.KindConflict, rejection.KindOf(err), "unexpected %v", err)
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, awarded)
			got, err := db.GetAttendeeByID(context.Background(), "scanner")
			require.NoError(t, err)
			assert.Equal(t, 3, got.Points)
		})
	}
}

func TestRecordScan_BonusCeilingAgainstStore(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()
	one := 1
	require.NoError(t, db.CreateBonusCode(ctx, &models.BonusCode{Code: "GOLD", Points: 5, MaxClaims: &one}))

	ledger := scan.NewLedger(db, nil, nil, logger.New(io.Discard), 0)

	outcome, err := ledger.RecordScan(ctx, "scanner", "GOLD")
	require.NoError(t, err)
	assert.Equal(t, 5, outcome.PointsAwarded)

	_, err = ledger.RecordScan(ctx, "scanned", "GOLD")
	assert.True(t, errors.Is(err, scan.ErrBonusRefused))

	tia, err := db.GetAttendeeByID(ctx, "scanned")
	require.NoError(t, err)
	assert.Equal(t, 0, tia.Points)
}
