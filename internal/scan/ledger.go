// Package scan awards points when one attendee scans another attendee's ticket
// or a bonus code. Each (scanner, scanned) pair pays out once.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-engagement/internal/logger"
	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
	"ms-engagement/internal/store"
)

var (
	ErrMalformedCode    = rejection.Validation("malformed code")
	ErrSelfScan         = rejection.Validation("cannot scan your own code")
	ErrGameOff          = rejection.Validation("game is not running")
	ErrScannerAbsent    = rejection.Validation("check in before scanning")
	ErrTargetAbsent     = rejection.Validation("that attendee has not checked in yet")
	ErrUnknownScanner   = rejection.NotFound("unknown scanner")
	ErrInvalidCode      = rejection.NotFound("invalid code")
	ErrAlreadyScanned   = rejection.Conflict("already scanned this person")
	ErrBonusRefused     = rejection.Conflict("already claimed or limit reached")
	ErrScanInProgress   = rejection.Conflict("scan already in progress")
	ErrGuardUnavailable = rejection.New(rejection.KindStorage, "scan guard unavailable")
)

const DefaultTimeout = 5 * time.Second

// Store is the storage a ledger needs.
type Store interface {
	GetAttendeeByID(ctx context.Context, id string) (*models.Attendee, error)
	GetBonusCode(ctx context.Context, code string) (*models.BonusCode, error)
	GetSetting(ctx context.Context, key string) (bool, error)
	AwardScan(ctx context.Context, scannerID, scannedID string, points int) error
	ClaimBonusAtomic(ctx context.Context, attendeeID, code string) (bool, error)
}

// EventPublisher streams committed awards. Failures are logged, never undo an award.
type EventPublisher interface {
	PublishEngagementEvent(ctx context.Context, event models.EngagementEvent) error
}

type Ledger struct {
	Store   Store
	Guard   Guard
	Kafka   EventPublisher
	Logger  *logger.Logger
	Timeout time.Duration
}

func NewLedger(s Store, guard Guard, kafka EventPublisher, log *logger.Logger, timeout time.Duration) *Ledger {
	if guard == nil {
		guard = NewLocalGuard()
	}
	return &Ledger{Store: s, Guard: guard, Kafka: kafka, Logger: log, Timeout: timeout}
}

func (l *Ledger) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// RecordScan applies one decoded payload scanned by scannerID.
func (l *Ledger) RecordScan(ctx context.Context, scannerID, payload string) (models.ScanOutcome, error) {
	code := strings.TrimSpace(payload)
	if code == "" || scannerID == "" {
		return models.ScanOutcome{}, ErrMalformedCode
	}
	if code == scannerID {
		return models.ScanOutcome{}, ErrSelfScan
	}

	scanner, outcome, err := l.apply(ctx, scannerID, code)
	if err != nil {
		l.Logger.LogScan(scannerID, code, fmt.Sprintf("rejected: %v", err))
		return models.ScanOutcome{}, err
	}

	l.Logger.LogScan(scannerID, outcome.TargetID, fmt.Sprintf("awarded %d points", outcome.PointsAwarded))
	l.publish(scanner, outcome)
	return outcome, nil
}

// apply runs one scan while holding the scanner's guard. The guard is
// released before the award is published.
func (l *Ledger) apply(ctx context.Context, scannerID, code string) (*models.Attendee, models.ScanOutcome, error) {
	release, ok, err := l.Guard.Acquire(ctx, scannerID)
	if err != nil {
		return nil, models.ScanOutcome{}, ErrGuardUnavailable.With(err)
	}
	if !ok {
		return nil, models.ScanOutcome{}, ErrScanInProgress
	}
	defer release()

	scanner, err := l.checkPreconditions(ctx, scannerID)
	if err != nil {
		return nil, models.ScanOutcome{}, err
	}

	t, err := l.resolveTarget(ctx, code)
	if err != nil {
		return nil, models.ScanOutcome{}, err
	}

	var outcome models.ScanOutcome
	switch t.kind {
	case targetAttendee:
		outcome, err = l.scanAttendee(ctx, scannerID, t.attendee)
	case targetBonus:
		outcome, err = l.claimBonus(ctx, scannerID, t.bonus)
	default:
		err = ErrInvalidCode
	}
	if err != nil {
		return nil, models.ScanOutcome{}, err
	}
	return scanner, outcome, nil
}

func (l *Ledger) checkPreconditions(ctx context.Context, scannerID string) (*models.Attendee, error) {
	ctx, cancel := l.bounded(ctx)
	defer cancel()

	on, err := l.Store.GetSetting(ctx, models.SettingGameOn)
	if err != nil {
		return nil, rejection.Storage("failed to read game state", err)
	}
	if !on {
		return nil, ErrGameOff
	}

	scanner, err := l.Store.GetAttendeeByID(ctx, scannerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownScanner
	}
	if err != nil {
		return nil, rejection.Storage("failed to look up scanner", err)
	}
	if !scanner.CheckedIn {
		return nil, ErrScannerAbsent
	}
	return scanner, nil
}

func (l *Ledger) scanAttendee(ctx context.Context, scannerID string, scanned *models.Attendee) (models.ScanOutcome, error) {
	if !scanned.CheckedIn {
		return models.ScanOutcome{}, ErrTargetAbsent
	}

	ctx, cancel := l.bounded(ctx)
	defer cancel()

	err := l.Store.AwardScan(ctx, scannerID, scanned.ID, scanned.Value)
	if errors.Is(err, store.ErrDuplicate) {
		return models.ScanOutcome{}, ErrAlreadyScanned
	}
	if err != nil {
		return models.ScanOutcome{}, rejection.Storage("failed to record scan", err)
	}

	return models.ScanOutcome{
		Kind:          models.ScanOutcomeAttendee,
		TargetID:      scanned.ID,
		TargetName:    scanned.Name,
		PointsAwarded: scanned.Value,
	}, nil
}

func (l *Ledger) claimBonus(ctx context.Context, scannerID string, bonus *models.BonusCode) (models.ScanOutcome, error) {
	ctx, cancel := l.bounded(ctx)
	defer cancel()

	claimed, err := l.Store.ClaimBonusAtomic(ctx, scannerID, bonus.Code)
	if err != nil {
		return models.ScanOutcome{}, rejection.Storage("failed to claim bonus code", err)
	}
	if !claimed {
		return models.ScanOutcome{}, ErrBonusRefused
	}

	return models.ScanOutcome{
		Kind:          models.ScanOutcomeBonus,
		TargetID:      bonus.Code,
		Description:   bonus.Description,
		PointsAwarded: bonus.Points,
	}, nil
}

func (l *Ledger) publish(scanner *models.Attendee, outcome models.ScanOutcome) {
	if l.Kafka == nil {
		return
	}
	event := models.NewPointsAwardedEvent(scanner.ID, outcome.PointsAwarded, string(outcome.Kind), outcome.TargetID)
	event.Name = scanner.Name
	event.Role = scanner.Role

	ctx, cancel := l.bounded(context.Background())
	defer cancel()
	if err := l.Kafka.PublishEngagementEvent(ctx, event); err != nil {
		l.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish points for %s: %v", scanner.ID, err))
	}
}
