package scan

import (
	"context"
	"errors"

	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
	"ms-engagement/internal/store"
)

type targetKind int

const (
	targetUnknown targetKind = iota
	targetAttendee
	targetBonus
)

// target is what a decoded payload resolved to. Exactly one of attendee and
// bonus is set, matching kind.
type target struct {
	kind     targetKind
	attendee *models.Attendee
	bonus    *models.BonusCode
}

// resolveTarget tries the payload as an attendee id first, then as a bonus code.
func (l *Ledger) resolveTarget(ctx context.Context, code string) (target, error) {
	attendee, err := l.lookupAttendee(ctx, code)
	switch {
	case err == nil:
		return target{kind: targetAttendee, attendee: attendee}, nil
	case !errors.Is(err, store.ErrNotFound):
		return target{}, rejection.Storage("failed to look up attendee", err)
	}

	bonus, err := l.lookupBonus(ctx, code)
	switch {
	case err == nil:
		return target{kind: targetBonus, bonus: bonus}, nil
	case !errors.Is(err, store.ErrNotFound):
		return target{}, rejection.Storage("failed to look up bonus code", err)
	}

	return target{kind: targetUnknown}, nil
}

func (l *Ledger) lookupAttendee(ctx context.Context, id string) (*models.Attendee, error) {
	ctx, cancel := l.bounded(ctx)
	defer cancel()
	return l.Store.GetAttendeeByID(ctx, id)
}

func (l *Ledger) lookupBonus(ctx context.Context, code string) (*models.BonusCode, error) {
	ctx, cancel := l.bounded(ctx)
	defer cancel()
	return l.Store.GetBonusCode(ctx, code)
}
