package store

import (
	"context"
	"errors"
	"time"

	"ms-engagement/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ---------------- BONUS CODES ----------------

func (d *DB) GetBonusCode(ctx context.Context, code string) (*models.BonusCode, error) {
	var bonus models.BonusCode
	err := d.Bun.NewSelect().
		Model(&bonus).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &bonus, nil
}

func (d *DB) CreateBonusCode(ctx context.Context, bonus *models.BonusCode) error {
	if bonus.CreatedAt.IsZero() {
		bonus.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().Model(bonus).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// ClaimBonusAtomic takes one claim slot, records the claim and credits the
// attendee, all in one transaction. It returns false, and writes nothing, when
// the attendee already claimed the code or the ceiling was reached.
func (d *DB) ClaimBonusAtomic(ctx context.Context, attendeeID, code string) (bool, error) {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.BonusCode)(nil)).
			Set("claim_count = claim_count + 1").
			Where("code = ?", code).
			Where("(max_claims IS NULL OR claim_count < max_claims)").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrClaimRefused
		}

		claim := &models.BonusClaim{
			ID:         uuid.New().String(),
			AttendeeID: attendeeID,
			Code:       code,
			CreatedAt:  time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(claim).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return ErrClaimRefused
			}
			return err
		}

		res, err = tx.NewUpdate().
			Model((*models.Attendee)(nil)).
			Set("points = points + (SELECT points FROM bonus_codes WHERE code = ?)", code).
			Where("id = ?", attendeeID).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireRow(res)
	})

	if errors.Is(err, ErrClaimRefused) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
