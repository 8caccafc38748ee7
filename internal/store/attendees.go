package store

import (
	"context"
	"strings"
	"time"

	"ms-engagement/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ---------------- ATTENDEES ----------------

// LoadEligibleAttendees returns checked-in non-staff attendees holding points,
// ordered points desc, id asc.
func (d *DB) LoadEligibleAttendees(ctx context.Context) ([]models.Attendee, error) {
	var attendees []models.Attendee
	err := d.Bun.NewSelect().
		Model(&attendees).
		Where("checked_in = ?", true).
		Where("points > 0").
		Where("role NOT IN (?)", bun.In([]string{string(models.RoleStaff), string(models.RoleSuperAdmin)})).
		OrderExpr("points DESC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return attendees, nil
}

func (d *DB) GetAttendeeByID(ctx context.Context, id string) (*models.Attendee, error) {
	var attendee models.Attendee
	err := d.Bun.NewSelect().
		Model(&attendee).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &attendee, nil
}

// GetAttendeeByEmail matches case-insensitively.
func (d *DB) GetAttendeeByEmail(ctx context.Context, email string) (*models.Attendee, error) {
	var attendee models.Attendee
	err := d.Bun.NewSelect().
		Model(&attendee).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &attendee, nil
}

// ListAttendees → everyone, highest points first
func (d *DB) ListAttendees(ctx context.Context) ([]models.Attendee, error) {
	var attendees []models.Attendee
	err := d.Bun.NewSelect().
		Model(&attendees).
		OrderExpr("points DESC, name ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return attendees, nil
}

func (d *DB) CreateAttendee(ctx context.Context, attendee *models.Attendee) error {
	if attendee.ID == "" {
		attendee.ID = uuid.New().String()
	}
	if attendee.Role == "" {
		attendee.Role = models.RoleAttendee
	}
	if attendee.Value == 0 {
		attendee.Value = 1
	}
	if attendee.CreatedAt.IsZero() {
		attendee.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().Model(attendee).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// AtomicIncrementPoints adds delta in SQL so concurrent awards never lose updates.
func (d *DB) AtomicIncrementPoints(ctx context.Context, attendeeID string, delta int) error {
	return incrementPoints(ctx, d.Bun, attendeeID, delta)
}

func incrementPoints(ctx context.Context, db bun.IDB, attendeeID string, delta int) error {
	res, err := db.NewUpdate().
		Model((*models.Attendee)(nil)).
		Set("points = points + ?", delta).
		Where("id = ?", attendeeID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CheckIn marks an attendee present. It reports false when they already were.
func (d *DB) CheckIn(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Attendee)(nil)).
		Set("checked_in = ?", true).
		Where("id = ?", id).
		Where("checked_in = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	if _, err := d.GetAttendeeByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (d *DB) SetCheckedIn(ctx context.Context, id string, checkedIn bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Attendee)(nil)).
		Set("checked_in = ?", checkedIn).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
