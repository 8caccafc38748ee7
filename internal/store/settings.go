package store

import (
	"context"
	"errors"

	"ms-engagement/internal/models"
)

// ---------------- SETTINGS ----------------

// GetSetting returns false for a key that was never set.
func (d *DB) GetSetting(ctx context.Context, key string) (bool, error) {
	var setting models.Setting
	err := d.Bun.NewSelect().
		Model(&setting).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(notFound(err), ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return setting.Value, nil
}

func (d *DB) SetSetting(ctx context.Context, key string, value bool) error {
	setting := &models.Setting{Key: key, Value: value}
	_, err := d.Bun.NewInsert().
		Model(setting).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}
