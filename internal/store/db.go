// Package store is the bun-backed storage behind attendees, scans, bonus codes,
// raffle winners and game settings. It runs against Postgres in production and
// SQLite in tests.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"ms-engagement/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrClaimRefused = errors.New("bonus code already claimed or exhausted")
)

type DB struct {
	Bun *bun.DB
}

func New(db *bun.DB) *DB {
	return &DB{Bun: db}
}

// isUniqueViolation recognises a unique-index rejection from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// CreateSchema creates every table the service needs if missing. Production
// schemas come from migrations/; this serves tests and local SQLite runs.
func (d *DB) CreateSchema(ctx context.Context) error {
	tables := []interface{}{
		(*models.Attendee)(nil),
		(*models.Scan)(nil),
		(*models.BonusCode)(nil),
		(*models.BonusClaim)(nil),
		(*models.RaffleWinner)(nil),
		(*models.Setting)(nil),
	}
	for _, model := range tables {
		if _, err := d.Bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
