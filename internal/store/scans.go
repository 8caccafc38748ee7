package store

import (
	"context"
	"time"

	"ms-engagement/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ---------------- SCANS ----------------

// InsertScanRecord stores a (scanner, scanned) pair. A repeated pair returns ErrDuplicate.
func (d *DB) InsertScanRecord(ctx context.Context, scannerID, scannedID string) error {
	return insertScan(ctx, d.Bun, scannerID, scannedID)
}

func insertScan(ctx context.Context, db bun.IDB, scannerID, scannedID string) error {
	scan := &models.Scan{
		ID:        uuid.New().String(),
		ScannerID: scannerID,
		ScannedID: scannedID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.NewInsert().Model(scan).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// AwardScan records the pair and credits the scanner in one transaction.
// On ErrDuplicate nothing is written.
func (d *DB) AwardScan(ctx context.Context, scannerID, scannedID string, points int) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := insertScan(ctx, tx, scannerID, scannedID); err != nil {
			return err
		}
		return incrementPoints(ctx, tx, scannerID, points)
	})
}

func (d *DB) CountScansBy(ctx context.Context, scannerID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Scan)(nil)).
		Where("scanner_id = ?", scannerID).
		Count(ctx)
}
