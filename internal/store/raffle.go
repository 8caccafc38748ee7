package store

import (
	"context"
	"time"

	"ms-engagement/internal/models"

	"github.com/google/uuid"
)

// ---------------- RAFFLE WINNERS ----------------

func (d *DB) InsertRaffleWinner(ctx context.Context, attendeeID, raffleType string) (*models.RaffleWinner, error) {
	winner := &models.RaffleWinner{
		ID:         uuid.New().String(),
		AttendeeID: attendeeID,
		RaffleType: raffleType,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := d.Bun.NewInsert().Model(winner).Exec(ctx); err != nil {
		return nil, err
	}
	return winner, nil
}

func (d *DB) ListRaffleWinners(ctx context.Context) ([]models.RaffleWinner, error) {
	var winners []models.RaffleWinner
	err := d.Bun.NewSelect().
		Model(&winners).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return winners, nil
}
