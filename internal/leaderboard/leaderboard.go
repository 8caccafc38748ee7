// Package leaderboard keeps a live points ranking in a Redis sorted set, fed by
// engagement events.
package leaderboard

import (
	"context"
	"fmt"

	"ms-engagement/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultKey  = "leaderboard:points"
	namesSuffix = ":names"
)

type Board struct {
	Client *redis.Client
	Key    string
}

func New(client *redis.Client, key string) *Board {
	if key == "" {
		key = DefaultKey
	}
	return &Board{Client: client, Key: key}
}

func (b *Board) namesKey() string {
	return b.Key + namesSuffix
}

// Apply folds one event into the ranking. Events that move no points only
// refresh names. Staff are kept off the ranking, as in Rebuild.
func (b *Board) Apply(ctx context.Context, event models.EngagementEvent) error {
	if event.AttendeeID == "" {
		return nil
	}
	pipe := b.Client.TxPipeline()
	if event.Role.IsStaff() {
		pipe.ZRem(ctx, b.Key, event.AttendeeID)
		pipe.HDel(ctx, b.namesKey(), event.AttendeeID)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop staff member %s: %w", event.AttendeeID, err)
		}
		return nil
	}
	if event.Name != "" {
		pipe.HSet(ctx, b.namesKey(), event.AttendeeID, event.Name)
	}
	if event.Type == models.EventPointsAwarded && event.Points != 0 {
		pipe.ZIncrBy(ctx, b.Key, float64(event.Points), event.AttendeeID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to apply %s for %s: %w", event.Type, event.AttendeeID, err)
	}
	return nil
}

// Rebuild replaces the ranking with the given attendees' stored points. Staff are left out.
func (b *Board) Rebuild(ctx context.Context, attendees []models.Attendee) error {
	pipe := b.Client.TxPipeline()
	pipe.Del(ctx, b.Key, b.namesKey())
	for _, a := range attendees {
		if a.Role.IsStaff() {
			continue
		}
		pipe.ZAdd(ctx, b.Key, &redis.Z{Score: float64(a.Points), Member: a.ID})
		pipe.HSet(ctx, b.namesKey(), a.ID, a.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard: %w", err)
	}
	return nil
}

// Top returns the n highest scorers, best first.
func (b *Board) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 {
		return []models.LeaderboardEntry{}, nil
	}
	scores, err := b.Client.ZRevRangeWithScores(ctx, b.Key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	if len(scores) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	ids := make([]string, len(scores))
	for i, z := range scores {
		ids[i] = fmt.Sprint(z.Member)
	}
	names, err := b.Client.HMGet(ctx, b.namesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard names: %w", err)
	}

	entries := make([]models.LeaderboardEntry, len(scores))
	for i, z := range scores {
		entries[i] = models.LeaderboardEntry{
			AttendeeID: ids[i],
			Points:     int(z.Score),
			Rank:       i + 1,
		}
		if name, ok := names[i].(string); ok {
			entries[i].Name = name
		}
	}
	return entries, nil
}
