package raffle

import (
	"context"
	"sync"
	"time"

	"ms-engagement/internal/auth"
	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"

	"github.com/google/uuid"
)

// WinnerStore is the storage a session needs.
type WinnerStore interface {
	EligibleSource
	InsertRaffleWinner(ctx context.Context, attendeeID, raffleType string) (*models.RaffleWinner, error)
}

type SessionOptions struct {
	AllowRepeatWinners bool
	Source             Source
	Now                func() time.Time
}

// Session is one operator's run of sequential draws over a pool loaded once.
// It is never shared between operators.
type Session struct {
	id          string
	ownerID     string
	allowRepeat bool
	store       WinnerStore
	src         Source
	now         func() time.Time

	mu       sync.Mutex
	pool     Pool
	winners  []models.RaffleDraw
	lastUsed time.Time
}

// NewSession checks the operator once and snapshots the eligible pool.
func NewSession(ctx context.Context, store WinnerStore, op auth.Operator, opts SessionOptions) (*Session, error) {
	if err := auth.RequireSuperAdmin(op); err != nil {
		return nil, err
	}

	pool, err := LoadEligible(ctx, store)
	if err != nil {
		return nil, err
	}

	if opts.Source == nil {
		opts.Source = NewSource(time.Now().UnixNano())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Session{
		id:          uuid.New().String(),
		ownerID:     op.AttendeeID,
		allowRepeat: opts.AllowRepeatWinners,
		store:       store,
		src:         opts.Source,
		now:         opts.Now,
		pool:        pool,
		lastUsed:    opts.Now(),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) OwnerID() string {
	return s.ownerID
}

func (s *Session) Pool() Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

// DrawOne picks a winner, records it, and only then advances the pool.
// A failed write leaves the session exactly as it was.
func (s *Session) DrawOne(ctx context.Context, scheme Scheme) (models.RaffleDraw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()

	draw, next, err := DrawFrom(s.pool, scheme, s.src, s.allowRepeat)
	if err != nil {
		return models.RaffleDraw{}, err
	}

	record, err := s.store.InsertRaffleWinner(ctx, draw.Winner.ID, string(scheme))
	if err != nil {
		return models.RaffleDraw{}, rejection.Storage("failed to record raffle winner", err)
	}

	drawnAt := s.now().UTC()
	if record != nil && !record.CreatedAt.IsZero() {
		drawnAt = record.CreatedAt
	}

	result := models.RaffleDraw{
		SessionID:   s.id,
		WinnerID:    draw.Winner.ID,
		WinnerName:  draw.Winner.Name,
		Points:      draw.Winner.Points,
		RaffleType:  string(scheme),
		Weight:      draw.Weight,
		Probability: draw.Probability,
		DrawnAt:     drawnAt,
	}
	s.pool = next
	s.winners = append(s.winners, result)
	return result, nil
}

// View is a display snapshot of the session.
func (s *Session) View() models.RaffleSessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	winners := make([]models.RaffleDraw, len(s.winners))
	copy(winners, s.winners)
	return models.RaffleSessionView{
		SessionID:          s.id,
		AllowRepeatWinners: s.allowRepeat,
		RemainingEligible:  s.pool.Len(),
		TotalPoints:        s.pool.TotalPoints(),
		Eligible:           s.pool.Attendees(),
		Winners:            winners,
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
