package raffle

import (
	"context"
	"fmt"
	"time"

	"ms-engagement/internal/auth"
	"ms-engagement/internal/logger"
	"ms-engagement/internal/models"
)

// EventPublisher streams committed engagement events. Failures are logged, not returned.
type EventPublisher interface {
	PublishEngagementEvent(ctx context.Context, event models.EngagementEvent) error
}

// DrawEmitter pushes draws to live subscribers of a session.
type DrawEmitter interface {
	EmitDraw(draw models.RaffleDraw)
	CloseSession(sessionID string)
}

type Service struct {
	Store    WinnerStore
	Sessions *Registry
	Kafka    EventPublisher
	Emitter  DrawEmitter
	Logger   *logger.Logger

	// NewSource seeds each new session. Nil uses the clock.
	NewSource func() Source
}

func NewService(store WinnerStore, sessions *Registry, kafka EventPublisher, emitter DrawEmitter, log *logger.Logger) *Service {
	return &Service{
		Store:    store,
		Sessions: sessions,
		Kafka:    kafka,
		Emitter:  emitter,
		Logger:   log,
	}
}

func (s *Service) StartSession(ctx context.Context, op auth.Operator, req models.CreateRaffleSessionRequest) (models.RaffleSessionView, error) {
	opts := SessionOptions{AllowRepeatWinners: req.AllowRepeatWinners}
	if s.NewSource != nil {
		opts.Source = s.NewSource()
	}

	session, err := NewSession(ctx, s.Store, op, opts)
	if err != nil {
		return models.RaffleSessionView{}, err
	}
	s.Sessions.Put(session)

	view := session.View()
	s.Logger.LogRaffle(session.ID(), fmt.Sprintf("opened by %s with %d eligible attendees", op.AttendeeID, view.RemainingEligible))
	return view, nil
}

// Draw runs one draw in the operator's session. The role was checked when the
// session opened; from then on ownership is the only gate.
func (s *Service) Draw(ctx context.Context, op auth.Operator, sessionID string, req models.DrawRequest) (models.RaffleDraw, error) {
	scheme, err := ParseScheme(req.RaffleType)
	if err != nil {
		return models.RaffleDraw{}, err
	}

	session, err := s.Sessions.Get(sessionID, op)
	if err != nil {
		return models.RaffleDraw{}, err
	}

	draw, err := session.DrawOne(ctx, scheme)
	if err != nil {
		s.Logger.LogRaffle(sessionID, fmt.Sprintf("draw failed: %v", err))
		return models.RaffleDraw{}, err
	}
	s.Logger.LogRaffle(sessionID, fmt.Sprintf("%s draw won by %s (p=%.4f)", scheme, draw.WinnerID, draw.Probability))

	if s.Emitter != nil {
		s.Emitter.EmitDraw(draw)
	}
	s.publish(draw)
	return draw, nil
}

func (s *Service) View(op auth.Operator, sessionID string) (models.RaffleSessionView, error) {
	session, err := s.Sessions.Get(sessionID, op)
	if err != nil {
		return models.RaffleSessionView{}, err
	}
	return session.View(), nil
}

func (s *Service) Close(op auth.Operator, sessionID string) error {
	if err := s.Sessions.Remove(sessionID, op); err != nil {
		return err
	}
	if s.Emitter != nil {
		s.Emitter.CloseSession(sessionID)
	}
	s.Logger.LogRaffle(sessionID, "closed")
	return nil
}

// RunJanitor evicts idle sessions until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sessions.Sweep(); n > 0 {
				s.Logger.Info("RAFFLE", fmt.Sprintf("evicted %d idle raffle sessions", n))
			}
		}
	}
}

func (s *Service) publish(draw models.RaffleDraw) {
	if s.Kafka == nil {
		return
	}
	event := models.EngagementEvent{
		Type:       models.EventRaffleWinner,
		AttendeeID: draw.WinnerID,
		Name:       draw.WinnerName,
		Points:     0,
		Source:     draw.RaffleType,
		Reference:  draw.SessionID,
		OccurredAt: draw.DrawnAt,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Kafka.PublishEngagementEvent(ctx, event); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish raffle winner %s: %v", draw.WinnerID, err))
	}
}
