// Package attendees covers identification, check-in, admin point awards, the
// game switch and the attendee export.
package attendees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-engagement/internal/auth"
	"ms-engagement/internal/logger"
	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
	"ms-engagement/internal/store"
)

var (
	ErrEmailRequired    = rejection.Validation("email is required")
	ErrUnknownEmail     = rejection.NotFound("no attendee registered with that email")
	ErrAttendeeNotFound = rejection.NotFound("attendee not found")
	ErrAlreadyCheckedIn = rejection.Conflict("attendee is already checked in")
	ErrInvalidPoints    = rejection.Validation("points must be a positive number")
	ErrWrongPassword    = rejection.Unauthorized("invalid staff password")
	ErrTooManyAttempts  = rejection.Unauthorized("too many failed attempts, try again later")
	ErrTokenUnavailable = rejection.New(rejection.KindUnknown, "could not issue access token")
)

type Store interface {
	GetAttendeeByID(ctx context.Context, id string) (*models.Attendee, error)
	GetAttendeeByEmail(ctx context.Context, email string) (*models.Attendee, error)
	ListAttendees(ctx context.Context) ([]models.Attendee, error)
	CheckIn(ctx context.Context, id string) (bool, error)
	SetCheckedIn(ctx context.Context, id string, checkedIn bool) error
	AtomicIncrementPoints(ctx context.Context, attendeeID string, delta int) error
	GetSetting(ctx context.Context, key string) (bool, error)
	SetSetting(ctx context.Context, key string, value bool) error
}

// Limiter throttles staff password attempts per email.
type Limiter interface {
	Allowed(ctx context.Context, email string) (bool, time.Duration, error)
	Fail(ctx context.Context, email string) (int, error)
	Reset(ctx context.Context, email string) error
}

type EventPublisher interface {
	PublishEngagementEvent(ctx context.Context, event models.EngagementEvent) error
}

type Service struct {
	Store         Store
	Tokens        *auth.Issuer
	Limiter       Limiter
	Kafka         EventPublisher
	Logger        *logger.Logger
	StaffPassword string
	Timeout       time.Duration
}

func NewService(s Store, tokens *auth.Issuer, limiter Limiter, kafka EventPublisher, log *logger.Logger, staffPassword string) *Service {
	return &Service{
		Store:         s,
		Tokens:        tokens,
		Limiter:       limiter,
		Kafka:         kafka,
		Logger:        log,
		StaffPassword: staffPassword,
		Timeout:       5 * time.Second,
	}
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// Identify exchanges an email, plus the staff password for staff roles, for a
// capability token.
func (s *Service) Identify(ctx context.Context, req models.IdentifyRequest) (models.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return models.TokenResponse{}, ErrEmailRequired
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	attendee, err := s.Store.GetAttendeeByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return models.TokenResponse{}, ErrUnknownEmail
	}
	if err != nil {
		return models.TokenResponse{}, rejection.Storage("failed to look up attendee", err)
	}

	if attendee.Role.IsStaff() {
		if err := s.checkStaffPassword(ctx, email, req.Password); err != nil {
			return models.TokenResponse{}, err
		}
	}

	token, err := s.Tokens.Issue(*attendee)
	if err != nil {
		return models.TokenResponse{}, ErrTokenUnavailable.With(err)
	}

	s.Logger.LogSecurity("IDENTIFY", fmt.Sprintf("%s identified as %s", attendee.ID, attendee.Role))
	return models.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.Tokens.TTL().Seconds()),
		TokenType:   "Bearer",
		Attendee:    *attendee,
	}, nil
}

func (s *Service) checkStaffPassword(ctx context.Context, email, password string) error {
	if s.Limiter != nil {
		allowed, wait, err := s.Limiter.Allowed(ctx, email)
		if err != nil {
			return rejection.Storage("failed to check login attempts", err)
		}
		if !allowed {
			s.Logger.LogSecurity("LOCKOUT", fmt.Sprintf("%s locked out for %s", email, wait.Round(time.Second)))
			return ErrTooManyAttempts
		}
	}

	if !auth.CheckStaffPassword(s.StaffPassword, password) {
		if s.Limiter != nil {
			if _, err := s.Limiter.Fail(ctx, email); err != nil {
				s.Logger.Warn("SECURITY", fmt.Sprintf("failed to record login attempt: %v", err))
			}
		}
		s.Logger.LogSecurity("STAFF_LOGIN", fmt.Sprintf("wrong staff password for %s", email))
		return ErrWrongPassword
	}

	if s.Limiter != nil {
		if err := s.Limiter.Reset(ctx, email); err != nil {
			s.Logger.Warn("SECURITY", fmt.Sprintf("failed to reset login attempts: %v", err))
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Attendee, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	attendee, err := s.Store.GetAttendeeByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAttendeeNotFound
	}
	if err != nil {
		return nil, rejection.Storage("failed to load attendee", err)
	}
	return attendee, nil
}

// CheckIn marks an attendee present at the door.
func (s *Service) CheckIn(ctx context.Context, op auth.Operator, id string) (*models.Attendee, error) {
	if err := auth.RequireStaff(op); err != nil {
		return nil, err
	}

	bctx, cancel := s.bounded(ctx)
	changed, err := s.Store.CheckIn(bctx, id)
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAttendeeNotFound
	}
	if err != nil {
		return nil, rejection.Storage("failed to check in attendee", err)
	}
	if !changed {
		return nil, ErrAlreadyCheckedIn
	}

	attendee, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("CHECKIN", fmt.Sprintf("%s checked in %s", op.AttendeeID, attendee.Name))
	s.publish(models.EngagementEvent{
		Type:       models.EventCheckedIn,
		AttendeeID: attendee.ID,
		Name:       attendee.Name,
		Role:       attendee.Role,
		Reference:  op.AttendeeID,
		OccurredAt: time.Now().UTC(),
	})
	return attendee, nil
}

// SetCheckedIn lets staff correct a check-in either way.
func (s *Service) SetCheckedIn(ctx context.Context, op auth.Operator, id string, checkedIn bool) error {
	if err := auth.RequireStaff(op); err != nil {
		return err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.Store.SetCheckedIn(ctx, id, checkedIn)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAttendeeNotFound
	}
	if err != nil {
		return rejection.Storage("failed to update check-in", err)
	}
	s.Logger.Info("CHECKIN", fmt.Sprintf("%s set checked_in=%t for %s", op.AttendeeID, checkedIn, id))
	return nil
}

// AddPoints is the super admin's manual award.
func (s *Service) AddPoints(ctx context.Context, op auth.Operator, id string, points int) error {
	if err := auth.RequireSuperAdmin(op); err != nil {
		return err
	}
	if points <= 0 {
		return ErrInvalidPoints
	}

	target, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	bctx, cancel := s.bounded(ctx)
	defer cancel()

	err = s.Store.AtomicIncrementPoints(bctx, id, points)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAttendeeNotFound
	}
	if err != nil {
		return rejection.Storage("failed to add points", err)
	}

	s.Logger.Info("POINTS", fmt.Sprintf("%s awarded %d points to %s", op.AttendeeID, points, id))
	event := models.NewPointsAwardedEvent(target.ID, points, "admin", op.AttendeeID)
	event.Name = target.Name
	event.Role = target.Role
	s.publish(event)
	return nil
}

func (s *Service) List(ctx context.Context, op auth.Operator) ([]models.Attendee, error) {
	if err := auth.RequireStaff(op); err != nil {
		return nil, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	attendees, err := s.Store.ListAttendees(ctx)
	if err != nil {
		return nil, rejection.Storage("failed to list attendees", err)
	}
	if attendees == nil {
		attendees = []models.Attendee{}
	}
	return attendees, nil
}

func (s *Service) GameOn(ctx context.Context) (bool, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	on, err := s.Store.GetSetting(ctx, models.SettingGameOn)
	if err != nil {
		return false, rejection.Storage("failed to read game state", err)
	}
	return on, nil
}

func (s *Service) ToggleGame(ctx context.Context, op auth.Operator, on bool) error {
	if err := auth.RequireSuperAdmin(op); err != nil {
		return err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if err := s.Store.SetSetting(ctx, models.SettingGameOn, on); err != nil {
		return rejection.Storage("failed to toggle game", err)
	}
	s.Logger.Info("GAME", fmt.Sprintf("%s set game_on=%t", op.AttendeeID, on))
	return nil
}

func (s *Service) publish(event models.EngagementEvent) {
	if s.Kafka == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Kafka.PublishEngagementEvent(ctx, event); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish %s for %s: %v", event.Type, event.AttendeeID, err))
	}
}
