package engagement_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ms-engagement/internal/analytics"
	"ms-engagement/internal/auth"
	"ms-engagement/internal/logger"
	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
	"ms-engagement/internal/utils"
)

type AttendeeService interface {
	Identify(ctx context.Context, req models.IdentifyRequest) (models.TokenResponse, error)
	Get(ctx context.Context, id string) (*models.Attendee, error)
	CheckIn(ctx context.Context, op auth.Operator, id string) (*models.Attendee, error)
	SetCheckedIn(ctx context.Context, op auth.Operator, id string, checkedIn bool) error
	AddPoints(ctx context.Context, op auth.Operator, id string, points int) error
	List(ctx context.Context, op auth.Operator) ([]models.Attendee, error)
	GameOn(ctx context.Context) (bool, error)
	ToggleGame(ctx context.Context, op auth.Operator, on bool) error
}

type ScanRecorder interface {
	RecordScan(ctx context.Context, scannerID, payload string) (models.ScanOutcome, error)
}

type RaffleService interface {
	StartSession(ctx context.Context, op auth.Operator, req models.CreateRaffleSessionRequest) (models.RaffleSessionView, error)
	Draw(ctx context.Context, op auth.Operator, sessionID string, req models.DrawRequest) (models.RaffleDraw, error)
	View(op auth.Operator, sessionID string) (models.RaffleSessionView, error)
	Close(op auth.Operator, sessionID string) error
}

// RaffleFeed delivers draws of one session to live displays.
type RaffleFeed interface {
	Subscribe(ctx context.Context, sessionID string) <-chan models.RaffleDraw
}

type DashboardService interface {
	GetDashboard(ctx context.Context, op auth.Operator) (*analytics.Dashboard, error)
}

type Leaderboard interface {
	Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
}

type TicketRenderer interface {
	TicketPNG(attendee models.Attendee) ([]byte, error)
	BonusPNG(bonus models.BonusCode) ([]byte, error)
}

type BonusCodes interface {
	GetBonusCode(ctx context.Context, code string) (*models.BonusCode, error)
}

type Handler struct {
	Attendees   AttendeeService
	Scans       ScanRecorder
	Raffle      RaffleService
	Feed        RaffleFeed
	Analytics   DashboardService
	Leaderboard Leaderboard
	Tickets     TicketRenderer
	Bonuses     BonusCodes
	Logger      *logger.Logger
}

var (
	errInvalidBody           = rejection.Validation("invalid request body")
	errMissingOperator       = rejection.Unauthorized("missing operator")
	errLeaderboardOffline    = rejection.New(rejection.KindStorage, "leaderboard unavailable")
	errInvalidLeaderboardCap = rejection.Validation("limit must be between 1 and 100")
	errBonusNotFound         = rejection.NotFound("bonus code not found")
)

func operator(r *http.Request) (auth.Operator, error) {
	op, ok := auth.OperatorFrom(r.Context())
	if !ok {
		return auth.Operator{}, errMissingOperator
	}
	return op, nil
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidBody.With(err)
	}
	return nil
}

// fail logs the full error and answers with its operator-facing reason.
func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	kind := rejection.KindOf(err)
	if kind == rejection.KindStorage || kind == rejection.KindUnknown {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", action, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", action, err))
	}
	if werr := utils.WriteError(w, action+" failed", err); werr != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: failed to encode response: %v", action, werr))
	}
}

func (h *Handler) ok(w http.ResponseWriter, action, message string, data interface{}) {
	if err := utils.WriteSuccess(w, message, data); err != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: failed to encode response: %v", action, err))
	}
}
