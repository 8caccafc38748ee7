package engagement_api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ms-engagement/internal/attendees"
	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
	"ms-engagement/internal/store"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
	var req models.IdentifyRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "Identify", err)
		return
	}

	resp, err := h.Attendees.Identify(r.Context(), req)
	if err != nil {
		h.fail(w, "Identify", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("Identify: issued token for attendee %s", resp.Attendee.ID))
	h.ok(w, "Identify", "Identified", resp)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	on, err := h.Attendees.GameOn(r.Context())
	if err != nil {
		h.fail(w, "GetGame", err)
		return
	}
	h.ok(w, "GetGame", "Game status", map[string]bool{"game_on": on})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "Me", err)
		return
	}

	attendee, err := h.Attendees.Get(r.Context(), op.AttendeeID)
	if err != nil {
		h.fail(w, "Me", err)
		return
	}
	h.ok(w, "Me", "Attendee", attendee)
}

// MyTicket renders the caller's QR ticket as a PNG.
func (h *Handler) MyTicket(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "MyTicket", err)
		return
	}

	attendee, err := h.Attendees.Get(r.Context(), op.AttendeeID)
	if err != nil {
		h.fail(w, "MyTicket", err)
		return
	}

	png, err := h.Tickets.TicketPNG(*attendee)
	if err != nil {
		h.fail(w, "MyTicket", err)
		return
	}
	h.writePNG(w, "MyTicket", png)
}

// BonusQR renders a printable QR for a bonus code.
func (h *Handler) BonusQR(w http.ResponseWriter, r *http.Request) {
	bonus, err := h.Bonuses.GetBonusCode(r.Context(), chi.URLParam(r, "code"))
	if errors.Is(err, store.ErrNotFound) {
		h.fail(w, "BonusQR", errBonusNotFound)
		return
	}
	if err != nil {
		h.fail(w, "BonusQR", rejection.Storage("failed to load bonus code", err))
		return
	}

	png, err := h.Tickets.BonusPNG(*bonus)
	if err != nil {
		h.fail(w, "BonusQR", err)
		return
	}
	h.writePNG(w, "BonusQR", png)
}

func (h *Handler) writePNG(w http.ResponseWriter, action string, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: failed to write image: %v", action, err))
	}
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "CheckIn", err)
		return
	}
	attendeeID := chi.URLParam(r, "attendeeId")

	attendee, err := h.Attendees.CheckIn(r.Context(), op, attendeeID)
	if err != nil {
		h.fail(w, "CheckIn", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CheckIn: %s checked in by %s", attendeeID, op.AttendeeID))
	h.ok(w, "CheckIn", "Checked in", attendee)
}

func (h *Handler) SetCheckedIn(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "SetCheckedIn", err)
		return
	}
	var req models.CheckedInRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "SetCheckedIn", err)
		return
	}

	if err := h.Attendees.SetCheckedIn(r.Context(), op, chi.URLParam(r, "id"), req.CheckedIn); err != nil {
		h.fail(w, "SetCheckedIn", err)
		return
	}
	h.ok(w, "SetCheckedIn", "Check-in updated", req)
}

func (h *Handler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "ListAttendees", err)
		return
	}

	list, err := h.Attendees.List(r.Context(), op)
	if err != nil {
		h.fail(w, "ListAttendees", err)
		return
	}
	h.ok(w, "ListAttendees", fmt.Sprintf("%d attendees", len(list)), list)
}

// ExportAttendees streams the attendee list as a CSV download.
func (h *Handler) ExportAttendees(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "ExportAttendees", err)
		return
	}

	list, err := h.Attendees.List(r.Context(), op)
	if err != nil {
		h.fail(w, "ExportAttendees", err)
		return
	}

	var buf bytes.Buffer
	if err := attendees.WriteCSV(&buf, list); err != nil {
		h.fail(w, "ExportAttendees", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attendees.ExportFilename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ExportAttendees: failed to write csv: %v", err))
	}
}

func (h *Handler) AddPoints(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "AddPoints", err)
		return
	}
	var req models.AddPointsRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "AddPoints", err)
		return
	}
	attendeeID := chi.URLParam(r, "id")

	if err := h.Attendees.AddPoints(r.Context(), op, attendeeID, req.Points); err != nil {
		h.fail(w, "AddPoints", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("AddPoints: %d points to %s by %s", req.Points, attendeeID, op.AttendeeID))
	h.ok(w, "AddPoints", "Points added", req)
}

func (h *Handler) ToggleGame(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "ToggleGame", err)
		return
	}
	var req models.GameToggleRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "ToggleGame", err)
		return
	}

	if err := h.Attendees.ToggleGame(r.Context(), op, req.Value); err != nil {
		h.fail(w, "ToggleGame", err)
		return
	}
	h.ok(w, "ToggleGame", "Game status updated", map[string]bool{"game_on": req.Value})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "Summary", err)
		return
	}

	dashboard, err := h.Analytics.GetDashboard(r.Context(), op)
	if err != nil {
		h.fail(w, "Summary", err)
		return
	}
	h.ok(w, "Summary", "Engagement summary", dashboard)
}

const defaultLeaderboardSize = 10

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.Leaderboard == nil {
		h.fail(w, "GetLeaderboard", errLeaderboardOffline)
		return
	}

	n := defaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.fail(w, "GetLeaderboard", errInvalidLeaderboardCap)
			return
		}
		n = parsed
	}

	entries, err := h.Leaderboard.Top(r.Context(), n)
	if err != nil {
		h.fail(w, "GetLeaderboard", rejection.Storage("failed to read leaderboard", err))
		return
	}
	h.ok(w, "GetLeaderboard", "Leaderboard", entries)
}
