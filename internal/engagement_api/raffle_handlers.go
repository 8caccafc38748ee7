package engagement_api

import (
	"fmt"
	"net/http"

	"ms-engagement/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) StartRaffle(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "StartRaffle", err)
		return
	}
	var req models.CreateRaffleSessionRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.fail(w, "StartRaffle", err)
			return
		}
	}

	view, err := h.Raffle.StartSession(r.Context(), op, req)
	if err != nil {
		h.fail(w, "StartRaffle", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("StartRaffle: session %s opened by %s with %d eligible", view.SessionID, op.AttendeeID, view.RemainingEligible))
	h.ok(w, "StartRaffle", "Raffle session started", view)
}

func (h *Handler) DrawWinner(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "DrawWinner", err)
		return
	}
	var req models.DrawRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "DrawWinner", err)
		return
	}

	draw, err := h.Raffle.Draw(r.Context(), op, chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, "DrawWinner", err)
		return
	}
	h.ok(w, "DrawWinner", fmt.Sprintf("%s wins", draw.WinnerName), draw)
}

func (h *Handler) ViewRaffle(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "ViewRaffle", err)
		return
	}

	view, err := h.Raffle.View(op, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "ViewRaffle", err)
		return
	}
	h.ok(w, "ViewRaffle", "Raffle session", view)
}

func (h *Handler) CloseRaffle(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "CloseRaffle", err)
		return
	}
	sessionID := chi.URLParam(r, "id")

	if err := h.Raffle.Close(op, sessionID); err != nil {
		h.fail(w, "CloseRaffle", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CloseRaffle: session %s closed", sessionID))
	w.WriteHeader(http.StatusNoContent)
}
