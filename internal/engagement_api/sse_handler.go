package engagement_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// RaffleEvents streams the draws of a session as Server-Sent Events.
func (h *Handler) RaffleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.authorizeFeed(w, r, "RaffleEvents")
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	setupSSEHeaders(w)

	// Create a context that cancels when the client disconnects
	ctx := r.Context()
	eventChan := h.Feed.Subscribe(ctx, sessionID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"session_id\":\"%s\"}\n\n", sessionID)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to raffle session %s", sessionID))

	for {
		select {
		case draw, ok := <-eventChan:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for raffle session %s", sessionID))
				return
			}

			jsonData, err := json.Marshal(draw)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize draw: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: draw\ndata: %s\n\n", jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from raffle session %s", sessionID))
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are enforced by the CORS middleware
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteWait = 10 * time.Second

// RaffleSocket pushes the draws of a session over a websocket as JSON frames.
func (h *Handler) RaffleSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.authorizeFeed(w, r, "RaffleSocket")
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("WS", fmt.Sprintf("Upgrade failed for raffle session %s: %v", sessionID, err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// displays never send anything; reading only notices when they go away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	eventChan := h.Feed.Subscribe(ctx, sessionID)
	h.Logger.Info("WS", fmt.Sprintf("Display connected to raffle session %s", sessionID))

	for {
		select {
		case draw, ok := <-eventChan:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(draw); err != nil {
				h.Logger.Warn("WS", fmt.Sprintf("Write to raffle display failed: %v", err))
				return
			}
		case <-ctx.Done():
			h.Logger.Debug("WS", fmt.Sprintf("Display disconnected from raffle session %s", sessionID))
			return
		}
	}
}

// authorizeFeed checks that the caller owns the session before any stream opens.
func (h *Handler) authorizeFeed(w http.ResponseWriter, r *http.Request, action string) (string, bool) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, action, err)
		return "", false
	}
	sessionID := chi.URLParam(r, "id")
	if _, err := h.Raffle.View(op, sessionID); err != nil {
		h.fail(w, action, err)
		return "", false
	}
	return sessionID, true
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}
