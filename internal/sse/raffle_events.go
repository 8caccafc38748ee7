package sse

import (
	"context"
	"sync"

	"ms-engagement/internal/models"
)

// RaffleEventEmitter fans raffle draws out to live displays, per session.
type RaffleEventEmitter struct {
	clients map[string][]chan models.RaffleDraw
	mu      sync.RWMutex
	buffer  int
}

// NewRaffleEventEmitter creates a new emitter for raffle draw events
func NewRaffleEventEmitter() *RaffleEventEmitter {
	return &RaffleEventEmitter{
		clients: make(map[string][]chan models.RaffleDraw),
		buffer:  10,
	}
}

// Subscribe adds a client to a session's draws. The channel closes when ctx
// is done or the session is closed.
func (e *RaffleEventEmitter) Subscribe(ctx context.Context, sessionID string) <-chan models.RaffleDraw {
	clientChan := make(chan models.RaffleDraw, e.buffer)

	e.mu.Lock()
	e.clients[sessionID] = append(e.clients[sessionID], clientChan)
	e.mu.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		e.removeClient(sessionID, clientChan)
	}()

	return clientChan
}

// EmitDraw broadcasts a draw to every subscriber of its session
func (e *RaffleEventEmitter) EmitDraw(draw models.RaffleDraw) {
	// the read lock is held through the sends so a concurrent close cannot race them
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[draw.SessionID] {
		// Non-blocking send to avoid slowing down the draw if a display is slow
		select {
		case clientChan <- draw:
		default:
		}
	}
}

// CloseSession disconnects every subscriber of a session.
func (e *RaffleEventEmitter) CloseSession(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.clients[sessionID] {
		close(ch)
	}
	delete(e.clients, sessionID)
}

func (e *RaffleEventEmitter) removeClient(sessionID string, clientChan chan models.RaffleDraw) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[sessionID]
	for i, ch := range clients {
		if ch == clientChan {
			// Remove client from slice
			e.clients[sessionID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	// Clean up map entry if no more clients
	if len(e.clients[sessionID]) == 0 {
		delete(e.clients, sessionID)
	}
}

// ClientCount returns the number of clients currently subscribed to a session
func (e *RaffleEventEmitter) ClientCount(sessionID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[sessionID])
}
