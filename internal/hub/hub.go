package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
)

// Message is what an SSE client receives.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client represents a single client connection (one open event stream of an account).
// It's essentially a channel that the SSE handler will listen to.
type Client chan []byte

// Hub fans relationship events out to the accounts they concern.
type Hub struct {
	accounts map[models.AccountRef]map[Client]bool
	mu       sync.RWMutex
	log      *slog.Logger
}

var _ relations.EventPublisher = (*Hub)(nil)

// NewHub creates a new Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		accounts: make(map[models.AccountRef]map[Client]bool),
		log:      log,
	}
}

// Subscribe registers client for the events of ref.
func (h *Hub) Subscribe(ref models.AccountRef, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.accounts[ref]; !ok {
		h.accounts[ref] = make(map[Client]bool)
	}
	h.accounts[ref][client] = true
}

// Unsubscribe removes a client of ref.
func (h *Hub) Unsubscribe(ref models.AccountRef, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.accounts[ref]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client) // Close the channel to signal the SSE handler to stop.
			if len(clients) == 0 {
				delete(h.accounts, ref)
			}
		}
	}
}

// Subscribers returns how many clients listen for ref.
func (h *Hub) Subscribers(ref models.AccountRef) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.accounts[ref])
}

// Broadcast sends msg to every client of ref.
func (h *Hub) Broadcast(ref models.AccountRef, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.accounts[ref]
	if !ok {
		return
	}
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode hub message", "type", msg.Type, "error", err)
		return
	}
	for client := range clients {
		// Use a non-blocking send to prevent a slow client from blocking the hub.
		select {
		case client <- messageBytes:
		default:
			h.log.Warn("dropping event for slow client", "account", ref.String(), "type", msg.Type)
		}
	}
}

// Publish delivers ev to the accounts it concerns.
func (h *Hub) Publish(_ context.Context, ev relations.Event) error {
	msg := Message{Type: string(ev.Type), Payload: ev}
	for _, ref := range Recipients(ev) {
		h.Broadcast(ref, msg)
	}
	return nil
}

// Recipients lists the accounts told about ev. A blocked account is never
// told it was blocked or unblocked.
func Recipients(ev relations.Event) []models.AccountRef {
	switch ev.Type {
	case relations.EventBlocked, relations.EventUnblocked:
		return []models.AccountRef{ev.Actor}
	}
	if ev.Actor == ev.Subject {
		return []models.AccountRef{ev.Actor}
	}
	return []models.AccountRef{ev.Subject, ev.Actor}
}
