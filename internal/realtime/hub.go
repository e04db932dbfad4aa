package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub maintains the active WebSocket clients of this process, grouped by
// family, and broadcasts messages to them.
type Hub struct {
	mu       sync.RWMutex
	families map[int64]map[*Client]struct{}
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		families: make(map[int64]map[*Client]struct{}),
		logger:   logger.With("component", "realtime"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	clients, ok := h.families[c.familyID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.families[c.familyID] = clients
	}
	clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if clients, ok := h.families[c.familyID]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
		}
		if len(clients) == 0 {
			delete(h.families, c.familyID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every client of msg.FamilyID.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.families[msg.FamilyID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client buffer full, dropping message",
				"family_id", msg.FamilyID, "member_id", c.memberID, "event_id", msg.EventID)
		}
	}
}

// Publish implements Publisher for a single-process deployment.
func (h *Hub) Publish(_ context.Context, msg Message) error {
	h.Broadcast(msg)
	return nil
}

// ClientCount returns the number of connected clients across all families.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.families {
		n += len(clients)
	}
	return n
}
