package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/mise/internal/model"
)

const (
	EventPublished = "recipe_published"
	EventUpdated   = "recipe_updated"
	EventDeleted   = "recipe_deleted"
)

// Event is a recipe change pushed to feed subscribers.
type Event struct {
	Type     string `json:"type"`
	RecipeID int64  `json:"recipe_id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
}

// NewEvent describes r for the feed under the given event type.
func NewEvent(eventType string, r *model.Recipe, author string) Event {
	return Event{
		Type:     eventType,
		RecipeID: r.ID,
		Slug:     r.Slug,
		Title:    r.Title,
		Author:   author,
	}
}

// Hub maintains the set of active feed clients and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to all connected clients without blocking.
// Slow clients miss events rather than stall the sender.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("feed clients lagging", "type", ev.Type, "dropped", dropped)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
