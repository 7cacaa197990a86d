package wshub

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
)

// Hub is the roster of one room: participant id -> connection, kept in join
// order.
type Hub struct {
	mu      sync.RWMutex
	order   []string
	clients map[string]*Client

	log    *slog.Logger
	onDrop func(playerID string)
}

// NewHub creates an empty roster. onDrop, if set, is called for every frame
// that could not be queued for a recipient.
func NewHub(logger *slog.Logger, onDrop func(playerID string)) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*Client),
		log:     logger,
		onDrop:  onDrop,
	}
}

// Register adds a participant. Registering an id twice replaces the client
// but keeps its original place in the join order.
func (h *Hub) Register(playerID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[playerID]; !ok {
		h.order = append(h.order, playerID)
	}
	h.clients[playerID] = c
}

// Unregister removes a participant and returns its client, or nil.
func (h *Hub) Unregister(playerID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[playerID]
	if !ok {
		return nil
	}
	delete(h.clients, playerID)
	h.order = slices.DeleteFunc(h.order, func(id string) bool { return id == playerID })
	return c
}

func (h *Hub) Get(playerID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[playerID]
}

// IDs returns participant ids in join order.
func (h *Hub) IDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.order)
}

// Clients returns the connected clients in join order.
func (h *Hub) Clients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.clients[id])
	}
	return out
}

// SendTo queues msg for one participant.
func (h *Hub) SendTo(playerID string, msg any) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal failed", "error", err)
		return false
	}
	h.mu.RLock()
	c := h.clients[playerID]
	h.mu.RUnlock()
	if c == nil {
		return false
	}
	return h.deliver(playerID, c, data)
}

// Broadcast queues msg for every participant accepted by filter (all of them
// when filter is nil) and returns how many frames were queued. The message is
// encoded once. A full queue drops the frame for that recipient only.
func (h *Hub) Broadcast(msg any, filter func(playerID string) bool) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal failed", "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, id := range h.order {
		if filter != nil && !filter(id) {
			continue
		}
		if h.deliver(id, h.clients[id], data) {
			sent++
		}
	}
	return sent
}

// BroadcastExcept sends to everyone but senderID.
func (h *Hub) BroadcastExcept(senderID string, msg any) int {
	return h.Broadcast(msg, func(id string) bool { return id != senderID })
}

func (h *Hub) deliver(playerID string, c *Client, data []byte) bool {
	if c.Send(data) {
		return true
	}
	h.log.Warn("dropped frame", "player", playerID, "conn", c.ID)
	if h.onDrop != nil {
		h.onDrop(playerID)
	}
	return false
}
