package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"messenger-service/internal/observability"
)

// Hub tracks every live connection and the chat partitions each one has
// joined. It fans events out to whole partitions or to everyone at once.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
	joined  map[*Client]map[string]bool
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
		joined:  make(map[*Client]map[string]bool),
	}
}

// Add registers a connection with the hub.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

// Remove drops a connection and its room memberships.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	for key := range h.joined[c] {
		if room, ok := h.rooms[key]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, key)
			}
		}
	}
	delete(h.joined, c)
}

// Join subscribes a connection to a chat partition.
func (h *Hub) Join(chatKey string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[chatKey]; !ok {
		h.rooms[chatKey] = make(map[*Client]bool)
	}
	h.rooms[chatKey][c] = true
	if _, ok := h.joined[c]; !ok {
		h.joined[c] = make(map[string]bool)
	}
	h.joined[c][chatKey] = true
}

// Broadcast sends an event to every connection subscribed to a chat
// partition.
func (h *Hub) Broadcast(chatKey, event string, data any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[chatKey]))
	for c := range h.rooms[chatKey] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.send(c, event, data)
	}
}

// BroadcastToOthers sends an event to every connection except those owned
// by userID.
func (h *Hub) BroadcastToOthers(userID, event string, data any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.UserID() != userID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	observability.IncPresenceEvent(event)
	_ = observability.PublishEvent(context.Background(), observability.RoutingKeyPresence,
		observability.NewEnvelope("presence_events", event, data), nil)
	for _, c := range targets {
		h.send(c, event, data)
	}
}

func (h *Hub) send(c *Client, event string, data any) {
	if err := c.Send(event, data); err != nil {
		log.Printf("websocket write error: %v", err)
		c.Close()
		h.Remove(c)
		h.publishWSError(c, err)
	}
}

func (h *Hub) publishWSError(c *Client, err error) {
	info := c.info
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), observability.RoutingKeyWS, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
