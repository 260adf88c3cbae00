package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/models"
)

// EventType defines the SSE event name.
type EventType string

const (
	EventAlertCreated EventType = "alert.created"
)

// AlertEvent is the payload streamed to a user's dashboard when a price
// alert is created for them.
type AlertEvent struct {
	Event        EventType `json:"event"`
	AlertID      string    `json:"alertId"`
	PlanID       string    `json:"planId"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	OldPrice     string    `json:"oldPrice"`
	NewPrice     string    `json:"newPrice"`
	DeltaPercent *float64  `json:"deltaPercent,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Client represents a connected SSE client.
type Client struct {
	ID     string
	UserID string
	Events chan []byte
}

// Hub manages SSE client connections and per-user broadcasts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client for a user and returns it for streaming.
func (h *Hub) Register(clientID, userID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:     clientID,
		UserID: userID,
		Events: make(chan []byte, 64),
	}
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// BroadcastToUser sends an event to all of a user's connected clients.
// Non-blocking: drops message if client buffer is full.
func (h *Hub) BroadcastToUser(userID string, event *AlertEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.UserID != userID {
			continue
		}
		select {
		case c.Events <- data:
		default:
			log.Warn().Str("client_id", c.ID).Msg("SSE client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// alertToEvent converts an alert model to its SSE payload.
func alertToEvent(alert *models.PriceAlert) *AlertEvent {
	return &AlertEvent{
		Event:        EventAlertCreated,
		AlertID:      alert.ID,
		PlanID:       alert.PlanID,
		Kind:         string(alert.Kind),
		Title:        alert.Title,
		Message:      alert.Message,
		OldPrice:     alert.OldPrice.StringFixed(2),
		NewPrice:     alert.NewPrice.StringFixed(2),
		DeltaPercent: alert.DeltaPercent,
		Timestamp:    time.Now(),
	}
}
