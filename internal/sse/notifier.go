package sse

import (
	"github.com/planwatch/planwatch_api/internal/models"
)

// AlertNotifier is the interface the dispatcher uses to emit alert events.
type AlertNotifier interface {
	NotifyAlertCreated(alert *models.PriceAlert)
}

// HubNotifier implements AlertNotifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyAlertCreated(alert *models.PriceAlert) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.BroadcastToUser(alert.UserID, alertToEvent(alert))
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (n *NopNotifier) NotifyAlertCreated(alert *models.PriceAlert) {}
