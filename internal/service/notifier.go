package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/models"
)

// NotificationSink delivers a message to a user through one channel.
// Any non-success outcome is logged and retried by the notification worker;
// the pipeline itself never blocks on delivery.
type NotificationSink interface {
	Channel() models.NotificationChannel
	Send(ctx context.Context, userID, title, message string, payload map[string]any) error
}

// NotificationLedger is the persistence surface the notifier needs. Claim
// must be exclusive: for a deliverable row only one caller gets true, so
// the immediate post-enqueue attempt and a worker tick never both send it.
type NotificationLedger interface {
	Insert(n *models.Notification) error
	Claim(id string) (bool, error)
	GetPendingForDelivery(limit, maxAttempts int) ([]models.Notification, error)
	MarkSent(id string) error
	MarkAttemptFailed(id, reason string, maxAttempts int) error
}

// Notifier owns the configured sinks and the delivery ledger. Alerts are
// enqueued as pending notification rows, sent best-effort immediately, and
// retried by the notification worker until the attempt budget is spent.
type Notifier struct {
	ledger      NotificationLedger
	sinks       []NotificationSink
	maxAttempts int
}

// NewNotifier constructs a Notifier over the given sinks.
func NewNotifier(ledger NotificationLedger, sinks []NotificationSink, maxAttempts int) *Notifier {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Notifier{ledger: ledger, sinks: sinks, maxAttempts: maxAttempts}
}

// EnqueueAlert records one pending notification per configured sink and
// fires an immediate async delivery attempt for each. Failures leave the
// row pending for the worker.
func (n *Notifier) EnqueueAlert(ctx context.Context, alert *models.PriceAlert, productName, planName string) {
	payload := map[string]any{
		"alertId":     alert.ID,
		"planId":      alert.PlanID,
		"productName": productName,
		"planName":    planName,
		"kind":        string(alert.Kind),
		"oldPrice":    alert.OldPrice.StringFixed(2),
		"newPrice":    alert.NewPrice.StringFixed(2),
	}
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("alert_id", alert.ID).Msg("Failed to marshal notification payload")
		rawPayload = nil
	}

	for _, sink := range n.sinks {
		row := &models.Notification{
			UserID:  alert.UserID,
			AlertID: &alert.ID,
			Channel: sink.Channel(),
			Title:   alert.Title,
			Message: alert.Message,
			Payload: rawPayload,
			Status:  models.NotificationPending,
		}
		if err := n.ledger.Insert(row); err != nil {
			log.Error().
				Err(err).
				Str("alert_id", alert.ID).
				Str("channel", string(sink.Channel())).
				Msg("Failed to enqueue notification")
			continue
		}

		go n.attempt(context.WithoutCancel(ctx), row, sink, payload)
	}
}

// DeliverPending pushes queued notifications through their sinks. Called
// periodically by the notification worker.
func (n *Notifier) DeliverPending(ctx context.Context, limit int) {
	pending, err := n.ledger.GetPendingForDelivery(limit, n.maxAttempts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load pending notifications")
		return
	}
	if len(pending) == 0 {
		return
	}
	log.Info().Int("count", len(pending)).Msg("Delivering pending notifications")

	for i := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}

		row := &pending[i]
		sink := n.sinkFor(row.Channel)
		if sink == nil {
			_ = n.ledger.MarkAttemptFailed(row.ID, "no sink configured for channel", n.maxAttempts)
			continue
		}

		var payload map[string]any
		if len(row.Payload) > 0 {
			_ = json.Unmarshal(row.Payload, &payload)
		}
		n.attempt(ctx, row, sink, payload)
	}
}

// attempt claims the row and pushes it through the sink. An unclaimed row is
// already owned by a concurrent delivery and is skipped.
func (n *Notifier) attempt(ctx context.Context, row *models.Notification, sink NotificationSink, payload map[string]any) {
	claimed, err := n.ledger.Claim(row.ID)
	if err != nil {
		log.Error().Err(err).Str("notification_id", row.ID).Msg("Failed to claim notification")
		return
	}
	if !claimed {
		log.Debug().Str("notification_id", row.ID).Msg("Notification already being delivered")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := sink.Send(sendCtx, row.UserID, row.Title, row.Message, payload); err != nil {
		log.Warn().
			Err(err).
			Str("notification_id", row.ID).
			Str("channel", string(row.Channel)).
			Msg("Notification delivery failed")
		if mErr := n.ledger.MarkAttemptFailed(row.ID, err.Error(), n.maxAttempts); mErr != nil {
			log.Error().Err(mErr).Str("notification_id", row.ID).Msg("Failed to record delivery failure")
		}
		return
	}

	if err := n.ledger.MarkSent(row.ID); err != nil {
		log.Error().Err(err).Str("notification_id", row.ID).Msg("Failed to mark notification sent")
	}
}

func (n *Notifier) sinkFor(channel models.NotificationChannel) NotificationSink {
	for _, sink := range n.sinks {
		if sink.Channel() == channel {
			return sink
		}
	}
	return nil
}
