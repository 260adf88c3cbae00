package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/models"
	"github.com/planwatch/planwatch_api/internal/sse"
)

// AlertStore is the write side of the alert table the dispatcher needs.
type AlertStore interface {
	Insert(a *models.PriceAlert) error
}

// AlertEnqueuer hands created alerts to the notification pipeline.
// Delivery is asynchronous and independently retried; dispatch never
// blocks on it.
type AlertEnqueuer interface {
	EnqueueAlert(ctx context.Context, alert *models.PriceAlert, productName, planName string)
}

// AlertDispatcher fans a detected change out to qualifying subscribers.
// It is only invoked from the scheduler's post-append step, at most once
// per snapshot append, which yields the at-most-one-alert-per-change-per-
// subscriber guarantee.
type AlertDispatcher struct {
	alerts   AlertStore
	enqueuer AlertEnqueuer
	events   sse.AlertNotifier
}

// NewAlertDispatcher constructs an AlertDispatcher. enqueuer may be nil when
// no notification sinks are configured; events may be a NopNotifier.
func NewAlertDispatcher(alerts AlertStore, enqueuer AlertEnqueuer, events sse.AlertNotifier) *AlertDispatcher {
	if events == nil {
		events = &sse.NopNotifier{}
	}
	return &AlertDispatcher{alerts: alerts, enqueuer: enqueuer, events: events}
}

// Dispatch creates one alert per qualifying subscriber and hands delivery
// off to the notification pipeline. A single subscriber's failure does not
// block the others; the created alerts are returned.
func (d *AlertDispatcher) Dispatch(ctx context.Context, product *models.Product, plan *models.Plan, change *ChangeResult, subscribers []models.TrackedSubscription) ([]models.PriceAlert, error) {
	if change == nil || change.Kind != ChangeDetected {
		return nil, nil
	}

	var created []models.PriceAlert
	for i := range subscribers {
		sub := &subscribers[i]
		if !d.qualifies(sub, change) {
			continue
		}

		alert := d.buildAlert(sub, product, plan, change)
		if err := d.alerts.Insert(alert); err != nil {
			log.Error().
				Err(err).
				Str("user_id", sub.UserID).
				Str("plan_id", plan.ID).
				Msg("Failed to persist alert")
			continue
		}
		created = append(created, *alert)

		d.events.NotifyAlertCreated(alert)
		if d.enqueuer != nil {
			d.enqueuer.EnqueueAlert(ctx, alert, product.Name, plan.Name)
		}
	}

	if len(created) > 0 {
		log.Info().
			Str("plan_id", plan.ID).
			Str("direction", string(change.Direction)).
			Int("alerts", len(created)).
			Msg("Alerts dispatched")
	}
	return created, nil
}

// qualifies applies the subscriber's alert preferences to the change.
// A target price, when set, gates decrease alerts: the alert only fires
// once the new price has fallen to or below the target. Increases are not
// target-gated.
func (d *AlertDispatcher) qualifies(sub *models.TrackedSubscription, change *ChangeResult) bool {
	if !sub.IsActive {
		return false
	}
	switch change.Direction {
	case models.AlertPriceIncrease:
		return sub.AlertOnIncrease
	case models.AlertPriceDecrease:
		if !sub.AlertOnDecrease {
			return false
		}
		if sub.TargetPrice != nil && change.NewPrice.GreaterThan(*sub.TargetPrice) {
			return false
		}
		return true
	default:
		return false
	}
}

func (d *AlertDispatcher) buildAlert(sub *models.TrackedSubscription, product *models.Product, plan *models.Plan, change *ChangeResult) *models.PriceAlert {
	verb := "increased"
	label := "Increase"
	if change.Direction == models.AlertPriceDecrease {
		verb = "decreased"
		label = "Decrease"
	}

	message := fmt.Sprintf("The price for %s %s has %s from $%s to $%s",
		product.Name, plan.Name, verb,
		change.OldPrice.StringFixed(2), change.NewPrice.StringFixed(2))
	if change.DeltaPercent != nil {
		message += fmt.Sprintf(" (%+.1f%%)", *change.DeltaPercent)
	}

	return &models.PriceAlert{
		UserID:       sub.UserID,
		PlanID:       plan.ID,
		Kind:         change.Direction,
		Title:        fmt.Sprintf("Price %s Alert: %s", label, product.Name),
		Message:      message,
		OldPrice:     change.OldPrice,
		NewPrice:     change.NewPrice,
		DeltaAbs:     change.DeltaAbs,
		DeltaPercent: change.DeltaPercent,
	}
}
