package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/service"
)

// notificationBatchSize bounds how many pending rows one tick drains.
const notificationBatchSize = 50

// NotificationWorker retries pending notification deliveries on a fixed
// interval.
type NotificationWorker struct {
	notifier *service.Notifier
	interval time.Duration
}

// NewNotificationWorker constructs a NotificationWorker.
func NewNotificationWorker(notifier *service.Notifier, interval time.Duration) *NotificationWorker {
	return &NotificationWorker{
		notifier: notifier,
		interval: interval,
	}
}

// Start begins the delivery loop and listens for context cancellation.
func (w *NotificationWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting notification worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.notifier.DeliverPending(ctx, notificationBatchSize)
		case <-ctx.Done():
			log.Info().Msg("Notification worker stopped")
			return
		}
	}
}
