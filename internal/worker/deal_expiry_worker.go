package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/repository"
)

// DealExpiryWorker deactivates deals whose validity window has passed.
type DealExpiryWorker struct {
	dealRepo *repository.DealRepository
	interval time.Duration
}

// NewDealExpiryWorker constructs a DealExpiryWorker.
func NewDealExpiryWorker(dealRepo *repository.DealRepository, interval time.Duration) *DealExpiryWorker {
	return &DealExpiryWorker{
		dealRepo: dealRepo,
		interval: interval,
	}
}

// Start begins the expiry loop and listens for context cancellation.
func (w *DealExpiryWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting deal expiry worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run()
		case <-ctx.Done():
			log.Info().Msg("Deal expiry worker stopped")
			return
		}
	}
}

func (w *DealExpiryWorker) run() {
	n, err := w.dealRepo.DeactivateExpired()
	if err != nil {
		log.Error().Err(err).Msg("Failed to deactivate expired deals")
		return
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("Deactivated expired deals")
	}
}
