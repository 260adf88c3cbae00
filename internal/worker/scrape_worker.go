package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/service"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// ScrapeWorker runs a full extraction cycle on a fixed interval. The
// scheduler enforces that cycles never overlap, so a long-running cycle
// simply makes the next tick a no-op.
type ScrapeWorker struct {
	scheduler *service.Scheduler
	interval  time.Duration
}

// NewScrapeWorker constructs a ScrapeWorker.
func NewScrapeWorker(scheduler *service.Scheduler, interval time.Duration) *ScrapeWorker {
	return &ScrapeWorker{
		scheduler: scheduler,
		interval:  interval,
	}
}

// Start begins the extraction loop and listens for context cancellation.
func (w *ScrapeWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting scrape worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Scrape worker stopped")
			return
		}
	}
}

func (w *ScrapeWorker) run(ctx context.Context) {
	if err := w.scheduler.RunCycle(ctx); err != nil {
		if errors.Is(err, utils.ErrCycleAlreadyRunning) {
			log.Debug().Msg("Skipping tick, extraction cycle still running")
			return
		}
		log.Error().Err(err).Msg("Extraction cycle failed")
	}
}
