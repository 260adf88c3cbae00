package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/planwatch/planwatch_api/internal/cache"
	"github.com/planwatch/planwatch_api/internal/config"
	"github.com/planwatch/planwatch_api/internal/models"
	"github.com/planwatch/planwatch_api/internal/scraper"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// ProductStore is the product access the scheduler needs.
type ProductStore interface {
	GetDueForExtraction(staleness time.Duration, limit int) ([]models.Product, error)
	GetBySlug(slug string) (*models.Product, error)
	SetExtractionStatus(id string, status models.ExtractionStatus, touchExtractedAt bool) error
}

// PlanStore is the plan access the scheduler needs.
type PlanStore interface {
	GetActiveByProduct(productID string) ([]models.Plan, error)
	MatchByName(productID, name string) (*models.Plan, error)
	Create(p *models.Plan) error
}

// SnapshotStore is the write side of the snapshot history.
type SnapshotStore interface {
	Append(planID string, price decimal.Decimal, currency string, features models.FeatureList, source string) (*models.Snapshot, error)
}

// SubscriptionSource resolves who is tracking a plan.
type SubscriptionSource interface {
	GetActiveByPlan(planID string) ([]models.TrackedSubscription, error)
}

// PriceCacher is the cache write surface the scheduler updates after each
// successful extraction. Cache failures are logged, never fatal.
type PriceCacher interface {
	Set(ctx context.Context, entry *cache.PlanPriceEntry) error
}

// TriggerResult is the outcome of a manually triggered single-product
// extraction.
type TriggerResult struct {
	ProductID      string           `json:"productId"`
	Slug           string           `json:"slug"`
	Success        bool             `json:"success"`
	Message        string           `json:"message"`
	PlansExtracted int              `json:"plansExtracted"`
	ExtractedPrice *decimal.Decimal `json:"extractedPrice,omitempty"`
}

// Scheduler orchestrates the extraction pipeline: pick due products, run
// the extractor with bounded concurrency and retries, append snapshots,
// detect changes and dispatch alerts. At most one full cycle runs at a
// time, and each product is processed by at most one goroutine.
type Scheduler struct {
	products   ProductStore
	plans      PlanStore
	snapshots  SnapshotStore
	subs       SubscriptionSource
	extractor  scraper.Extractor
	detector   *ChangeDetector
	dispatcher *AlertDispatcher
	prices     PriceCacher
	cfg        config.WorkerConfig
	scrapeCfg  config.ScraperConfig

	running  atomic.Bool
	inFlight sync.Map

	// sleepFn is swapped out in tests to avoid real backoff waits.
	sleepFn func(ctx context.Context, d time.Duration) bool
}

// NewScheduler constructs a Scheduler. prices may be nil when no cache is
// configured.
func NewScheduler(
	products ProductStore,
	plans PlanStore,
	snapshots SnapshotStore,
	subs SubscriptionSource,
	extractor scraper.Extractor,
	detector *ChangeDetector,
	dispatcher *AlertDispatcher,
	prices PriceCacher,
	cfg config.WorkerConfig,
	scrapeCfg config.ScraperConfig,
) *Scheduler {
	return &Scheduler{
		products:   products,
		plans:      plans,
		snapshots:  snapshots,
		subs:       subs,
		extractor:  extractor,
		detector:   detector,
		dispatcher: dispatcher,
		prices:     prices,
		cfg:        cfg,
		scrapeCfg:  scrapeCfg,
		sleepFn:    sleepWithContext,
	}
}

// IsRunning reports whether a full cycle is currently in progress.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// TriggerFullCycle starts a cycle in the background. Returns
// ErrCycleAlreadyRunning when one is already in progress.
func (s *Scheduler) TriggerFullCycle(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return utils.ErrCycleAlreadyRunning
	}
	go func() {
		defer s.running.Store(false)
		s.runCycle(context.WithoutCancel(ctx))
	}()
	return nil
}

// RunCycle runs one full cycle synchronously. Used by the scrape worker;
// the HTTP trigger goes through TriggerFullCycle instead.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return utils.ErrCycleAlreadyRunning
	}
	defer s.running.Store(false)
	s.runCycle(ctx)
	return nil
}

func (s *Scheduler) runCycle(ctx context.Context) {
	started := time.Now()

	due, err := s.products.GetDueForExtraction(s.cfg.StalenessWindow, s.cfg.MaxConcurrent)
	if err != nil {
		log.Error().Err(err).Msg("Failed to select due products")
		return
	}
	if len(due) == 0 {
		log.Debug().Msg("No products due for extraction")
		return
	}

	log.Info().
		Int("count", len(due)).
		Int("max_concurrent", s.cfg.MaxConcurrent).
		Msg("Starting extraction cycle")

	sem := make(chan struct{}, s.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	for i := range due {
		select {
		case <-ctx.Done():
			log.Warn().Msg("Extraction cycle interrupted")
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		product := due[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			// Politeness delay so concurrent extractions don't hit
			// target sites in lockstep.
			s.sleepFn(ctx, s.politenessDelay())

			if err := s.processProduct(ctx, &product); err != nil && !errors.Is(err, utils.ErrProductBusy) {
				log.Error().
					Err(err).
					Str("slug", product.Slug).
					Msg("Product extraction failed")
			}
		}()
	}
	wg.Wait()

	log.Info().
		Dur("elapsed", time.Since(started)).
		Int("count", len(due)).
		Msg("Extraction cycle finished")
}

// TriggerProduct runs the full pipeline for a single product on demand.
func (s *Scheduler) TriggerProduct(ctx context.Context, slug string) (*TriggerResult, error) {
	product, err := s.products.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}

	quotes, err := s.process(ctx, product)
	if err != nil {
		if errors.Is(err, utils.ErrProductBusy) {
			return nil, err
		}
		return &TriggerResult{
			ProductID: product.ID,
			Slug:      product.Slug,
			Success:   false,
			Message:   err.Error(),
		}, nil
	}

	result := &TriggerResult{
		ProductID:      product.ID,
		Slug:           product.Slug,
		Success:        true,
		Message:        fmt.Sprintf("extracted %d plan(s)", len(quotes)),
		PlansExtracted: len(quotes),
	}
	if len(quotes) > 0 {
		price := quotes[0].Price
		result.ExtractedPrice = &price
	}
	return result, nil
}

func (s *Scheduler) processProduct(ctx context.Context, product *models.Product) error {
	_, err := s.process(ctx, product)
	return err
}

// process runs extraction with retries for one product, then persists and
// dispatches. The per-product lock makes concurrent runs for the same
// product impossible regardless of how the call was triggered.
func (s *Scheduler) process(ctx context.Context, product *models.Product) ([]scraper.PlanQuote, error) {
	if _, loaded := s.inFlight.LoadOrStore(product.ID, struct{}{}); loaded {
		return nil, utils.ErrProductBusy
	}
	defer s.inFlight.Delete(product.ID)

	if err := s.products.SetExtractionStatus(product.ID, models.ExtractionInProgress, false); err != nil {
		return nil, err
	}

	quotes, err := s.extractWithRetry(ctx, product)
	if err != nil {
		if sErr := s.products.SetExtractionStatus(product.ID, models.ExtractionFailed, true); sErr != nil {
			log.Error().Err(sErr).Str("slug", product.Slug).Msg("Failed to mark extraction failed")
		}
		return nil, err
	}

	if err := s.persistAndDispatch(ctx, product, quotes); err != nil {
		if sErr := s.products.SetExtractionStatus(product.ID, models.ExtractionFailed, true); sErr != nil {
			log.Error().Err(sErr).Str("slug", product.Slug).Msg("Failed to mark extraction failed")
		}
		return nil, err
	}

	if err := s.products.SetExtractionStatus(product.ID, models.ExtractionSuccess, true); err != nil {
		log.Error().Err(err).Str("slug", product.Slug).Msg("Failed to mark extraction success")
	}
	return quotes, nil
}

// extractWithRetry attempts extraction up to MaxAttempts times with linear
// backoff. Non-retryable failures stop the loop early.
func (s *Scheduler) extractWithRetry(ctx context.Context, product *models.Product) ([]scraper.PlanQuote, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		quotes, err := s.extractor.Extract(ctx, product)
		if err == nil {
			return quotes, nil
		}
		lastErr = err

		var exErr *scraper.ExtractionError
		retryable := errors.As(err, &exErr) && exErr.Retryable()

		log.Warn().
			Err(err).
			Str("slug", product.Slug).
			Int("attempt", attempt).
			Int("max_attempts", s.cfg.MaxAttempts).
			Bool("retryable", retryable).
			Msg("Extraction attempt failed")

		if !retryable || attempt == s.cfg.MaxAttempts {
			break
		}
		if !s.sleepFn(ctx, s.cfg.RetryBackoffBase*time.Duration(attempt)) {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// persistAndDispatch appends one snapshot per extracted quote, refreshes the
// price cache, and runs change detection and alert dispatch per plan.
// Downstream failures past the append are logged, not propagated: the
// snapshot history is the source of truth and must not be rolled back by a
// notification problem.
func (s *Scheduler) persistAndDispatch(ctx context.Context, product *models.Product, quotes []scraper.PlanQuote) error {
	activePlans, err := s.plans.GetActiveByProduct(product.ID)
	if err != nil {
		return fmt.Errorf("failed to load plans for %s: %w", product.Slug, err)
	}

	for i := range quotes {
		quote := &quotes[i]

		plan, err := s.resolvePlan(product, quote, activePlans)
		if err != nil {
			log.Error().
				Err(err).
				Str("slug", product.Slug).
				Str("plan_name", quote.PlanName).
				Msg("Failed to resolve plan for quote")
			continue
		}

		snapshot, err := s.snapshots.Append(plan.ID, quote.Price, quote.Currency, models.FeatureList(quote.Features), models.SnapshotSourceScraper)
		if err != nil {
			return fmt.Errorf("failed to append snapshot for plan %s: %w", plan.ID, err)
		}

		if s.prices != nil {
			entry := &cache.PlanPriceEntry{
				PlanID:     plan.ID,
				Price:      snapshot.Price,
				Currency:   snapshot.Currency,
				ObservedAt: snapshot.ObservedAt,
			}
			if err := s.prices.Set(ctx, entry); err != nil {
				log.Warn().Err(err).Str("plan_id", plan.ID).Msg("Failed to update price cache")
			}
		}

		change, err := s.detector.Detect(plan.ID)
		if err != nil {
			log.Error().Err(err).Str("plan_id", plan.ID).Msg("Change detection failed")
			continue
		}
		if change.Kind != ChangeDetected {
			continue
		}

		log.Info().
			Str("slug", product.Slug).
			Str("plan", plan.Name).
			Str("old_price", change.OldPrice.StringFixed(2)).
			Str("new_price", change.NewPrice.StringFixed(2)).
			Str("direction", string(change.Direction)).
			Msg("Price change detected")

		subscribers, err := s.subs.GetActiveByPlan(plan.ID)
		if err != nil {
			log.Error().Err(err).Str("plan_id", plan.ID).Msg("Failed to load subscribers")
			continue
		}
		if _, err := s.dispatcher.Dispatch(ctx, product, plan, change, subscribers); err != nil {
			log.Error().Err(err).Str("plan_id", plan.ID).Msg("Alert dispatch failed")
		}
	}
	return nil
}

// resolvePlan pairs a quote with a stored plan. Name match wins; an unnamed
// quote falls back to the product's single plan when there is exactly one;
// anything else becomes a new plan so no observed price is dropped.
func (s *Scheduler) resolvePlan(product *models.Product, quote *scraper.PlanQuote, activePlans []models.Plan) (*models.Plan, error) {
	if quote.PlanName != "" {
		plan, err := s.plans.MatchByName(product.ID, quote.PlanName)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	} else if len(activePlans) == 1 {
		return &activePlans[0], nil
	}

	name := quote.PlanName
	if name == "" {
		name = "Standard"
	}
	plan := &models.Plan{
		ProductID:    product.ID,
		Name:         name,
		Slug:         utils.Slugify(name),
		Currency:     quote.Currency,
		BillingCycle: models.BillingCycle(quote.BillingCycle),
		Features:     models.FeatureList(quote.Features),
		HasFreeTier:  quote.Price.IsZero(),
		IsActive:     true,
	}
	if plan.BillingCycle == "" {
		plan.BillingCycle = models.BillingMonthly
	}
	if err := s.plans.Create(plan); err != nil {
		return nil, err
	}
	log.Info().
		Str("slug", product.Slug).
		Str("plan", plan.Name).
		Msg("Discovered new plan")
	return plan, nil
}

// politenessDelay returns a random duration in [DelayMin, DelayMax].
func (s *Scheduler) politenessDelay() time.Duration {
	min, max := s.scrapeCfg.DelayMin, s.scrapeCfg.DelayMax
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// sleepWithContext waits for d or until ctx is done. Returns false when the
// context won.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
