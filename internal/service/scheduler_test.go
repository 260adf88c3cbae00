package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwatch/planwatch_api/internal/cache"
	"github.com/planwatch/planwatch_api/internal/config"
	"github.com/planwatch/planwatch_api/internal/models"
	"github.com/planwatch/planwatch_api/internal/scraper"
	"github.com/planwatch/planwatch_api/internal/utils"
)

type fakeProductStore struct {
	mu       sync.Mutex
	products []models.Product
	statuses map[string][]models.ExtractionStatus
	touched  map[string]int
}

func newFakeProductStore(products ...models.Product) *fakeProductStore {
	return &fakeProductStore{
		products: products,
		statuses: make(map[string][]models.ExtractionStatus),
		touched:  make(map[string]int),
	}
}

// GetDueForExtraction mirrors the repository predicate: active products
// never extracted first, then those whose last extraction fell out of the
// staleness window.
func (s *fakeProductStore) GetDueForExtraction(staleness time.Duration, limit int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-staleness)
	var due []models.Product
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		if p.LastExtractedAt == nil || p.LastExtractedAt.Before(cutoff) {
			due = append(due, p)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i].LastExtractedAt, due[j].LastExtractedAt
		if a == nil || b == nil {
			return b != nil
		}
		return a.Before(*b)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *fakeProductStore) GetBySlug(slug string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].Slug == slug {
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeProductStore) SetExtractionStatus(id string, status models.ExtractionStatus, touchExtractedAt bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = append(s.statuses[id], status)
	if touchExtractedAt {
		s.touched[id]++
		now := time.Now().UTC()
		for i := range s.products {
			if s.products[i].ID == id {
				s.products[i].LastExtractedAt = &now
			}
		}
	}
	return nil
}

func (s *fakeProductStore) lastStatus(id string) models.ExtractionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.statuses[id]
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1]
}

type fakePlanStore struct {
	mu    sync.Mutex
	plans []models.Plan
}

func (s *fakePlanStore) GetActiveByProduct(productID string) ([]models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Plan
	for _, p := range s.plans {
		if p.ProductID == productID && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePlanStore) MatchByName(productID, name string) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.plans {
		if s.plans[i].ProductID == productID && strings.EqualFold(s.plans[i].Name, name) {
			p := s.plans[i]
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakePlanStore) Create(p *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = "plan-" + p.Slug
	}
	s.plans = append(s.plans, *p)
	return nil
}

type fakeSnapshotStore struct {
	mu      sync.Mutex
	history map[string][]models.Snapshot
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{history: make(map[string][]models.Snapshot)}
}

func (s *fakeSnapshotStore) Append(planID string, price decimal.Decimal, currency string, features models.FeatureList, source string) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := models.Snapshot{
		ID:         "snap",
		PlanID:     planID,
		Price:      price,
		Currency:   currency,
		Features:   features,
		Source:     source,
		ObservedAt: time.Now().UTC(),
	}
	s.history[planID] = append(s.history[planID], snapshot)
	return &snapshot, nil
}

func (s *fakeSnapshotStore) LatestTwo(planID string) (*models.Snapshot, *models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.history[planID]
	switch len(history) {
	case 0:
		return nil, nil, nil
	case 1:
		current := history[0]
		return &current, nil, nil
	default:
		current := history[len(history)-1]
		previous := history[len(history)-2]
		return &current, &previous, nil
	}
}

func (s *fakeSnapshotStore) count(planID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[planID])
}

func (s *fakeSnapshotStore) all(planID string) []models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Snapshot(nil), s.history[planID]...)
}

type fakePriceCacher struct {
	mu      sync.Mutex
	entries map[string]cache.PlanPriceEntry
}

func newFakePriceCacher() *fakePriceCacher {
	return &fakePriceCacher{entries: make(map[string]cache.PlanPriceEntry)}
}

func (c *fakePriceCacher) Set(ctx context.Context, entry *cache.PlanPriceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.PlanID] = *entry
	return nil
}

type fakeSubSource struct {
	subs map[string][]models.TrackedSubscription
}

func (s *fakeSubSource) GetActiveByPlan(planID string) ([]models.TrackedSubscription, error) {
	return s.subs[planID], nil
}

type fakeExtractor struct {
	mu       sync.Mutex
	attempts int
	extract  func(attempt int) ([]scraper.PlanQuote, error)
}

func (e *fakeExtractor) Extract(ctx context.Context, product *models.Product) ([]scraper.PlanQuote, error) {
	e.mu.Lock()
	e.attempts++
	attempt := e.attempts
	e.mu.Unlock()
	return e.extract(attempt)
}

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		StalenessWindow:  24 * time.Hour,
		MaxConcurrent:    2,
		MaxAttempts:      3,
		RetryBackoffBase: 5 * time.Second,
	}
}

func newTestScheduler(
	products *fakeProductStore,
	plans *fakePlanStore,
	snapshots *fakeSnapshotStore,
	subs *fakeSubSource,
	extractor scraper.Extractor,
	alerts *memAlertStore,
) *Scheduler {
	detector := NewChangeDetector(snapshots)
	dispatcher := NewAlertDispatcher(alerts, nil, nil)
	s := NewScheduler(
		products, plans, snapshots, subs,
		extractor, detector, dispatcher, nil,
		testWorkerConfig(), config.ScraperConfig{},
	)
	s.sleepFn = func(ctx context.Context, d time.Duration) bool { return true }
	return s
}

func quote(name, price string) scraper.PlanQuote {
	return scraper.PlanQuote{
		PlanName:     name,
		Price:        decimal.RequireFromString(price),
		Currency:     "USD",
		BillingCycle: "monthly",
	}
}

func TestTriggerProductSuccessDispatchesAlert(t *testing.T) {
	product := models.Product{ID: "prod-1", Slug: "slack", Name: "Slack", IsActive: true}
	products := newFakeProductStore(product)
	plans := &fakePlanStore{plans: []models.Plan{
		{ID: "plan-1", ProductID: "prod-1", Name: "Pro", IsActive: true},
	}}
	snapshots := newFakeSnapshotStore()
	_, err := snapshots.Append("plan-1", decimal.RequireFromString("10.00"), "USD", nil, models.SnapshotSourceScraper)
	require.NoError(t, err)

	subs := &fakeSubSource{subs: map[string][]models.TrackedSubscription{
		"plan-1": {activeSub("u1")},
	}}
	extractor := &fakeExtractor{extract: func(int) ([]scraper.PlanQuote, error) {
		return []scraper.PlanQuote{quote("Pro", "12.00")}, nil
	}}
	alerts := &memAlertStore{}
	s := newTestScheduler(products, plans, snapshots, subs, extractor, alerts)

	result, err := s.TriggerProduct(context.Background(), "slack")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.PlansExtracted)
	require.NotNil(t, result.ExtractedPrice)
	assert.True(t, result.ExtractedPrice.Equal(decimal.RequireFromString("12.00")))

	assert.Equal(t, 2, snapshots.count("plan-1"))
	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, models.AlertPriceIncrease, alerts.alerts[0].Kind)
	assert.Equal(t, models.ExtractionSuccess, products.lastStatus("prod-1"))
	assert.Equal(t, 1, products.touched["prod-1"])
}

func TestTriggerProductFirstSnapshotNoAlert(t *testing.T) {
	product := models.Product{ID: "prod-1", Slug: "slack", Name: "Slack", IsActive: true}
	products := newFakeProductStore(product)
	plans := &fakePlanStore{plans: []models.Plan{
		{ID: "plan-1", ProductID: "prod-1", Name: "Pro", IsActive: true},
	}}
	snapshots := newFakeSnapshotStore()
	subs := &fakeSubSource{subs: map[string][]models.TrackedSubscription{
		"plan-1": {activeSub("u1")},
	}}
	extractor := &fakeExtractor{extract: func(int) ([]scraper.PlanQuote, error) {
		return []scraper.PlanQuote{quote("Pro", "12.00")}, nil
	}}
	alerts := &memAlertStore{}
	s := newTestScheduler(products, plans, snapshots, subs, extractor, alerts)

	result, err := s.TriggerProduct(context.Background(), "slack")
	require.NoError(t, err)
	assert.True(t, result.Success)

	// One snapshot means no comparison baseline, so no alert.
	assert.Equal(t, 1, snapshots.count("plan-1"))
	assert.Empty(t, alerts.alerts)
}

func TestRetryExhaustionLeavesNoSnapshots(t *testing.T) {
	product := models.Product{ID: "prod-1", Slug: "slack", Name: "Slack", IsActive: true}
	products := newFakeProductStore(product)
	plans := &fakePlanStore{}
	snapshots := newFakeSnapshotStore()
	subs := &fakeSubSource{}
	extractor := &fakeExtractor{extract: func(int) ([]scraper.PlanQuote, error) {
		return nil, &scraper.ExtractionError{Kind: scraper.KindNavigationTimeout, URL: "https://slack.com/pricing"}
	}}
	alerts := &memAlertStore{}
	s := newTestScheduler(products, plans, snapshots, subs, extractor, alerts)

	var backoffs []time.Duration
	s.sleepFn = func(ctx context.Context, d time.Duration) bool {
		backoffs = append(backoffs, d)
		return true
	}

	result, err := s.TriggerProduct(context.Background(), "slack")
	require.NoError(t, err)
	assert.False(t, result.Success)

	assert.Equal(t, 3, extractor.attempts)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, backoffs)
	assert.Equal(t, 0, snapshots.count("plan-1"))
	assert.Empty(t, alerts.alerts)
	assert.Equal(t, models.ExtractionFailed, products.lastStatus("prod-1"))
	// Failed runs still touch the timestamp so the product waits for the
	// next staleness window instead of being retried immediately.
	assert.Equal(t, 1, products.touched["prod-1"])
}

func TestUnexpectedErrorIsNotRetried(t *testing.T) {
	product := models.Product{ID: "prod-1", Slug: "slack", Name: "Slack", IsActive: true}
	products := newFakeProductStore(product)
	extractor := &fakeExtractor{extract: func(int) ([]scraper.PlanQuote, error) {
		return nil, errors.New("browser crashed")
	}}
	s := newTestScheduler(products, &fakePlanStore{}, newFakeSnapshotStore(), &fakeSubSource{}, extractor, &memAlertStore{})

	result, err := s.TriggerProduct(context.Background(), "slack")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, extractor.attempts)
}

func TestTriggerProductUnknownSlug(t *testing.T) {
	s := newTestScheduler(newFakeProductStore(), &fakePlanStore{}, newFakeSnapshotStore(), &fakeSubSource{}, &fakeExtractor{}, &memAlertStore{})

	_, err := s.TriggerProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, utils.ErrProductNotFound)
}

func TestCycleExclusion(t *testing.T) {
	s := newTestScheduler(newFakeProductStore(), &fakePlanStore{}, newFakeSnapshotStore(), &fakeSubSource{}, &fakeExtractor{}, &memAlertStore{})

	s.running.Store(true)
	assert.ErrorIs(t, s.TriggerFullCycle(context.Background()), utils.ErrCycleAlreadyRunning)
	assert.ErrorIs(t, s.RunCycle(context.Background()), utils.ErrCycleAlreadyRunning)
	assert.True(t, s.IsRunning())

	s.running.Store(false)
	assert.NoError(t, s.RunCycle(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestProcessProductIsExclusivePerProduct(t *testing.T) {
	product := models.Product{ID: "prod-1", Slug: "slack", Name: "Slack", IsActive: true}
	products := newFakeProductStore(product)

	release := make(chan struct{})
	started := make(chan struct{})
	extractor := &fakeExtractor{extract: func(int) ([]scraper.PlanQuote, error) {
		close(started)
		<-release
		return []scraper.PlanQuote{quote("Pro", "10.00")}, nil
	}}
	plans := &fakePlanStore{plans: []models.Plan{
		{ID: "plan-1", ProductID: "prod-1", Name: "Pro", IsActive: true},
	}}
	s := newTestScheduler(products, plans, newFakeSnapshotStore(), &fakeSubSource{}, extractor, &memAlertStore{})

	done := make(chan error, 1)
	go func() {
		_, err := s.TriggerProduct(context.Background(), "slack")
		done <- err
	}()
	<-started

	_, err := s.TriggerProduct(context.Background(), "slack")
	assert.ErrorIs(t, err, utils.ErrProductBusy)

	close(release)
	require.NoError(t, <-done)
}

func TestNewPlanIsCreatedForUnknownQuote(t *testing.T) {
	product := models.Product{ID: "prod-1", Slug: "slack", Name: "Slack", IsActive: true}
	products := newFakeProductStore(product)
	plans := &fakePlanStore{}
	snapshots := newFakeSnapshotStore()
	extractor := &fakeExtractor{extract: func(int) ([]scraper.PlanQuote, error) {
		return []scraper.PlanQuote{quote("Business+", "15.00")}, nil
	}}
	s := newTestScheduler(products, plans, snapshots, &fakeSubSource{}, extractor, &memAlertStore{})

	result, err := s.TriggerProduct(context.Background(), "slack")
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, plans.plans, 1)
	assert.Equal(t, "Business+", plans.plans[0].Name)
	assert.Equal(t, "business", plans.plans[0].Slug)
	assert.Equal(t, 1, snapshots.count(plans.plans[0].ID))
}

func TestDueSelectionIsIdempotent(t *testing.T) {
	staleAt := time.Now().UTC().Add(-48 * time.Hour)
	freshAt := time.Now().UTC().Add(-1 * time.Hour)
	products := newFakeProductStore(
		models.Product{ID: "prod-never", Slug: "notion", Name: "Notion", IsActive: true},
		models.Product{ID: "prod-stale", Slug: "slack", Name: "Slack", IsActive: true, LastExtractedAt: &staleAt},
		models.Product{ID: "prod-fresh", Slug: "figma", Name: "Figma", IsActive: true, LastExtractedAt: &freshAt},
	)

	dueIDs := func() []string {
		due, err := products.GetDueForExtraction(24*time.Hour, 10)
		require.NoError(t, err)
		ids := make([]string, len(due))
		for i, p := range due {
			ids[i] = p.ID
		}
		return ids
	}

	// Selection has no side effects: back-to-back reads without an
	// intervening extraction return the same candidate set.
	first := dueIDs()
	second := dueIDs()
	assert.Equal(t, []string{"prod-never", "prod-stale"}, first)
	assert.Equal(t, first, second)

	extractor := &fakeExtractor{extract: func(int) ([]scraper.PlanQuote, error) {
		return []scraper.PlanQuote{quote("Pro", "10.00")}, nil
	}}
	s := newTestScheduler(products, &fakePlanStore{}, newFakeSnapshotStore(), &fakeSubSource{}, extractor, &memAlertStore{})
	require.NoError(t, s.RunCycle(context.Background()))

	// Successful runs touch last_extracted_at, so the processed products
	// drop out until the staleness window reopens.
	assert.Empty(t, dueIDs())
}

func TestSnapshotHistoryAndPriceCacheStayCoherent(t *testing.T) {
	product := models.Product{ID: "prod-1", Slug: "slack", Name: "Slack", IsActive: true}
	products := newFakeProductStore(product)
	plans := &fakePlanStore{plans: []models.Plan{
		{ID: "plan-1", ProductID: "prod-1", Name: "Pro", IsActive: true},
	}}
	snapshots := newFakeSnapshotStore()
	prices := newFakePriceCacher()
	extractor := &fakeExtractor{extract: func(attempt int) ([]scraper.PlanQuote, error) {
		if attempt == 1 {
			return []scraper.PlanQuote{quote("Pro", "10.00")}, nil
		}
		return []scraper.PlanQuote{quote("Pro", "12.00")}, nil
	}}

	detector := NewChangeDetector(snapshots)
	dispatcher := NewAlertDispatcher(&memAlertStore{}, nil, nil)
	s := NewScheduler(
		products, plans, snapshots, &fakeSubSource{},
		extractor, detector, dispatcher, prices,
		testWorkerConfig(), config.ScraperConfig{},
	)
	s.sleepFn = func(ctx context.Context, d time.Duration) bool { return true }

	for i := 0; i < 2; i++ {
		result, err := s.TriggerProduct(context.Background(), "slack")
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	// History only grows, in observation order.
	history := snapshots.all("plan-1")
	require.Len(t, history, 2)
	assert.False(t, history[1].ObservedAt.Before(history[0].ObservedAt))
	assert.True(t, history[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, history[1].Price.Equal(decimal.RequireFromString("12.00")))

	current, previous, err := snapshots.LatestTwo("plan-1")
	require.NoError(t, err)
	assert.True(t, current.Price.Equal(decimal.RequireFromString("12.00")))
	assert.True(t, previous.Price.Equal(decimal.RequireFromString("10.00")))

	// The cached plan price always matches the latest snapshot.
	entry, ok := prices.entries["plan-1"]
	require.True(t, ok)
	assert.True(t, entry.Price.Equal(current.Price))
	assert.Equal(t, current.ObservedAt, entry.ObservedAt)
}
