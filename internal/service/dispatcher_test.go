package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwatch/planwatch_api/internal/models"
)

type memAlertStore struct {
	alerts []models.PriceAlert
}

func (s *memAlertStore) Insert(a *models.PriceAlert) error {
	if a.ID == "" {
		a.ID = "alert-" + a.UserID
	}
	s.alerts = append(s.alerts, *a)
	return nil
}

type recordingEnqueuer struct {
	enqueued []string
}

func (e *recordingEnqueuer) EnqueueAlert(ctx context.Context, alert *models.PriceAlert, productName, planName string) {
	e.enqueued = append(e.enqueued, alert.UserID)
}

func increaseChange(old, new string) *ChangeResult {
	oldP := decimal.RequireFromString(old)
	newP := decimal.RequireFromString(new)
	result := &ChangeResult{
		Kind:     ChangeDetected,
		OldPrice: oldP,
		NewPrice: newP,
		DeltaAbs: newP.Sub(oldP),
	}
	if newP.GreaterThan(oldP) {
		result.Direction = models.AlertPriceIncrease
	} else {
		result.Direction = models.AlertPriceDecrease
	}
	if !oldP.IsZero() {
		pct, _ := result.DeltaAbs.Div(oldP).Mul(decimal.NewFromInt(100)).Round(4).Float64()
		result.DeltaPercent = &pct
	}
	return result
}

func testProductPlan() (*models.Product, *models.Plan) {
	return &models.Product{ID: "prod-1", Slug: "slack", Name: "Slack"},
		&models.Plan{ID: "plan-1", ProductID: "prod-1", Name: "Pro"}
}

func activeSub(userID string) models.TrackedSubscription {
	return models.TrackedSubscription{
		ID:              "sub-" + userID,
		UserID:          userID,
		PlanID:          "plan-1",
		AlertOnIncrease: true,
		AlertOnDecrease: true,
		IsActive:        true,
	}
}

func TestDispatchCreatesOneAlertPerSubscriber(t *testing.T) {
	store := &memAlertStore{}
	enq := &recordingEnqueuer{}
	d := NewAlertDispatcher(store, enq, nil)
	product, plan := testProductPlan()

	subs := []models.TrackedSubscription{activeSub("u1"), activeSub("u2")}
	created, err := d.Dispatch(context.Background(), product, plan, increaseChange("10.00", "12.00"), subs)
	require.NoError(t, err)

	require.Len(t, created, 2)
	require.Len(t, store.alerts, 2)
	assert.Equal(t, []string{"u1", "u2"}, enq.enqueued)

	alert := store.alerts[0]
	assert.Equal(t, models.AlertPriceIncrease, alert.Kind)
	assert.Equal(t, "Price Increase Alert: Slack", alert.Title)
	assert.Equal(t, "The price for Slack Pro has increased from $10.00 to $12.00 (+20.0%)", alert.Message)
	require.NotNil(t, alert.DeltaPercent)
	assert.InDelta(t, 20.0, *alert.DeltaPercent, 0.0001)
}

func TestDispatchSkipsInactiveSubscribers(t *testing.T) {
	store := &memAlertStore{}
	d := NewAlertDispatcher(store, nil, nil)
	product, plan := testProductPlan()

	inactive := activeSub("u1")
	inactive.IsActive = false

	created, err := d.Dispatch(context.Background(), product, plan, increaseChange("10.00", "12.00"), []models.TrackedSubscription{inactive})
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, store.alerts)
}

func TestDispatchRespectsDirectionPreferences(t *testing.T) {
	store := &memAlertStore{}
	d := NewAlertDispatcher(store, nil, nil)
	product, plan := testProductPlan()

	noIncrease := activeSub("u1")
	noIncrease.AlertOnIncrease = false

	created, err := d.Dispatch(context.Background(), product, plan, increaseChange("10.00", "12.00"), []models.TrackedSubscription{noIncrease})
	require.NoError(t, err)
	assert.Empty(t, created)

	// The same subscriber still gets decrease alerts.
	created, err = d.Dispatch(context.Background(), product, plan, increaseChange("12.00", "10.00"), []models.TrackedSubscription{noIncrease})
	require.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Equal(t, models.AlertPriceDecrease, created[0].Kind)
}

func TestDispatchTargetPriceGatesDecreases(t *testing.T) {
	store := &memAlertStore{}
	d := NewAlertDispatcher(store, nil, nil)
	product, plan := testProductPlan()

	target := decimal.RequireFromString("8.00")
	sub := activeSub("u1")
	sub.TargetPrice = &target

	// 10 -> 9 is a decrease but still above the target. No alert.
	created, err := d.Dispatch(context.Background(), product, plan, increaseChange("10.00", "9.00"), []models.TrackedSubscription{sub})
	require.NoError(t, err)
	assert.Empty(t, created)

	// 10 -> 7.50 crosses the target.
	created, err = d.Dispatch(context.Background(), product, plan, increaseChange("10.00", "7.50"), []models.TrackedSubscription{sub})
	require.NoError(t, err)
	assert.Len(t, created, 1)

	// Increases are never target-gated.
	created, err = d.Dispatch(context.Background(), product, plan, increaseChange("10.00", "12.00"), []models.TrackedSubscription{sub})
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestDispatchIgnoresNonChanges(t *testing.T) {
	store := &memAlertStore{}
	d := NewAlertDispatcher(store, nil, nil)
	product, plan := testProductPlan()

	created, err := d.Dispatch(context.Background(), product, plan, &ChangeResult{Kind: ChangeNone}, []models.TrackedSubscription{activeSub("u1")})
	require.NoError(t, err)
	assert.Empty(t, created)

	created, err = d.Dispatch(context.Background(), product, plan, &ChangeResult{Kind: ChangeNoHistory}, []models.TrackedSubscription{activeSub("u1")})
	require.NoError(t, err)
	assert.Empty(t, created)
}
