package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwatch/planwatch_api/internal/models"
)

type stubSnapshotSource struct {
	current  *models.Snapshot
	previous *models.Snapshot
	err      error
}

func (s *stubSnapshotSource) LatestTwo(planID string) (*models.Snapshot, *models.Snapshot, error) {
	return s.current, s.previous, s.err
}

func snap(price string) *models.Snapshot {
	return &models.Snapshot{
		ID:         "snap-" + price,
		PlanID:     "plan-1",
		Price:      decimal.RequireFromString(price),
		Currency:   "USD",
		ObservedAt: time.Now().UTC(),
	}
}

func TestDetectNoHistory(t *testing.T) {
	d := NewChangeDetector(&stubSnapshotSource{current: snap("10.00"), previous: nil})

	result, err := d.Detect("plan-1")
	require.NoError(t, err)
	assert.Equal(t, ChangeNoHistory, result.Kind)
}

func TestDetectNoChange(t *testing.T) {
	d := NewChangeDetector(&stubSnapshotSource{current: snap("10.00"), previous: snap("10.00")})

	result, err := d.Detect("plan-1")
	require.NoError(t, err)
	assert.Equal(t, ChangeNone, result.Kind)
}

func TestDetectNoChangeAcrossRepresentations(t *testing.T) {
	// 10 and 10.00 are the same price.
	d := NewChangeDetector(&stubSnapshotSource{current: snap("10"), previous: snap("10.00")})

	result, err := d.Detect("plan-1")
	require.NoError(t, err)
	assert.Equal(t, ChangeNone, result.Kind)
}

func TestDetectIncrease(t *testing.T) {
	d := NewChangeDetector(&stubSnapshotSource{current: snap("12.00"), previous: snap("10.00")})

	result, err := d.Detect("plan-1")
	require.NoError(t, err)
	assert.Equal(t, ChangeDetected, result.Kind)
	assert.Equal(t, models.AlertPriceIncrease, result.Direction)
	assert.True(t, result.DeltaAbs.Equal(decimal.RequireFromString("2.00")))
	require.NotNil(t, result.DeltaPercent)
	assert.InDelta(t, 20.0, *result.DeltaPercent, 0.0001)
}

func TestDetectDecrease(t *testing.T) {
	d := NewChangeDetector(&stubSnapshotSource{current: snap("7.50"), previous: snap("10.00")})

	result, err := d.Detect("plan-1")
	require.NoError(t, err)
	assert.Equal(t, ChangeDetected, result.Kind)
	assert.Equal(t, models.AlertPriceDecrease, result.Direction)
	require.NotNil(t, result.DeltaPercent)
	assert.InDelta(t, -25.0, *result.DeltaPercent, 0.0001)
}

func TestDetectFromZeroHasNoPercent(t *testing.T) {
	// Free tier became paid: percentage is undefined, not Inf.
	d := NewChangeDetector(&stubSnapshotSource{current: snap("5.00"), previous: snap("0.00")})

	result, err := d.Detect("plan-1")
	require.NoError(t, err)
	assert.Equal(t, ChangeDetected, result.Kind)
	assert.Equal(t, models.AlertPriceIncrease, result.Direction)
	assert.Nil(t, result.DeltaPercent)
}
