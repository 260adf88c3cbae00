package service

import (
	"github.com/shopspring/decimal"

	"github.com/planwatch/planwatch_api/internal/models"
)

// ChangeKind classifies the outcome of a change detection.
type ChangeKind string

const (
	// ChangeNoHistory means fewer than two snapshots exist for the plan,
	// so there is nothing to compare and no alert path.
	ChangeNoHistory ChangeKind = "no_history"
	// ChangeNone means the two most recent snapshots carry the same price.
	ChangeNone ChangeKind = "no_change"
	// ChangeDetected means the price moved.
	ChangeDetected ChangeKind = "changed"
)

// ChangeResult describes the delta between a plan's two most recent
// snapshots. DeltaPercent is nil when the previous price was zero: a
// percentage is undefined there and must never surface as Inf or NaN.
type ChangeResult struct {
	Kind         ChangeKind
	OldPrice     decimal.Decimal
	NewPrice     decimal.Decimal
	DeltaAbs     decimal.Decimal
	DeltaPercent *float64
	Direction    models.AlertKind
}

// SnapshotSource is the read side of the snapshot store the detector needs.
type SnapshotSource interface {
	LatestTwo(planID string) (current, previous *models.Snapshot, err error)
}

// ChangeDetector compares a plan's newest snapshot against the immediately
// preceding one. It is invoked right after a successful append, so the
// newest snapshot is the one the pipeline just wrote.
type ChangeDetector struct {
	snapshots SnapshotSource
}

// NewChangeDetector constructs a ChangeDetector.
func NewChangeDetector(snapshots SnapshotSource) *ChangeDetector {
	return &ChangeDetector{snapshots: snapshots}
}

// Detect classifies the delta between the plan's two most recent snapshots.
// Price equality is exact on the stored value; currency is assumed stable
// per plan.
func (d *ChangeDetector) Detect(planID string) (*ChangeResult, error) {
	current, previous, err := d.snapshots.LatestTwo(planID)
	if err != nil {
		return nil, err
	}
	if current == nil || previous == nil {
		return &ChangeResult{Kind: ChangeNoHistory}, nil
	}

	if current.Price.Equal(previous.Price) {
		return &ChangeResult{
			Kind:     ChangeNone,
			OldPrice: previous.Price,
			NewPrice: current.Price,
		}, nil
	}

	result := &ChangeResult{
		Kind:     ChangeDetected,
		OldPrice: previous.Price,
		NewPrice: current.Price,
		DeltaAbs: current.Price.Sub(previous.Price),
	}
	if current.Price.GreaterThan(previous.Price) {
		result.Direction = models.AlertPriceIncrease
	} else {
		result.Direction = models.AlertPriceDecrease
	}
	if !previous.Price.IsZero() {
		pct, _ := result.DeltaAbs.
			Div(previous.Price).
			Mul(decimal.NewFromInt(100)).
			Round(4).
			Float64()
		result.DeltaPercent = &pct
	}
	return result, nil
}
