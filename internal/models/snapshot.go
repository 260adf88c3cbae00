package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotSource identifies how a snapshot was produced.
const (
	SnapshotSourceScraper = "web_scraping"
	SnapshotSourceManual  = "manual"
)

// Snapshot is an immutable point-in-time observation of a plan's price and
// feature list. Snapshots are append-only and ordered by observed_at
// descending per plan; they are the system of record for the price series.
type Snapshot struct {
	ID         string          `db:"id" json:"id"`
	PlanID     string          `db:"plan_id" json:"planId"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Currency   string          `db:"currency" json:"currency"`
	Features   FeatureList     `db:"features" json:"features"`
	Source     string          `db:"source" json:"source"`
	ObservedAt time.Time       `db:"observed_at" json:"observedAt"`
}
