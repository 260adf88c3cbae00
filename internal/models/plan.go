package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle enumerates supported billing cycles.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

// FeatureList is a JSONB-backed list of plan features.
type FeatureList []string

// Value implements driver.Valuer for database storage
func (f FeatureList) Value() (driver.Value, error) {
	if f == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner for database retrieval
func (f *FeatureList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan FeatureList")
	}
	return json.Unmarshal(bytes, f)
}

// Plan represents one pricing tier of a product. CurrentPrice is a
// denormalized cache of the most recent snapshot's price and is overwritten
// by the pipeline in the same transaction as each snapshot insert.
type Plan struct {
	ID           string           `db:"id" json:"id"`
	ProductID    string           `db:"product_id" json:"productId"`
	Name         string           `db:"name" json:"name"`
	Slug         string           `db:"slug" json:"slug"`
	Description  string           `db:"description" json:"description,omitempty"`
	Currency     string           `db:"currency" json:"currency"`
	BillingCycle BillingCycle     `db:"billing_cycle" json:"billingCycle"`
	Features     FeatureList      `db:"features" json:"features"`
	CurrentPrice *decimal.Decimal `db:"current_price" json:"currentPrice,omitempty"`
	HasFreeTier  bool             `db:"has_free_tier" json:"hasFreeTier"`
	IsActive     bool             `db:"is_active" json:"isActive"`
	CreatedAt    time.Time        `db:"created_at" json:"-"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt"`
}
