package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackedSubscription records a user's interest in a plan together with
// their alert preferences. Untracking soft-deletes the row (is_active=false)
// so alerts that reference it stay resolvable; an inactive subscription
// never yields new alerts.
type TrackedSubscription struct {
	ID                 string           `db:"id" json:"id"`
	UserID             string           `db:"user_id" json:"userId"`
	PlanID             string           `db:"plan_id" json:"planId"`
	AlertOnIncrease    bool             `db:"alert_on_increase" json:"alertOnIncrease"`
	AlertOnDecrease    bool             `db:"alert_on_decrease" json:"alertOnDecrease"`
	AlertOnNewFeatures bool             `db:"alert_on_new_features" json:"alertOnNewFeatures"`
	TargetPrice        *decimal.Decimal `db:"target_price" json:"targetPrice,omitempty"`
	IsActive           bool             `db:"is_active" json:"isActive"`
	CreatedAt          time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updatedAt"`
}
