package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertKind enumerates the direction of a detected price change.
type AlertKind string

const (
	AlertPriceIncrease AlertKind = "increase"
	AlertPriceDecrease AlertKind = "decrease"
)

// PriceAlert is created exactly once per qualifying subscriber per detected
// change. DeltaPercent is nil when the previous price was zero, since a
// percentage is undefined in that case.
type PriceAlert struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"userId"`
	PlanID       string          `db:"plan_id" json:"planId"`
	Kind         AlertKind       `db:"kind" json:"kind"`
	Title        string          `db:"title" json:"title"`
	Message      string          `db:"message" json:"message"`
	OldPrice     decimal.Decimal `db:"old_price" json:"oldPrice"`
	NewPrice     decimal.Decimal `db:"new_price" json:"newPrice"`
	DeltaAbs     decimal.Decimal `db:"delta_abs" json:"deltaAbs"`
	DeltaPercent *float64        `db:"delta_percent" json:"deltaPercent,omitempty"`
	IsRead       bool            `db:"is_read" json:"isRead"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}
