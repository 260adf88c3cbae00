package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deal is a time-bounded discount surfaced alongside tracked products.
// Deals are never deleted; the deal expiry worker deactivates rows whose
// valid_until has passed.
type Deal struct {
	ID              string           `db:"id" json:"id"`
	ProductID       *string          `db:"product_id" json:"productId,omitempty"`
	Title           string           `db:"title" json:"title"`
	Description     string           `db:"description" json:"description"`
	DealURL         string           `db:"deal_url" json:"dealUrl"`
	OriginalPrice   *decimal.Decimal `db:"original_price" json:"originalPrice,omitempty"`
	DiscountedPrice *decimal.Decimal `db:"discounted_price" json:"discountedPrice,omitempty"`
	DiscountPercent *float64         `db:"discount_percent" json:"discountPercent,omitempty"`
	Source          string           `db:"source" json:"source"`
	ValidFrom       *time.Time       `db:"valid_from" json:"validFrom,omitempty"`
	ValidUntil      *time.Time       `db:"valid_until" json:"validUntil,omitempty"`
	IsActive        bool             `db:"is_active" json:"isActive"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
}
