package repository

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/planwatch/planwatch_api/internal/models"
)

// DealRepository handles data access for deals.
type DealRepository struct {
	db *sqlx.DB
}

// NewDealRepository creates a new DealRepository.
func NewDealRepository(db *sqlx.DB) *DealRepository {
	return &DealRepository{db: db}
}

// GetActivePaged returns active deals newest first with pagination and the
// total count.
func (r *DealRepository) GetActivePaged(page, limit int) ([]models.Deal, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM deals WHERE is_active = true`); err != nil {
		return nil, 0, err
	}

	const q = `
        SELECT * FROM deals
        WHERE is_active = true
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`
	var deals []models.Deal
	if err := r.db.Select(&deals, q, limit, offset); err != nil {
		return nil, 0, err
	}
	return deals, total, nil
}

// Create inserts a new deal (administrative/seed path).
func (r *DealRepository) Create(d *models.Deal) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	const q = `
        INSERT INTO deals
            (id, product_id, title, description, deal_url, original_price, discounted_price, discount_percent, source, valid_from, valid_until, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(q,
		d.ID, d.ProductID, d.Title, d.Description, d.DealURL,
		d.OriginalPrice, d.DiscountedPrice, d.DiscountPercent,
		d.Source, d.ValidFrom, d.ValidUntil, d.IsActive,
	)
	return err
}

// DeactivateExpired flags deals whose validity window has passed and returns
// how many rows were affected. Expired deals are deactivated, never deleted.
func (r *DealRepository) DeactivateExpired() (int64, error) {
	const q = `
        UPDATE deals
        SET is_active = false
        WHERE is_active = true AND valid_until IS NOT NULL AND valid_until < NOW()`

	res, err := r.db.Exec(q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
