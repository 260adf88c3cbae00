package repository

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/planwatch/planwatch_api/internal/models"
)

// PlanRepository handles data access for pricing plans.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetByID returns a single plan by id.
func (r *PlanRepository) GetByID(id string) (*models.Plan, error) {
	const q = `SELECT * FROM plans WHERE id = $1 LIMIT 1`

	var p models.Plan
	if err := r.db.Get(&p, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &p, nil
}

// GetActiveByProduct returns a product's active plans ordered by name.
func (r *PlanRepository) GetActiveByProduct(productID string) ([]models.Plan, error) {
	const q = `
        SELECT * FROM plans
        WHERE product_id = $1 AND is_active = true
        ORDER BY name`

	var plans []models.Plan
	if err := r.db.Select(&plans, q, productID); err != nil {
		return nil, err
	}
	return plans, nil
}

// MatchByName finds a product's active plan whose name matches the extracted
// plan name, case-insensitively. Returns sql.ErrNoRows when nothing matches.
func (r *PlanRepository) MatchByName(productID, name string) (*models.Plan, error) {
	const q = `
        SELECT * FROM plans
        WHERE product_id = $1 AND is_active = true AND LOWER(name) = $2
        LIMIT 1`

	var p models.Plan
	if err := r.db.Get(&p, q, productID, strings.ToLower(strings.TrimSpace(name))); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new plan (administrative path).
func (r *PlanRepository) Create(p *models.Plan) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	const q = `
        INSERT INTO plans (id, product_id, name, slug, description, currency, billing_cycle, features, has_free_tier, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(q,
		p.ID, p.ProductID, p.Name, p.Slug, p.Description,
		p.Currency, p.BillingCycle, p.Features, p.HasFreeTier, p.IsActive,
	)
	return err
}

// Update modifies a plan's administrative fields. The pipeline never calls
// this; current_price and features flow through the snapshot append.
func (r *PlanRepository) Update(p *models.Plan) error {
	const q = `
        UPDATE plans
        SET name = $2, description = $3, currency = $4, billing_cycle = $5,
            has_free_tier = $6, is_active = $7, updated_at = NOW()
        WHERE id = $1`

	_, err := r.db.Exec(q,
		p.ID, p.Name, p.Description, p.Currency, p.BillingCycle,
		p.HasFreeTier, p.IsActive,
	)
	return err
}
