package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/planwatch/planwatch_api/internal/models"
)

// SubscriptionRepository handles data access for tracked subscriptions. It
// is the subscription index: the alert fan-out reads active rows straight
// from the table so opt-in/opt-out state is always current.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetActiveByPlan returns the active subscriptions tracking a plan.
func (r *SubscriptionRepository) GetActiveByPlan(planID string) ([]models.TrackedSubscription, error) {
	const q = `
        SELECT * FROM tracked_subscriptions
        WHERE plan_id = $1 AND is_active = true
        ORDER BY created_at`

	var subs []models.TrackedSubscription
	if err := r.db.Select(&subs, q, planID); err != nil {
		return nil, err
	}
	return subs, nil
}

// GetByUser returns a user's subscriptions, active first.
func (r *SubscriptionRepository) GetByUser(userID string) ([]models.TrackedSubscription, error) {
	const q = `
        SELECT * FROM tracked_subscriptions
        WHERE user_id = $1
        ORDER BY is_active DESC, created_at DESC`

	var subs []models.TrackedSubscription
	if err := r.db.Select(&subs, q, userID); err != nil {
		return nil, err
	}
	return subs, nil
}

// GetByUserAndPlan returns a user's subscription for a plan regardless of
// its active flag, or sql.ErrNoRows.
func (r *SubscriptionRepository) GetByUserAndPlan(userID, planID string) (*models.TrackedSubscription, error) {
	const q = `
        SELECT * FROM tracked_subscriptions
        WHERE user_id = $1 AND plan_id = $2
        LIMIT 1`

	var sub models.TrackedSubscription
	if err := r.db.Get(&sub, q, userID, planID); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &sub, nil
}

// Create inserts a new subscription.
func (r *SubscriptionRepository) Create(s *models.TrackedSubscription) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	const q = `
        INSERT INTO tracked_subscriptions
            (id, user_id, plan_id, alert_on_increase, alert_on_decrease, alert_on_new_features, target_price, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(q,
		s.ID, s.UserID, s.PlanID, s.AlertOnIncrease, s.AlertOnDecrease,
		s.AlertOnNewFeatures, s.TargetPrice, s.IsActive,
	)
	return err
}

// UpdatePreferences overwrites a subscription's alert preferences and
// reactivates it.
func (r *SubscriptionRepository) UpdatePreferences(s *models.TrackedSubscription) error {
	const q = `
        UPDATE tracked_subscriptions
        SET alert_on_increase = $2, alert_on_decrease = $3,
            alert_on_new_features = $4, target_price = $5,
            is_active = true, updated_at = NOW()
        WHERE id = $1`

	_, err := r.db.Exec(q,
		s.ID, s.AlertOnIncrease, s.AlertOnDecrease, s.AlertOnNewFeatures, s.TargetPrice,
	)
	return err
}

// Deactivate soft-deletes a user's subscription. Rows are never hard-deleted
// while alerts reference them. Returns sql.ErrNoRows when the subscription
// does not belong to the user.
func (r *SubscriptionRepository) Deactivate(id, userID string) error {
	const q = `
        UPDATE tracked_subscriptions
        SET is_active = false, updated_at = NOW()
        WHERE id = $1 AND user_id = $2`

	res, err := r.db.Exec(q, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
