package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/planwatch/planwatch_api/internal/models"
)

// AlertRepository handles data access for price alerts.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Insert persists a new alert.
func (r *AlertRepository) Insert(a *models.PriceAlert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	const q = `
        INSERT INTO price_alerts
            (id, user_id, plan_id, kind, title, message, old_price, new_price, delta_abs, delta_percent, is_read)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false)`

	_, err := r.db.Exec(q,
		a.ID, a.UserID, a.PlanID, a.Kind, a.Title, a.Message,
		a.OldPrice, a.NewPrice, a.DeltaAbs, a.DeltaPercent,
	)
	return err
}

// GetByUserPaged returns a user's alerts newest first with pagination,
// optionally restricted to unread ones, plus the total count.
func (r *AlertRepository) GetByUserPaged(userID string, unreadOnly bool, page, limit int) ([]models.PriceAlert, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit

	const baseWhere = `WHERE user_id = $1 AND ($2 = false OR is_read = false)`

	countQuery := `SELECT COUNT(1) FROM price_alerts ` + baseWhere
	var total int
	if err := r.db.Get(&total, countQuery, userID, unreadOnly); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT * FROM price_alerts ` + baseWhere + `
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	var alerts []models.PriceAlert
	if err := r.db.Select(&alerts, listQuery, userID, unreadOnly, limit, offset); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// MarkRead flags a user's alert as read. Returns sql.ErrNoRows when the
// alert does not belong to the user.
func (r *AlertRepository) MarkRead(id, userID string) error {
	const q = `UPDATE price_alerts SET is_read = true WHERE id = $1 AND user_id = $2`

	res, err := r.db.Exec(q, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UnreadCount returns the number of unread alerts for a user.
func (r *AlertRepository) UnreadCount(userID string) (int, error) {
	const q = `SELECT COUNT(1) FROM price_alerts WHERE user_id = $1 AND is_read = false`

	var n int
	if err := r.db.Get(&n, q, userID); err != nil {
		return 0, err
	}
	return n, nil
}
