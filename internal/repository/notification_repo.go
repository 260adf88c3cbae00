package repository

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/planwatch/planwatch_api/internal/models"
)

// NotificationRepository handles the delivery ledger. Pending rows are the
// retry queue for the notification worker.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert persists a new pending notification.
func (r *NotificationRepository) Insert(n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	const q = `
        INSERT INTO notifications (id, user_id, alert_id, channel, title, message, payload, status, attempts)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)`

	_, err := r.db.Exec(q,
		n.ID, n.UserID, n.AlertID, n.Channel, n.Title, n.Message, n.Payload, n.Status,
	)
	return err
}

// GetPendingForDelivery returns deliverable notifications that have not yet
// exhausted their attempt budget, oldest first. Rows stuck in 'sending' past
// the claim window count as deliverable so a crashed delivery self-heals.
func (r *NotificationRepository) GetPendingForDelivery(limit, maxAttempts int) ([]models.Notification, error) {
	const q = `
        SELECT * FROM notifications
        WHERE (status = 'pending' OR (status = 'sending' AND claimed_at < NOW() - INTERVAL '2 minutes'))
        AND attempts < $1
        ORDER BY created_at
        LIMIT $2`

	var notifications []models.Notification
	if err := r.db.Select(&notifications, q, maxAttempts, limit); err != nil {
		return nil, err
	}
	return notifications, nil
}

// Claim moves a deliverable row to 'sending' so exactly one goroutine owns
// the attempt. Returns false when another delivery already holds the row.
func (r *NotificationRepository) Claim(id string) (bool, error) {
	const q = `
        UPDATE notifications
        SET status = 'sending', claimed_at = NOW()
        WHERE id = $1
        AND (status = 'pending' OR (status = 'sending' AND claimed_at < NOW() - INTERVAL '2 minutes'))`

	res, err := r.db.Exec(q, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkSent records a successful delivery.
func (r *NotificationRepository) MarkSent(id string) error {
	const q = `
        UPDATE notifications
        SET status = $2, attempts = attempts + 1, sent_at = NOW(), last_error = NULL, claimed_at = NULL
        WHERE id = $1`

	_, err := r.db.Exec(q, id, models.NotificationSent)
	return err
}

// MarkAttemptFailed records a failed delivery attempt. The row stays pending
// until maxAttempts is reached, after which it is marked failed.
func (r *NotificationRepository) MarkAttemptFailed(id, reason string, maxAttempts int) error {
	const q = `
        UPDATE notifications
        SET attempts = attempts + 1,
            last_error = $2,
            claimed_at = NULL,
            status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END
        WHERE id = $1`

	_, err := r.db.Exec(q, id, reason, maxAttempts)
	return err
}
