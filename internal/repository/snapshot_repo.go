package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/planwatch/planwatch_api/internal/models"
)

// SnapshotRepository is the snapshot store: an append-only price history per
// plan. Append is the sole mutation path and keeps the plan's cached price
// coherent with the newest snapshot inside one transaction.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Append inserts a snapshot for the plan and updates the plan's
// current_price and features in the same transaction, so readers never
// observe a plan whose cached price disagrees with its latest snapshot.
func (r *SnapshotRepository) Append(planID string, price decimal.Decimal, currency string, features models.FeatureList, source string) (*models.Snapshot, error) {
	snapshot := &models.Snapshot{
		ID:         uuid.New().String(),
		PlanID:     planID,
		Price:      price,
		Currency:   currency,
		Features:   features,
		Source:     source,
		ObservedAt: time.Now().UTC(),
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	const insertQ = `
        INSERT INTO snapshots (id, plan_id, price, currency, features, source, observed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.Exec(insertQ,
		snapshot.ID, snapshot.PlanID, snapshot.Price, snapshot.Currency,
		snapshot.Features, snapshot.Source, snapshot.ObservedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	const updateQ = `
        UPDATE plans
        SET current_price = $2, currency = $3, features = $4, updated_at = NOW()
        WHERE id = $1`
	if _, err := tx.Exec(updateQ,
		snapshot.PlanID, snapshot.Price, snapshot.Currency, snapshot.Features,
	); err != nil {
		return nil, fmt.Errorf("failed to update plan price cache: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}
	return snapshot, nil
}

// LatestTwo returns the plan's two most recent snapshots ordered by
// observed_at descending. current is nil for a plan with no history;
// previous is nil when only one snapshot exists.
func (r *SnapshotRepository) LatestTwo(planID string) (current, previous *models.Snapshot, err error) {
	const q = `
        SELECT * FROM snapshots
        WHERE plan_id = $1
        ORDER BY observed_at DESC
        LIMIT 2`

	var snapshots []models.Snapshot
	if err := r.db.Select(&snapshots, q, planID); err != nil {
		return nil, nil, err
	}

	switch len(snapshots) {
	case 0:
		return nil, nil, nil
	case 1:
		return &snapshots[0], nil, nil
	default:
		return &snapshots[0], &snapshots[1], nil
	}
}

// History returns up to limit snapshots for a plan, newest first.
func (r *SnapshotRepository) History(planID string, limit int) ([]models.Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	const q = `
        SELECT * FROM snapshots
        WHERE plan_id = $1
        ORDER BY observed_at DESC
        LIMIT $2`

	var snapshots []models.Snapshot
	if err := r.db.Select(&snapshots, q, planID, limit); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return snapshots, nil
}
