package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/cache"
	"github.com/planwatch/planwatch_api/internal/models"
	"github.com/planwatch/planwatch_api/internal/repository"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// ProductWithPlans is a catalog entry with its active plans attached.
type ProductWithPlans struct {
	models.Product
	Plans []models.Plan `json:"plans"`
}

// ProductDetail adds per-plan snapshot history to a catalog entry.
type ProductDetail struct {
	models.Product
	Plans []PlanWithHistory `json:"plans"`
}

// PlanWithHistory pairs a plan with its recent price history.
type PlanWithHistory struct {
	models.Plan
	History []models.Snapshot `json:"history"`
}

// ProductService serves catalog reads. Plan prices go through the redis
// cache first; the denormalized plans table is the fallback, so a cold or
// absent cache only costs latency, never correctness.
type ProductService struct {
	products  *repository.ProductRepository
	plans     *repository.PlanRepository
	snapshots *repository.SnapshotRepository
	prices    *cache.PriceCache
}

// NewProductService constructs a ProductService. prices may be nil.
func NewProductService(
	products *repository.ProductRepository,
	plans *repository.PlanRepository,
	snapshots *repository.SnapshotRepository,
	prices *cache.PriceCache,
) *ProductService {
	return &ProductService{
		products:  products,
		plans:     plans,
		snapshots: snapshots,
		prices:    prices,
	}
}

// GetProducts returns a filtered, paginated catalog listing with active
// plans attached.
func (s *ProductService) GetProducts(ctx context.Context, category, search string, page, limit int) ([]ProductWithPlans, int, error) {
	products, total, err := s.products.GetAllPaged(category, search, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]ProductWithPlans, 0, len(products))
	for i := range products {
		plans, err := s.plans.GetActiveByProduct(products[i].ID)
		if err != nil {
			return nil, 0, err
		}
		for j := range plans {
			s.applyCachedPrice(ctx, &plans[j])
		}
		result = append(result, ProductWithPlans{Product: products[i], Plans: plans})
	}
	return result, total, nil
}

// GetProductDetail returns a product with plans and recent price history.
func (s *ProductService) GetProductDetail(ctx context.Context, slug string, historyLimit int) (*ProductDetail, error) {
	product, err := s.products.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}

	plans, err := s.plans.GetActiveByProduct(product.ID)
	if err != nil {
		return nil, err
	}

	detail := &ProductDetail{Product: *product, Plans: make([]PlanWithHistory, 0, len(plans))}
	for i := range plans {
		s.applyCachedPrice(ctx, &plans[i])
		history, err := s.snapshots.History(plans[i].ID, historyLimit)
		if err != nil {
			return nil, err
		}
		detail.Plans = append(detail.Plans, PlanWithHistory{Plan: plans[i], History: history})
	}
	return detail, nil
}

// GetPlanHistory returns the most recent snapshots for a plan.
func (s *ProductService) GetPlanHistory(planID string, limit int) ([]models.Snapshot, error) {
	if _, err := s.plans.GetByID(planID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrPlanNotFound
		}
		return nil, err
	}
	return s.snapshots.History(planID, limit)
}

// applyCachedPrice overwrites the plan's denormalized price with the cached
// value when present, and backfills the cache from the plan on a miss.
func (s *ProductService) applyCachedPrice(ctx context.Context, plan *models.Plan) {
	if s.prices == nil {
		return
	}

	entry, err := s.prices.Get(ctx, plan.ID)
	if err == nil {
		plan.CurrentPrice = &entry.Price
		plan.Currency = entry.Currency
		return
	}

	if plan.CurrentPrice == nil {
		return
	}
	backfill := &cache.PlanPriceEntry{
		PlanID:   plan.ID,
		Price:    *plan.CurrentPrice,
		Currency: plan.Currency,
	}
	if err := s.prices.Set(ctx, backfill); err != nil {
		log.Debug().Err(err).Str("plan_id", plan.ID).Msg("Price cache backfill failed")
	}
}
