package service

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/planwatch/planwatch_api/internal/models"
	"github.com/planwatch/planwatch_api/internal/repository"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// TrackingPreferences are the alert settings a user picks when tracking a
// plan.
type TrackingPreferences struct {
	AlertOnIncrease    bool             `json:"alertOnIncrease"`
	AlertOnDecrease    bool             `json:"alertOnDecrease"`
	AlertOnNewFeatures bool             `json:"alertOnNewFeatures"`
	TargetPrice        *decimal.Decimal `json:"targetPrice,omitempty"`
}

// TrackedPlan is a subscription joined with its plan and product for the
// user's dashboard listing.
type TrackedPlan struct {
	Subscription models.TrackedSubscription `json:"subscription"`
	Plan         *models.Plan               `json:"plan,omitempty"`
	Product      *models.Product            `json:"product,omitempty"`
}

// TrackingService manages users' plan subscriptions.
type TrackingService struct {
	subs     *repository.SubscriptionRepository
	plans    *repository.PlanRepository
	products *repository.ProductRepository
}

func NewTrackingService(
	subs *repository.SubscriptionRepository,
	plans *repository.PlanRepository,
	products *repository.ProductRepository,
) *TrackingService {
	return &TrackingService{subs: subs, plans: plans, products: products}
}

// Track subscribes the user to a plan. Re-tracking a previously untracked
// plan reactivates the old row with the new preferences.
func (s *TrackingService) Track(userID, planID string, prefs TrackingPreferences) (*models.TrackedSubscription, error) {
	if _, err := s.plans.GetByID(planID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrPlanNotFound
		}
		return nil, err
	}

	existing, err := s.subs.GetByUserAndPlan(userID, planID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		if existing.IsActive {
			return nil, utils.ErrAlreadyTracked
		}
		existing.AlertOnIncrease = prefs.AlertOnIncrease
		existing.AlertOnDecrease = prefs.AlertOnDecrease
		existing.AlertOnNewFeatures = prefs.AlertOnNewFeatures
		existing.TargetPrice = prefs.TargetPrice
		if err := s.subs.UpdatePreferences(existing); err != nil {
			return nil, err
		}
		existing.IsActive = true
		log.Info().Str("user_id", userID).Str("plan_id", planID).Msg("Subscription reactivated")
		return existing, nil
	}

	sub := &models.TrackedSubscription{
		UserID:             userID,
		PlanID:             planID,
		AlertOnIncrease:    prefs.AlertOnIncrease,
		AlertOnDecrease:    prefs.AlertOnDecrease,
		AlertOnNewFeatures: prefs.AlertOnNewFeatures,
		TargetPrice:        prefs.TargetPrice,
		IsActive:           true,
	}
	if err := s.subs.Create(sub); err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID).Str("plan_id", planID).Msg("Plan tracked")
	return sub, nil
}

// Untrack deactivates the user's subscription.
func (s *TrackingService) Untrack(userID, subscriptionID string) error {
	if err := s.subs.Deactivate(subscriptionID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrTrackingNotFound
		}
		return err
	}
	log.Info().Str("user_id", userID).Str("subscription_id", subscriptionID).Msg("Plan untracked")
	return nil
}

// UpdatePreferences overwrites an active subscription's alert settings.
func (s *TrackingService) UpdatePreferences(userID, subscriptionID string, prefs TrackingPreferences) (*models.TrackedSubscription, error) {
	subs, err := s.subs.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].ID != subscriptionID {
			continue
		}
		subs[i].AlertOnIncrease = prefs.AlertOnIncrease
		subs[i].AlertOnDecrease = prefs.AlertOnDecrease
		subs[i].AlertOnNewFeatures = prefs.AlertOnNewFeatures
		subs[i].TargetPrice = prefs.TargetPrice
		if err := s.subs.UpdatePreferences(&subs[i]); err != nil {
			return nil, err
		}
		return &subs[i], nil
	}
	return nil, utils.ErrTrackingNotFound
}

// GetTracked lists the user's active subscriptions with plan and product
// context.
func (s *TrackingService) GetTracked(userID string) ([]TrackedPlan, error) {
	subs, err := s.subs.GetByUser(userID)
	if err != nil {
		return nil, err
	}

	result := make([]TrackedPlan, 0, len(subs))
	for i := range subs {
		entry := TrackedPlan{Subscription: subs[i]}
		if plan, err := s.plans.GetByID(subs[i].PlanID); err == nil {
			entry.Plan = plan
			if product, err := s.products.GetByID(plan.ProductID); err == nil {
				entry.Product = product
			}
		}
		result = append(result, entry)
	}
	return result, nil
}
