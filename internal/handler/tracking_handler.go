package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/planwatch/planwatch_api/internal/service"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// TrackingHandler handles subscription endpoints. All routes require JWT.
type TrackingHandler struct {
	trackingService *service.TrackingService
}

// NewTrackingHandler constructs a TrackingHandler.
func NewTrackingHandler(trackingService *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{trackingService: trackingService}
}

type prefsRequest struct {
	AlertOnIncrease    *bool            `json:"alertOnIncrease"`
	AlertOnDecrease    *bool            `json:"alertOnDecrease"`
	AlertOnNewFeatures bool             `json:"alertOnNewFeatures"`
	TargetPrice        *decimal.Decimal `json:"targetPrice"`
}

type trackRequest struct {
	PlanID string `json:"planId" binding:"required"`
	prefsRequest
}

func (r *prefsRequest) preferences() service.TrackingPreferences {
	// Both alert directions default to on when omitted.
	prefs := service.TrackingPreferences{
		AlertOnIncrease:    true,
		AlertOnDecrease:    true,
		AlertOnNewFeatures: r.AlertOnNewFeatures,
		TargetPrice:        r.TargetPrice,
	}
	if r.AlertOnIncrease != nil {
		prefs.AlertOnIncrease = *r.AlertOnIncrease
	}
	if r.AlertOnDecrease != nil {
		prefs.AlertOnDecrease = *r.AlertOnDecrease
	}
	return prefs
}

// Track subscribes the authenticated user to a plan.
func (h *TrackingHandler) Track(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	userID := c.GetString("user_id")
	sub, err := h.trackingService.Track(userID, req.PlanID, req.preferences())
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrPlanNotFound):
			utils.Error(c, 404, "PLAN_NOT_FOUND", "Plan not found")
		case errors.Is(err, utils.ErrAlreadyTracked):
			utils.Error(c, 409, "ALREADY_TRACKED", "Plan is already tracked")
		default:
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to track plan")
		}
		return
	}

	utils.Success(c, 201, "Plan tracked", gin.H{
		"subscription": sub,
	})
}

// Untrack deactivates one of the user's subscriptions.
func (h *TrackingHandler) Untrack(c *gin.Context) {
	userID := c.GetString("user_id")
	subscriptionID := c.Param("id")

	if err := h.trackingService.Untrack(userID, subscriptionID); err != nil {
		if errors.Is(err, utils.ErrTrackingNotFound) {
			utils.Error(c, 404, "TRACKING_NOT_FOUND", "Subscription not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to untrack plan")
		return
	}

	utils.Success(c, 200, "Plan untracked", nil)
}

// UpdatePreferences overwrites a subscription's alert settings.
func (h *TrackingHandler) UpdatePreferences(c *gin.Context) {
	var req prefsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	userID := c.GetString("user_id")
	subscriptionID := c.Param("id")

	sub, err := h.trackingService.UpdatePreferences(userID, subscriptionID, req.preferences())
	if err != nil {
		if errors.Is(err, utils.ErrTrackingNotFound) {
			utils.Error(c, 404, "TRACKING_NOT_FOUND", "Subscription not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update preferences")
		return
	}

	utils.Success(c, 200, "Preferences updated", gin.H{
		"subscription": sub,
	})
}

// GetTracked lists the user's tracked plans.
func (h *TrackingHandler) GetTracked(c *gin.Context) {
	userID := c.GetString("user_id")

	tracked, err := h.trackingService.GetTracked(userID)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get tracked plans")
		return
	}

	utils.Success(c, 200, "Tracked plans retrieved successfully", gin.H{
		"tracked": tracked,
	})
}
