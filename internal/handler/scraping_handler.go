package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/planwatch/planwatch_api/internal/service"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// ScrapingHandler exposes the extraction pipeline's admin controls.
type ScrapingHandler struct {
	scheduler *service.Scheduler
}

// NewScrapingHandler constructs a ScrapingHandler.
func NewScrapingHandler(scheduler *service.Scheduler) *ScrapingHandler {
	return &ScrapingHandler{scheduler: scheduler}
}

// Trigger starts an extraction run. With productSlug set, a single product
// is extracted synchronously; with runAll, a full cycle starts in the
// background.
func (h *ScrapingHandler) Trigger(c *gin.Context) {
	var req struct {
		ProductSlug string `json:"productSlug"`
		RunAll      bool   `json:"runAll"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.ProductSlug == "" && !req.RunAll {
		utils.Error(c, 400, "INVALID_REQUEST", "Either productSlug or runAll is required")
		return
	}

	if req.RunAll {
		if err := h.scheduler.TriggerFullCycle(c.Request.Context()); err != nil {
			if errors.Is(err, utils.ErrCycleAlreadyRunning) {
				utils.Error(c, 409, "CYCLE_ALREADY_RUNNING", "An extraction cycle is already in progress")
				return
			}
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to start extraction cycle")
			return
		}
		utils.Success(c, 202, "Extraction cycle started", nil)
		return
	}

	result, err := h.scheduler.TriggerProduct(c.Request.Context(), req.ProductSlug)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrProductNotFound):
			utils.Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found")
		case errors.Is(err, utils.ErrProductBusy):
			utils.Error(c, 409, "PRODUCT_EXTRACTION_IN_PROGRESS", "Product is already being extracted")
		default:
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to trigger extraction")
		}
		return
	}

	utils.Success(c, 200, "Extraction finished", result)
}

// GetStatus reports whether a cycle is currently running.
func (h *ScrapingHandler) GetStatus(c *gin.Context) {
	utils.Success(c, 200, "Status retrieved successfully", gin.H{
		"running": h.scheduler.IsRunning(),
	})
}
