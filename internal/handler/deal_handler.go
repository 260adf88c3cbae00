package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/planwatch/planwatch_api/internal/repository"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// DealHandler serves active deal listings.
type DealHandler struct {
	deals *repository.DealRepository
}

// NewDealHandler constructs a DealHandler.
func NewDealHandler(deals *repository.DealRepository) *DealHandler {
	return &DealHandler{deals: deals}
}

// GetDeals returns unexpired deals, newest first.
func (h *DealHandler) GetDeals(c *gin.Context) {
	page, limit := paginationParams(c, 1, 20)

	deals, total, err := h.deals.GetActivePaged(page, limit)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get deals")
		return
	}

	utils.SuccessWithPagination(c, 200, "Deals retrieved successfully", gin.H{
		"deals": deals,
	}, page, limit, total)
}
