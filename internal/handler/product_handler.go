package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/planwatch/planwatch_api/internal/service"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// ProductHandler handles catalog HTTP endpoints.
type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// GetProducts returns the product catalog with optional filters and
// pagination.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	category := c.Query("category")
	search := c.Query("search")

	page, limit := paginationParams(c, 1, 20)

	products, total, err := h.productService.GetProducts(c.Request.Context(), category, search, page, limit)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get products")
		return
	}

	utils.SuccessWithPagination(c, 200, "Products retrieved successfully", gin.H{
		"products": products,
	}, page, limit, total)
}

// GetProduct returns one product by slug with plans and price history.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	slug := c.Param("slug")

	historyLimit := 30
	if v := c.Query("historyLimit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			historyLimit = n
		}
	}

	detail, err := h.productService.GetProductDetail(c.Request.Context(), slug, historyLimit)
	if err != nil {
		if errors.Is(err, utils.ErrProductNotFound) {
			utils.Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get product")
		return
	}

	utils.Success(c, 200, "Product retrieved successfully", detail)
}

// GetPlanHistory returns recent price snapshots for a plan.
func (h *ProductHandler) GetPlanHistory(c *gin.Context) {
	planID := c.Param("planId")

	limit := 30
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			limit = n
		}
	}

	history, err := h.productService.GetPlanHistory(planID, limit)
	if err != nil {
		if errors.Is(err, utils.ErrPlanNotFound) {
			utils.Error(c, 404, "PLAN_NOT_FOUND", "Plan not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get plan history")
		return
	}

	utils.Success(c, 200, "History retrieved successfully", gin.H{
		"planId":  planID,
		"history": history,
	})
}

// paginationParams reads page/limit query params with defaults.
func paginationParams(c *gin.Context, defaultPage, defaultLimit int) (int, int) {
	page, limit := defaultPage, defaultLimit
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	return page, limit
}
