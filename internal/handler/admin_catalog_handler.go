package handler

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/planwatch/planwatch_api/internal/models"
	"github.com/planwatch/planwatch_api/internal/repository"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// AdminCatalogHandler manages products and plans. Prices never flow through
// here; they belong to the extraction pipeline.
type AdminCatalogHandler struct {
	products *repository.ProductRepository
	plans    *repository.PlanRepository
}

// NewAdminCatalogHandler constructs an AdminCatalogHandler.
func NewAdminCatalogHandler(products *repository.ProductRepository, plans *repository.PlanRepository) *AdminCatalogHandler {
	return &AdminCatalogHandler{products: products, plans: plans}
}

type productRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	WebsiteURL  string `json:"websiteUrl"`
	SourceURL   string `json:"sourceUrl" binding:"required,url"`
	Category    string `json:"category" binding:"required"`
	LogoURL     string `json:"logoUrl"`
	IsActive    *bool  `json:"isActive"`
}

// CreateProduct registers a new product for tracking. The product starts in
// extraction_status pending and is picked up on the next cycle.
func (h *AdminCatalogHandler) CreateProduct(c *gin.Context) {
	var req struct {
		Slug string `json:"slug" binding:"required"`
		productRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	product := &models.Product{
		Slug:        strings.ToLower(strings.TrimSpace(req.Slug)),
		Name:        req.Name,
		Description: req.Description,
		WebsiteURL:  req.WebsiteURL,
		SourceURL:   req.SourceURL,
		Category:    req.Category,
		LogoURL:     req.LogoURL,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.products.Create(product); err != nil {
		utils.Error(c, 409, "PRODUCT_CREATE_FAILED", "Failed to create product")
		return
	}

	utils.Success(c, 201, "Product created", gin.H{"product": product})
}

// UpdateProduct modifies a product's administrative fields.
func (h *AdminCatalogHandler) UpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	product, err := h.products.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get product")
		return
	}

	product.Name = req.Name
	product.Description = req.Description
	product.WebsiteURL = req.WebsiteURL
	product.SourceURL = req.SourceURL
	product.Category = req.Category
	product.LogoURL = req.LogoURL
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.products.Update(product); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update product")
		return
	}

	utils.Success(c, 200, "Product updated", gin.H{"product": product})
}

type planRequest struct {
	Name         string              `json:"name" binding:"required"`
	Description  string              `json:"description"`
	Currency     string              `json:"currency"`
	BillingCycle models.BillingCycle `json:"billingCycle"`
	Features     []string            `json:"features"`
	HasFreeTier  bool                `json:"hasFreeTier"`
	IsActive     *bool               `json:"isActive"`
}

// CreatePlan adds a pricing tier to a product. The plan has no price until
// the pipeline observes one.
func (h *AdminCatalogHandler) CreatePlan(c *gin.Context) {
	var req struct {
		ProductID string `json:"productId" binding:"required"`
		Slug      string `json:"slug"`
		planRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if _, err := h.products.GetByID(req.ProductID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get product")
		return
	}

	plan := &models.Plan{
		ProductID:    req.ProductID,
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		Currency:     req.Currency,
		BillingCycle: req.BillingCycle,
		Features:     models.FeatureList(req.Features),
		HasFreeTier:  req.HasFreeTier,
		IsActive:     true,
	}
	if plan.Slug == "" {
		plan.Slug = utils.Slugify(req.Name)
	}
	if plan.Currency == "" {
		plan.Currency = "USD"
	}
	if plan.BillingCycle == "" {
		plan.BillingCycle = models.BillingMonthly
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := h.plans.Create(plan); err != nil {
		utils.Error(c, 409, "PLAN_CREATE_FAILED", "Failed to create plan")
		return
	}

	utils.Success(c, 201, "Plan created", gin.H{"plan": plan})
}

// UpdatePlan modifies a plan's administrative fields.
func (h *AdminCatalogHandler) UpdatePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	plan, err := h.plans.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.Error(c, 404, "PLAN_NOT_FOUND", "Plan not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get plan")
		return
	}

	plan.Name = req.Name
	plan.Description = req.Description
	if req.Currency != "" {
		plan.Currency = req.Currency
	}
	if req.BillingCycle != "" {
		plan.BillingCycle = req.BillingCycle
	}
	plan.HasFreeTier = req.HasFreeTier
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := h.plans.Update(plan); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update plan")
		return
	}

	utils.Success(c, 200, "Plan updated", gin.H{"plan": plan})
}
