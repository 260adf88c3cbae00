package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/planwatch/planwatch_api/internal/service"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// AlertHandler handles the user's alert inbox.
type AlertHandler struct {
	alertService *service.AlertService
}

// NewAlertHandler constructs an AlertHandler.
func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// GetAlerts returns the user's alerts, newest first.
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	userID := c.GetString("user_id")
	unreadOnly := c.Query("unread") == "true"
	page, limit := paginationParams(c, 1, 20)

	alerts, total, err := h.alertService.GetAlerts(userID, unreadOnly, page, limit)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get alerts")
		return
	}

	utils.SuccessWithPagination(c, 200, "Alerts retrieved successfully", gin.H{
		"alerts": alerts,
	}, page, limit, total)
}

// MarkRead marks one alert as read.
func (h *AlertHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("user_id")
	alertID := c.Param("id")

	if err := h.alertService.MarkRead(userID, alertID); err != nil {
		if errors.Is(err, utils.ErrAlertNotFound) {
			utils.Error(c, 404, "ALERT_NOT_FOUND", "Alert not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to mark alert read")
		return
	}

	utils.Success(c, 200, "Alert marked read", nil)
}

// GetUnreadCount returns the user's unread alert count.
func (h *AlertHandler) GetUnreadCount(c *gin.Context) {
	userID := c.GetString("user_id")

	count, err := h.alertService.UnreadCount(userID)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get unread count")
		return
	}

	utils.Success(c, 200, "Unread count retrieved successfully", gin.H{
		"count": count,
	})
}
