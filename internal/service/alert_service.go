package service

import (
	"database/sql"
	"errors"

	"github.com/planwatch/planwatch_api/internal/models"
	"github.com/planwatch/planwatch_api/internal/repository"
	"github.com/planwatch/planwatch_api/internal/utils"
)

// AlertService serves a user's alert inbox.
type AlertService struct {
	alerts *repository.AlertRepository
}

func NewAlertService(alerts *repository.AlertRepository) *AlertService {
	return &AlertService{alerts: alerts}
}

// GetAlerts returns the user's alerts, newest first.
func (s *AlertService) GetAlerts(userID string, unreadOnly bool, page, limit int) ([]models.PriceAlert, int, error) {
	return s.alerts.GetByUserPaged(userID, unreadOnly, page, limit)
}

// MarkRead marks one of the user's alerts as read.
func (s *AlertService) MarkRead(userID, alertID string) error {
	if err := s.alerts.MarkRead(alertID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrAlertNotFound
		}
		return err
	}
	return nil
}

// UnreadCount returns the user's unread alert count.
func (s *AlertService) UnreadCount(userID string) (int, error) {
	return s.alerts.UnreadCount(userID)
}
