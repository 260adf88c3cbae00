package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken        = errors.New("INVALID_TOKEN")
	ErrInvalidCredentials  = errors.New("INVALID_CREDENTIALS")
	ErrProductNotFound     = errors.New("PRODUCT_NOT_FOUND")
	ErrPlanNotFound        = errors.New("PLAN_NOT_FOUND")
	ErrAlreadyTracked      = errors.New("ALREADY_TRACKED")
	ErrTrackingNotFound    = errors.New("TRACKING_NOT_FOUND")
	ErrAlertNotFound       = errors.New("ALERT_NOT_FOUND")
	ErrCycleAlreadyRunning = errors.New("CYCLE_ALREADY_RUNNING")
	ErrProductBusy         = errors.New("PRODUCT_EXTRACTION_IN_PROGRESS")
)
