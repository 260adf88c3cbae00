package models

import (
	"encoding/json"
	"time"
)

// NotificationChannel enumerates delivery channels.
type NotificationChannel string

const (
	ChannelTelegram NotificationChannel = "telegram"
	ChannelSlack    NotificationChannel = "slack"
	ChannelEmail    NotificationChannel = "email"
)

// NotificationStatus enumerates the delivery lifecycle.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSending NotificationStatus = "sending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is the delivery ledger for an alert. Pending rows form the
// retry queue consumed by the notification worker; dispatch itself never
// blocks on delivery.
type Notification struct {
	ID        string              `db:"id" json:"id"`
	UserID    string              `db:"user_id" json:"userId"`
	AlertID   *string             `db:"alert_id" json:"alertId,omitempty"`
	Channel   NotificationChannel `db:"channel" json:"channel"`
	Title     string              `db:"title" json:"title"`
	Message   string              `db:"message" json:"message"`
	Payload   json.RawMessage     `db:"payload" json:"payload,omitempty"`
	Status    NotificationStatus  `db:"status" json:"status"`
	Attempts  int                 `db:"attempts" json:"attempts"`
	LastError *string             `db:"last_error" json:"lastError,omitempty"`
	ClaimedAt *time.Time          `db:"claimed_at" json:"-"`
	SentAt    *time.Time          `db:"sent_at" json:"sentAt,omitempty"`
	CreatedAt time.Time           `db:"created_at" json:"createdAt"`
}
