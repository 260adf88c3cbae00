package service

import (
	"context"
	"fmt"

	"github.com/planwatch/planwatch_api/internal/models"
	"github.com/planwatch/planwatch_api/pkg/mailer"
)

// EmailRecipientLookup resolves a user ID to the address mail should go to.
type EmailRecipientLookup interface {
	GetByID(id string) (*models.User, error)
}

// EmailSink delivers alert messages to the subscriber's email address.
type EmailSink struct {
	mailer *mailer.Mailer
	users  EmailRecipientLookup
}

func NewEmailSink(m *mailer.Mailer, users EmailRecipientLookup) *EmailSink {
	return &EmailSink{mailer: m, users: users}
}

func (s *EmailSink) Channel() models.NotificationChannel {
	return models.ChannelEmail
}

func (s *EmailSink) Send(ctx context.Context, userID, title, message string, payload map[string]any) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient %s: %w", userID, err)
	}
	return s.mailer.Send(user.Email, title, message)
}
