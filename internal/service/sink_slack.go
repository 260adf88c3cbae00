package service

import (
	"context"

	"github.com/planwatch/planwatch_api/internal/models"
	"github.com/planwatch/planwatch_api/pkg/slackhook"
)

// SlackSink posts alert messages to a Slack incoming webhook.
type SlackSink struct {
	client *slackhook.Client
}

func NewSlackSink(webhookURL string) *SlackSink {
	return &SlackSink{client: slackhook.NewClient(webhookURL)}
}

func (s *SlackSink) Channel() models.NotificationChannel {
	return models.ChannelSlack
}

func (s *SlackSink) Send(ctx context.Context, userID, title, message string, payload map[string]any) error {
	return s.client.PostAlert(ctx, title, message)
}
