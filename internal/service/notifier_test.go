package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwatch/planwatch_api/internal/models"
)

type memLedger struct {
	mu      sync.Mutex
	rows    []models.Notification
	sent    []string
	failed  map[string]string
	pending []models.Notification
	claimed map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		failed:  make(map[string]string),
		claimed: make(map[string]bool),
	}
}

func (l *memLedger) Insert(n *models.Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n.ID == "" {
		n.ID = "notif-" + string(n.Channel)
	}
	l.rows = append(l.rows, *n)
	return nil
}

func (l *memLedger) Claim(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed[id] {
		return false, nil
	}
	l.claimed[id] = true
	return true, nil
}

func (l *memLedger) GetPendingForDelivery(limit, maxAttempts int) ([]models.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Notification
	for _, row := range l.pending {
		if !l.claimed[row.ID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (l *memLedger) MarkSent(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, id)
	return nil
}

func (l *memLedger) MarkAttemptFailed(id, reason string, maxAttempts int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed[id] = reason
	delete(l.claimed, id)
	return nil
}

type stubSink struct {
	channel models.NotificationChannel
	err     error
	sent    []string
}

func (s *stubSink) Channel() models.NotificationChannel { return s.channel }

func (s *stubSink) Send(ctx context.Context, userID, title, message string, payload map[string]any) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, title)
	return nil
}

func pendingRow(id string, channel models.NotificationChannel) models.Notification {
	return models.Notification{
		ID:      id,
		UserID:  "u1",
		Channel: channel,
		Title:   "Price Increase Alert: Slack",
		Message: "went up",
		Status:  models.NotificationPending,
	}
}

func TestDeliverPendingSendsAndMarks(t *testing.T) {
	ledger := newMemLedger()
	ledger.pending = []models.Notification{pendingRow("n1", models.ChannelSlack)}
	sink := &stubSink{channel: models.ChannelSlack}

	n := NewNotifier(ledger, []NotificationSink{sink}, 5)
	n.DeliverPending(context.Background(), 50)

	assert.Equal(t, []string{"n1"}, ledger.sent)
	assert.Empty(t, ledger.failed)
	assert.Equal(t, []string{"Price Increase Alert: Slack"}, sink.sent)
}

func TestDeliverPendingRecordsFailure(t *testing.T) {
	ledger := newMemLedger()
	ledger.pending = []models.Notification{pendingRow("n1", models.ChannelSlack)}
	sink := &stubSink{channel: models.ChannelSlack, err: errors.New("webhook returned status 500")}

	n := NewNotifier(ledger, []NotificationSink{sink}, 5)
	n.DeliverPending(context.Background(), 50)

	assert.Empty(t, ledger.sent)
	assert.Equal(t, "webhook returned status 500", ledger.failed["n1"])
}

func TestDeliverPendingUnconfiguredChannel(t *testing.T) {
	ledger := newMemLedger()
	ledger.pending = []models.Notification{pendingRow("n1", models.ChannelTelegram)}

	// Only slack is configured; the telegram row fails its attempt.
	n := NewNotifier(ledger, []NotificationSink{&stubSink{channel: models.ChannelSlack}}, 5)
	n.DeliverPending(context.Background(), 50)

	assert.Equal(t, "no sink configured for channel", ledger.failed["n1"])
}

func TestDeliverPendingSkipsClaimedRow(t *testing.T) {
	ledger := newMemLedger()
	ledger.pending = []models.Notification{pendingRow("n1", models.ChannelSlack)}
	sink := &stubSink{channel: models.ChannelSlack}

	// An immediate post-enqueue attempt owns the row.
	claimed, err := ledger.Claim("n1")
	require.NoError(t, err)
	require.True(t, claimed)

	n := NewNotifier(ledger, []NotificationSink{sink}, 5)
	n.DeliverPending(context.Background(), 50)

	assert.Empty(t, sink.sent)
	assert.Empty(t, ledger.sent)
	assert.Empty(t, ledger.failed)
}

func TestClaimIsExclusivePerRow(t *testing.T) {
	ledger := newMemLedger()
	ledger.pending = []models.Notification{pendingRow("n1", models.ChannelSlack)}
	sink := &stubSink{channel: models.ChannelSlack}
	n := NewNotifier(ledger, []NotificationSink{sink}, 5)

	// Two deliveries race for the same row; only the claim winner sends.
	row := ledger.pending[0]
	n.attempt(context.Background(), &row, sink, nil)
	n.attempt(context.Background(), &row, sink, nil)

	assert.Equal(t, []string{"Price Increase Alert: Slack"}, sink.sent)
	assert.Equal(t, []string{"n1"}, ledger.sent)
}

func TestEnqueueAlertCreatesRowPerSink(t *testing.T) {
	ledger := newMemLedger()
	sinks := []NotificationSink{
		&stubSink{channel: models.ChannelSlack},
		&stubSink{channel: models.ChannelEmail},
	}
	n := NewNotifier(ledger, sinks, 5)

	alert := &models.PriceAlert{ID: "a1", UserID: "u1", PlanID: "plan-1", Kind: models.AlertPriceIncrease, Title: "t", Message: "m"}
	n.EnqueueAlert(context.Background(), alert, "Slack", "Pro")

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	require.Len(t, ledger.rows, 2)
	assert.Equal(t, models.ChannelSlack, ledger.rows[0].Channel)
	assert.Equal(t, models.ChannelEmail, ledger.rows[1].Channel)
	for _, row := range ledger.rows {
		assert.Equal(t, models.NotificationPending, row.Status)
		require.NotNil(t, row.AlertID)
		assert.Equal(t, "a1", *row.AlertID)
	}
}
