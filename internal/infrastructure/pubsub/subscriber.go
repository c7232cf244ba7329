package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// Notification is the JSON payload Gmail publishes on every mailbox change.
type Notification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Subscriber receives Gmail push notifications one at a time.
type Subscriber struct {
	client         *pubsub.Client
	subscriptionID string
	lastHistoryID  uint64
	logger         *zap.Logger
}

// NewSubscriber connects to Pub/Sub for the given project and subscription.
func NewSubscriber(ctx context.Context, projectID, subscriptionID string, logger *zap.Logger) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &Subscriber{
		client:         client,
		subscriptionID: subscriptionID,
		logger:         logger,
	}, nil
}

// Listen blocks until ctx is done, calling handler for every new history ID.
// Messages are received with a single goroutine and one outstanding message,
// so handler never runs concurrently with itself.
func (s *Subscriber) Listen(ctx context.Context, handler func(historyID uint64)) error {
	sub := s.client.Subscription(s.subscriptionID)
	sub.ReceiveSettings.NumGoroutines = 1
	sub.ReceiveSettings.MaxOutstandingMessages = 1

	s.logger.Info("Pub/Sub listener started", zap.String("subscription", s.subscriptionID))

	return sub.Receive(ctx, func(_ context.Context, m *pubsub.Message) {
		defer m.Ack()

		notification, err := parseNotification(m.Data)
		if err != nil {
			s.logger.Warn("Parse notification error", zap.Error(err), zap.ByteString("raw", m.Data))
			return
		}

		if !s.accept(notification) {
			s.logger.Debug("Stale notification, skipping", zap.Uint64("history_id", notification.HistoryID))
			return
		}

		s.logger.Info("New notification",
			zap.String("email", notification.EmailAddress),
			zap.Uint64("history_id", notification.HistoryID),
		)
		handler(notification.HistoryID)
	})
}

// accept drops duplicate and out-of-order notifications. Gmail sends several
// notifications for the same history ID.
func (s *Subscriber) accept(n *Notification) bool {
	if n.HistoryID <= s.lastHistoryID {
		return false
	}
	s.lastHistoryID = n.HistoryID
	return true
}

func (s *Subscriber) Close() error {
	return s.client.Close()
}

func parseNotification(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}
	return &n, nil
}
