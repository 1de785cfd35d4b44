package publisher

import (
	"bookit/pkg/config"
	"bookit/pkg/kafka"
	"bookit/pkg/logger"
	"bookit/pkg/model"
	"context"
	"time"
)

const (
	EventNotificationRequested = "notification.requested"
	SchemaVersion              = "1"
)

// Publisher is the subset of *kafka.Producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaNotifier turns lifecycle notifications into Kafka events keyed by the
// recipient, so one user's notifications stay ordered on one partition.
type KafkaNotifier struct {
	publisher Publisher
	source    string
	timeout   time.Duration
	log       *logger.Logger
}

func NewKafkaNotifier(publisher Publisher, source string, timeout time.Duration, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		source:    source,
		timeout:   timeout,
		log:       log,
	}
}

// SendNotification never fails the caller. Publish errors are logged and
// dropped. The publish outlives a cancelled request context.
func (n *KafkaNotifier) SendNotification(ctx context.Context, userID, title, message string, typ config.NotificationType) {
	log := n.log.FromContext(ctx)
	if userID == "" {
		log.Warn("Skipping notification without recipient", "title", title)
		return
	}

	msg, err := kafka.NewMessage().
		WithKey(userID).
		WithValue(model.Notification{
			UserID:  userID,
			Title:   title,
			Message: message,
			Type:    typ,
		}).
		WithEventType(EventNotificationRequested).
		WithSchemaVersion(SchemaVersion).
		WithSource(n.source).
		WithCorrelationID(logger.RequestIDFromContext(ctx)).
		Build()
	if err != nil {
		log.Error("Failed to build notification event", "user_id", userID, "error", err)
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.publisher.Publish(publishCtx, msg); err != nil {
		log.Error("Failed to publish notification",
			"user_id", userID,
			"title", title,
			"event_id", msg.GetEventID(),
			"error", err,
		)
	}
}
