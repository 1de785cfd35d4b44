package consumer

import (
	"bookit/internal/notifications/publisher"
	"bookit/internal/notifications/service"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/kafka"
	"bookit/pkg/logger"
	"bookit/pkg/model"
	"context"
)

// NewHandler stores notification events. Malformed or invalid events are
// permanent failures and go to the DLQ; storage failures are retried.
func NewHandler(svc service.NotificationService, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if eventType := msg.GetEventType(); eventType != publisher.EventNotificationRequested {
			log.Warn("Ignoring unexpected event type", "event_type", eventType, "event_id", msg.GetEventID())
			return nil
		}

		ctx = logger.ContextWithRequestID(ctx, msg.GetCorrelationID())

		var notification model.Notification
		if err := msg.DecodeValue(&notification); err != nil {
			return err
		}

		err := svc.Deliver(ctx, &notification)
		switch {
		case err == nil:
			return nil
		case apperrors.HasCode(err, apperrors.CodeValidation):
			return kafka.NewPermanentError("invalid notification", err)
		default:
			return kafka.NewTransientError("store notification", err)
		}
	}
}
