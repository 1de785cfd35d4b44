package repository

import (
	"bookit/internal/audit"
	"bookit/pkg/model"
	"context"
)

type auditedNotificationRepository struct {
	NotificationRepository
	tracker audit.Auditable
}

func NewAuditedNotificationRepository(inner NotificationRepository, tracker audit.Auditable) NotificationRepository {
	return &auditedNotificationRepository{NotificationRepository: inner, tracker: tracker}
}

func (r *auditedNotificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	if err := r.NotificationRepository.Create(ctx, notification); err != nil {
		return err
	}
	r.tracker.RecordMutation(ctx, model.AuditCreate, nil, notification)
	return nil
}

func (r *auditedNotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	old, findErr := r.NotificationRepository.FindByID(ctx, id)

	if err := r.NotificationRepository.MarkRead(ctx, id, userID); err != nil {
		return err
	}

	if findErr != nil {
		r.tracker.RecordMutation(ctx, model.AuditUpdate, nil, &model.Notification{ID: id, UserID: userID, IsRead: true})
		return nil
	}
	updated := *old
	updated.IsRead = true
	r.tracker.RecordMutation(ctx, model.AuditUpdate, old, &updated)
	return nil
}
