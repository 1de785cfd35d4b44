package service

import (
	notificationserrors "bookit/internal/notifications/errors"
	"bookit/internal/notifications/repository"
	"bookit/pkg/config"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
	"bookit/pkg/sanitizer"
	"bookit/pkg/validation"
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

type NotificationService interface {
	// Deliver stores an in-app notification produced by a lifecycle event.
	Deliver(ctx context.Context, notification *model.Notification) error
	ListForUser(ctx context.Context, actor model.Actor, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, actor model.Actor, id string) error
}

type notificationService struct {
	repo     repository.NotificationRepository
	validate *validator.Validate
	cfg      *config.Config
}

func NewNotificationService(repo repository.NotificationRepository, cfg *config.Config) NotificationService {
	v, err := validation.New()
	if err != nil {
		cfg.Log.Fatal("Failed to initialize notification validator", "error", err)
	}

	return &notificationService{
		repo:     repo,
		validate: v,
		cfg:      cfg,
	}
}

func (s *notificationService) Deliver(ctx context.Context, notification *model.Notification) error {
	notification.ID = ""
	notification.IsRead = false
	notification.UserID = sanitizer.SanitizeID(notification.UserID)
	notification.Title = sanitizer.SanitizeTitle(notification.Title)
	notification.Message = sanitizer.SanitizeText(notification.Message)

	if err := validation.Struct(s.validate, notification); err != nil {
		s.cfg.Log.Warn("Notification validation failed", "user_id", notification.UserID, "error", err)
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Notification validation failed", verrs.Details())
		}
		return apperrors.Validation("Notification validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		s.cfg.Log.FromContext(ctx).Error("Failed to store notification", "user_id", notification.UserID, "error", err)
		return apperrors.Internal("Failed to store notification", err)
	}

	s.cfg.Log.FromContext(ctx).Info("Notification stored",
		"id", notification.ID,
		"user_id", notification.UserID,
		"type", notification.Type,
	)
	return nil
}

func (s *notificationService) ListForUser(ctx context.Context, actor model.Actor, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error) {
	if actor.UserID == "" {
		return nil, 0, apperrors.Unauthorized("Missing caller identity")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var notifications []*model.Notification
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByUser(ctx, actor.UserID, unreadOnly)
		if err != nil {
			s.cfg.Log.Error("Failed to count notifications", "user_id", actor.UserID, "error", err)
			errCount = apperrors.Internal("Failed to count notifications", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		notifications, err = s.repo.FindByUser(ctx, actor.UserID, unreadOnly, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list notifications", "user_id", actor.UserID, "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.Internal("Failed to retrieve notifications", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}
	return notifications, count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor model.Actor, id string) error {
	if actor.UserID == "" {
		return apperrors.Unauthorized("Missing caller identity")
	}

	id = sanitizer.SanitizeID(id)
	if id == "" {
		return apperrors.InvalidInput("Notification ID cannot be empty")
	}

	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, notificationserrors.ErrNotFound) || errors.Is(err, notificationserrors.ErrInvalidID) {
			return apperrors.NotFoundWithID("Notification", id)
		}
		s.cfg.Log.Error("Failed to mark notification read", "id", id, "user_id", actor.UserID, "error", err)
		return apperrors.Internal("Failed to update notification", err)
	}
	return nil
}
