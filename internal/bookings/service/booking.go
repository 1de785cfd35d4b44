package service

import (
	"bookit/internal/audit"
	"bookit/internal/authz"
	bookingserrors "bookit/internal/bookings/errors"
	"bookit/internal/bookings/repository"
	"bookit/internal/bookings/validator"
	"bookit/internal/conflict"
	resourcerepo "bookit/internal/resources/repository"
	"bookit/pkg/config"
	mongotx "bookit/pkg/db/mongo"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
	"bookit/pkg/sanitizer"
	"bookit/pkg/validation"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// AvailabilityChecker reports whether a resource's weekly rules admit the
// window [start, end).
type AvailabilityChecker interface {
	Permits(ctx context.Context, resourceID string, start, end time.Time) (bool, error)
}

// Notifier delivers lifecycle events to users. Implementations are
// fire-and-forget and never report failures to the caller.
type Notifier interface {
	SendNotification(ctx context.Context, userID, title, message string, typ config.NotificationType)
}

// SearchQuery selects the bookings of one resource, optionally restricted to
// those overlapping [From, To) and to a single status.
type SearchQuery struct {
	ResourceID string
	From       *time.Time
	To         *time.Time
	Status     config.BookingStatus
}

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	GetAll(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	Search(ctx context.Context, actor model.Actor, query SearchQuery, limit int, offset int64) ([]*model.Booking, int64, error)
	Approve(ctx context.Context, actor model.Actor, id string) (*model.BookingDecision, error)
	Reject(ctx context.Context, actor model.Actor, id string, req *model.RejectRequest) (*model.BookingDecision, error)
	Cancel(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
}

type bookingService struct {
	repo         repository.BookingRepository
	approvals    repository.ApprovalRepository
	locks        mongotx.LockRepository
	resources    resourcerepo.ResourceLookup
	detector     *conflict.Detector
	availability AvailabilityChecker
	notifier     Notifier
	recorder     *audit.Recorder
	authorizer   *authz.Authorizer
	validator    *validator.BookingValidator
	cfg          *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	approvals repository.ApprovalRepository,
	locks mongotx.LockRepository,
	resources resourcerepo.ResourceLookup,
	detector *conflict.Detector,
	availability AvailabilityChecker,
	notifier Notifier,
	recorder *audit.Recorder,
	authorizer *authz.Authorizer,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:         repo,
		approvals:    approvals,
		locks:        locks,
		resources:    resources,
		detector:     detector,
		availability: availability,
		notifier:     notifier,
		recorder:     recorder,
		authorizer:   authorizer,
		validator:    validator,
		cfg:          cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error) {
	if err := s.authorizer.RequireRole(actor, authz.CreateBooking); err != nil {
		return nil, err
	}

	s.sanitize(req)
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "user_id", actor.UserID, "error", err)
		return nil, validationError("Booking validation failed", err)
	}

	resource, err := s.findResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CheckOwnership(actor, authz.CreateBooking, authz.ResourceSubject(resource)); err != nil {
		return nil, err
	}

	if resource.Capacity > 0 && req.AttendeesCount != nil && *req.AttendeesCount > resource.Capacity {
		return nil, apperrors.Validation(
			fmt.Sprintf("Attendees count (%d) exceeds resource capacity (%d)", *req.AttendeesCount, resource.Capacity),
			map[string]any{"attendees_count": *req.AttendeesCount, "capacity": resource.Capacity},
		)
	}

	if err := s.checkAvailability(ctx, req); err != nil {
		return nil, err
	}

	booking := s.newBooking(actor, resource, req)

	txCtx, batch := s.recorder.Defer(ctx)
	err = s.repo.ExecuteTransaction(txCtx, func(sessCtx mongo.SessionContext) error {
		batch.Reset()
		booking.ID = ""

		if err := s.locks.Touch(sessCtx, mongotx.BookingLockKey(booking.ResourceID)); err != nil {
			return apperrors.Internal("Failed to lock resource", err)
		}

		clash, err := s.detector.HasConflict(sessCtx, booking.ResourceID, booking.StartTime, booking.EndTime, "", s.createBlocking())
		if err != nil {
			return apperrors.Internal("Failed to check existing bookings", err)
		}
		if clash {
			return apperrors.Conflict("Requested time overlaps an existing booking for this resource").
				WithDetails(map[string]any{
					"resource_id": booking.ResourceID,
					"start_time":  booking.StartTime.Format(time.RFC3339),
					"end_time":    booking.EndTime.Format(time.RFC3339),
				})
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.logTxError("Failed to create booking", err, "resource_id", booking.ResourceID, "user_id", actor.UserID)
		return nil, asAppError("Failed to create booking", err)
	}
	batch.Flush(ctx)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"resource_id", booking.ResourceID,
		"user_id", booking.UserID,
		"status", booking.Status,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)

	if booking.Status == config.Approved {
		s.notify(ctx, booking.UserID, "Booking confirmed",
			fmt.Sprintf("Your booking %q was confirmed.", booking.Title), config.NotificationSuccess)
	} else {
		s.notify(ctx, booking.UserID, "Booking submitted",
			fmt.Sprintf("Your booking %q is awaiting approval.", booking.Title), config.NotificationInfo)
	}

	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	if err := s.authorizer.RequireRole(actor, authz.ViewBooking); err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CheckOwnership(actor, authz.ViewBooking, authz.BookingSubject(booking)); err != nil {
		return nil, err
	}
	return booking, nil
}

// GetAll lists the bookings visible to actor: super admins see every
// booking, organization admins their organization's, users their own.
func (s *bookingService) GetAll(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	if err := s.authorizer.RequireRole(actor, authz.ListBookings); err != nil {
		return nil, 0, err
	}

	var filter repository.Filter
	switch {
	case actor.Role.AtLeast(config.RoleSuperAdmin):
	case actor.Role.AtLeast(config.RoleOrgAdmin):
		filter.OrganizationID = actor.OrganizationID
	default:
		filter.UserID = actor.UserID
	}

	return s.list(ctx, filter, limit, offset)
}

func (s *bookingService) Search(ctx context.Context, actor model.Actor, query SearchQuery, limit int, offset int64) ([]*model.Booking, int64, error) {
	if err := s.authorizer.RequireRole(actor, authz.SearchBookings); err != nil {
		return nil, 0, err
	}

	query.ResourceID = sanitizer.SanitizeID(query.ResourceID)
	if query.ResourceID == "" {
		return nil, 0, apperrors.InvalidInput("resource_id is required")
	}
	if query.From != nil && query.To != nil && !query.To.After(*query.From) {
		return nil, 0, apperrors.Validation("to must be after from", nil)
	}
	if query.Status != "" && !model.ValidBookingStatus(query.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status: %s", query.Status))
	}

	resource, err := s.findResource(ctx, query.ResourceID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.authorizer.CheckOwnership(actor, authz.SearchBookings, authz.ResourceSubject(resource)); err != nil {
		return nil, 0, err
	}

	filter := repository.Filter{
		ResourceID: query.ResourceID,
		From:       query.From,
		To:         query.To,
	}
	if query.Status != "" {
		filter.Statuses = []config.BookingStatus{query.Status}
	}

	return s.list(ctx, filter, limit, offset)
}

func (s *bookingService) Approve(ctx context.Context, actor model.Actor, id string) (*model.BookingDecision, error) {
	if err := s.authorizer.RequireRole(actor, authz.ApproveBooking); err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CheckOwnership(actor, authz.ApproveBooking, authz.BookingSubject(booking)); err != nil {
		return nil, err
	}
	if err := requireTransition(booking, config.Approved); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	var approval *model.BookingApproval
	txCtx, batch := s.recorder.Defer(ctx)
	err = s.repo.ExecuteTransaction(txCtx, func(sessCtx mongo.SessionContext) error {
		batch.Reset()

		if err := s.locks.Touch(sessCtx, mongotx.BookingLockKey(booking.ResourceID)); err != nil {
			return apperrors.Internal("Failed to lock resource", err)
		}

		current, err := s.repo.FindByID(sessCtx, booking.ID)
		if err != nil {
			return apperrors.Internal("Failed to reload booking", err)
		}
		if err := requireTransition(current, config.Approved); err != nil {
			return err
		}

		clash, err := s.detector.HasConflict(sessCtx, booking.ResourceID, booking.StartTime, booking.EndTime, booking.ID, conflict.ApproveBlocking)
		if err != nil {
			return apperrors.Internal("Failed to check existing bookings", err)
		}
		if clash {
			return apperrors.Conflict("An approved booking already occupies this time slot").
				WithDetails(map[string]any{"booking_id": booking.ID, "resource_id": booking.ResourceID})
		}

		if err := s.transition(sessCtx, booking.ID, config.Pending, config.Approved, now); err != nil {
			return err
		}

		approval = &model.BookingApproval{
			BookingID:  booking.ID,
			Status:     config.ApprovalApproved,
			ApproverID: actor.UserID,
			ApprovedAt: now,
		}
		if err := s.approvals.Upsert(sessCtx, approval); err != nil {
			return apperrors.Internal("Failed to record approval", err)
		}
		return nil
	})
	if err != nil {
		s.logTxError("Failed to approve booking", err, "id", booking.ID, "approver_id", actor.UserID)
		return nil, asAppError("Failed to approve booking", err)
	}
	batch.Flush(ctx)

	booking.Status = config.Approved
	booking.UpdatedAt = now

	s.cfg.Log.Info("Booking approved", "id", booking.ID, "resource_id", booking.ResourceID, "approver_id", actor.UserID)
	s.notify(ctx, booking.UserID, "Booking approved",
		fmt.Sprintf("Your booking %q was approved.", booking.Title), config.NotificationSuccess)

	return &model.BookingDecision{Booking: booking, Approval: approval}, nil
}

func (s *bookingService) Reject(ctx context.Context, actor model.Actor, id string, req *model.RejectRequest) (*model.BookingDecision, error) {
	if err := s.authorizer.RequireRole(actor, authz.RejectBooking); err != nil {
		return nil, err
	}

	req.Reason = sanitizer.SanitizeText(req.Reason)
	if err := s.validator.ValidateReject(req, s.cfg.MinRejectReasonLength); err != nil {
		s.cfg.Log.Warn("Reject reason validation failed", "id", id, "error", err)
		return nil, validationError("Reject reason is invalid", err)
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CheckOwnership(actor, authz.RejectBooking, authz.BookingSubject(booking)); err != nil {
		return nil, err
	}
	if err := requireTransition(booking, config.Rejected); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	var approval *model.BookingApproval
	txCtx, batch := s.recorder.Defer(ctx)
	err = s.repo.ExecuteTransaction(txCtx, func(sessCtx mongo.SessionContext) error {
		batch.Reset()

		if err := s.transition(sessCtx, booking.ID, config.Pending, config.Rejected, now); err != nil {
			return err
		}

		approval = &model.BookingApproval{
			BookingID:  booking.ID,
			Status:     config.ApprovalRejected,
			ApproverID: actor.UserID,
			Comments:   req.Reason,
			ApprovedAt: now,
		}
		if err := s.approvals.Upsert(sessCtx, approval); err != nil {
			return apperrors.Internal("Failed to record rejection", err)
		}
		return nil
	})
	if err != nil {
		s.logTxError("Failed to reject booking", err, "id", booking.ID, "approver_id", actor.UserID)
		return nil, asAppError("Failed to reject booking", err)
	}
	batch.Flush(ctx)

	booking.Status = config.Rejected
	booking.UpdatedAt = now

	s.cfg.Log.Info("Booking rejected", "id", booking.ID, "approver_id", actor.UserID)
	s.notify(ctx, booking.UserID, "Booking rejected",
		fmt.Sprintf("Your booking %q was rejected: %s", booking.Title, req.Reason), config.NotificationWarning)

	return &model.BookingDecision{Booking: booking, Approval: approval}, nil
}

// Cancel needs no transaction: the conditional status update alone decides
// a race with a concurrent approve or reject.
func (s *bookingService) Cancel(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	if err := s.authorizer.RequireRole(actor, authz.CancelBooking); err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CheckOwnership(actor, authz.CancelBooking, authz.BookingSubject(booking)); err != nil {
		return nil, err
	}
	if err := requireTransition(booking, config.Cancelled); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := s.transition(ctx, booking.ID, config.Pending, config.Cancelled, now); err != nil {
		s.logTxError("Failed to cancel booking", err, "id", booking.ID, "user_id", actor.UserID)
		return nil, err
	}

	booking.Status = config.Cancelled
	booking.UpdatedAt = now

	s.cfg.Log.Info("Booking cancelled", "id", booking.ID, "cancelled_by", actor.UserID)
	if actor.UserID != booking.UserID {
		s.notify(ctx, booking.UserID, "Booking cancelled",
			fmt.Sprintf("Your booking %q was cancelled by an administrator.", booking.Title), config.NotificationWarning)
	}

	return booking, nil
}

// --- Helpers ---

func (s *bookingService) sanitize(req *model.BookingRequest) {
	req.ResourceID = sanitizer.SanitizeID(req.ResourceID)
	req.Title = sanitizer.SanitizeTitle(req.Title)
	req.Purpose = sanitizer.SanitizeText(req.Purpose)
}

func (s *bookingService) newBooking(actor model.Actor, resource *model.Resource, req *model.BookingRequest) *model.Booking {
	status := config.Approved
	if resource.RequiresApproval {
		status = config.Pending
	}

	priority := req.Priority
	if priority == nil {
		p := s.cfg.DefaultBookingPriority
		priority = &p
	}

	return &model.Booking{
		ResourceID:     resource.ID,
		UserID:         actor.UserID,
		OrganizationID: resource.OrganizationID,
		Title:          req.Title,
		Purpose:        req.Purpose,
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		AttendeesCount: req.AttendeesCount,
		Priority:       priority,
		Status:         status,
	}
}

func (s *bookingService) createBlocking() []config.BookingStatus {
	if s.cfg.CreateBlocksPending {
		return conflict.CreateBlocking
	}
	return conflict.ApproveBlocking
}

func (s *bookingService) checkAvailability(ctx context.Context, req *model.BookingRequest) error {
	if !s.cfg.EnforceAvailability || s.availability == nil {
		return nil
	}

	ok, err := s.availability.Permits(ctx, req.ResourceID, req.StartTime, req.EndTime)
	if err != nil {
		s.cfg.Log.Error("Failed to evaluate availability rules", "resource_id", req.ResourceID, "error", err)
		return apperrors.Internal("Failed to evaluate resource availability", err)
	}
	if !ok {
		return apperrors.Validation("Requested time is outside the resource availability", map[string]any{
			"resource_id": req.ResourceID,
			"start_time":  req.StartTime.Format(time.RFC3339),
			"end_time":    req.EndTime.Format(time.RFC3339),
		})
	}
	return nil
}

func (s *bookingService) findResource(ctx context.Context, id string) (*model.Resource, error) {
	resource, err := s.resources.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, resourcerepo.ErrNotFound) || errors.Is(err, resourcerepo.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Resource", id)
		}
		s.cfg.Log.Error("Failed to look up resource", "resource_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve resource", err)
	}
	if !resource.IsActive {
		return nil, apperrors.NotFoundWithID("Resource", id)
	}
	return resource, nil
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) transition(ctx context.Context, id string, from, to config.BookingStatus, at time.Time) error {
	err := s.repo.UpdateStatus(ctx, &model.BookingStatusChange{
		BookingID: id,
		From:      from,
		To:        to,
		UpdatedAt: at,
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return apperrors.InvalidState("Booking is no longer pending", map[string]any{"id": id})
		}
		return apperrors.Internal("Failed to update booking status", err)
	}
	return nil
}

func (s *bookingService) list(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByFilter(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "filter", fmt.Sprintf("%+v", filter), "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindByFilter(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings",
				"filter", fmt.Sprintf("%+v", filter),
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	return bookings, count, nil
}

func (s *bookingService) notify(ctx context.Context, userID, title, message string, typ config.NotificationType) {
	if s.notifier == nil || userID == "" {
		return
	}
	s.notifier.SendNotification(ctx, userID, title, message, typ)
}

// logTxError logs expected business outcomes at Warn and everything else at
// Error.
func (s *bookingService) logTxError(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if apperrors.HasCode(err, apperrors.CodeInternal) || !apperrors.IsAppError(err) {
		s.cfg.Log.Error(msg, args...)
		return
	}
	s.cfg.Log.Warn(msg, args...)
}

func requireTransition(booking *model.Booking, to config.BookingStatus) error {
	if model.CanTransition(booking.Status, to) {
		return nil
	}
	return apperrors.InvalidState(
		fmt.Sprintf("Booking cannot move from %s to %s", booking.Status, to),
		map[string]any{"id": booking.ID, "status": string(booking.Status)},
	)
}

func validationError(message string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func asAppError(message string, err error) error {
	if apperrors.IsAppError(err) {
		return apperrors.AsAppError(err)
	}
	return apperrors.Internal(message, err)
}
