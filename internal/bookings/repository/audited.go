package repository

import (
	"bookit/internal/audit"
	bookingserrors "bookit/internal/bookings/errors"
	"bookit/pkg/model"
	"context"
	"errors"
)

type auditedBookingRepository struct {
	BookingRepository
	tracker audit.Auditable
}

// NewAuditedBookingRepository records every successful write of inner.
// Reads pass through untouched.
func NewAuditedBookingRepository(inner BookingRepository, tracker audit.Auditable) BookingRepository {
	return &auditedBookingRepository{BookingRepository: inner, tracker: tracker}
}

func (r *auditedBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if err := r.BookingRepository.Create(ctx, booking); err != nil {
		return err
	}
	r.tracker.RecordMutation(ctx, model.AuditCreate, nil, booking)
	return nil
}

func (r *auditedBookingRepository) UpdateStatus(ctx context.Context, change *model.BookingStatusChange) error {
	var oldState audit.Snapshot
	if old, err := r.BookingRepository.FindByID(ctx, change.BookingID); err == nil {
		oldState = old
	}

	if err := r.BookingRepository.UpdateStatus(ctx, change); err != nil {
		return err
	}
	r.tracker.RecordMutation(ctx, model.AuditUpdate, oldState, change)
	return nil
}

type auditedApprovalRepository struct {
	ApprovalRepository
	tracker audit.Auditable
}

func NewAuditedApprovalRepository(inner ApprovalRepository, tracker audit.Auditable) ApprovalRepository {
	return &auditedApprovalRepository{ApprovalRepository: inner, tracker: tracker}
}

// Upsert is recorded as CREATE when the booking had no decision yet and as
// UPDATE otherwise.
func (r *auditedApprovalRepository) Upsert(ctx context.Context, approval *model.BookingApproval) error {
	action := model.AuditCreate
	var oldState audit.Snapshot

	old, err := r.ApprovalRepository.FindByBookingID(ctx, approval.BookingID)
	switch {
	case err == nil:
		action = model.AuditUpdate
		oldState = old
	case !errors.Is(err, bookingserrors.ErrApprovalNotFound):
		action = model.AuditUpdate
	}

	if err := r.ApprovalRepository.Upsert(ctx, approval); err != nil {
		return err
	}
	r.tracker.RecordMutation(ctx, action, oldState, approval)
	return nil
}
