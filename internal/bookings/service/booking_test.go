package service

import (
	"bookit/pkg/config"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/middleware"
	"bookit/pkg/model"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func ctxFor(actor model.Actor) context.Context {
	return middleware.ContextWithActor(context.Background(), actor)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

// ────────────────────────────────────────────────
// Lifecycle scenarios
// ────────────────────────────────────────────────

func TestCreateThenApprove_RequiresApproval(t *testing.T) {
	h := newHarness(t)

	booking, err := h.service.Create(ctxFor(member), member, request(resourceRequiresApproval, at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != config.Pending {
		t.Fatalf("expected PENDING, got %s", booking.Status)
	}
	if booking.OrganizationID != "org-1" || booking.UserID != member.UserID {
		t.Errorf("booking not attributed to requester: %+v", booking)
	}

	approved, err := h.service.Approve(ctxFor(orgAdmin), orgAdmin, booking.ID)
	if err != nil {
		t.Fatalf("unexpected approve error: %v", err)
	}
	if approved.Booking.Status != config.Approved {
		t.Errorf("expected APPROVED, got %s", approved.Booking.Status)
	}
	if approved.Approval == nil {
		t.Fatal("expected the approval record in the result")
	}
	if approved.Approval.Status != config.ApprovalApproved || approved.Approval.ApproverID != orgAdmin.UserID {
		t.Errorf("unexpected approval in result: %+v", approved.Approval)
	}
	if approved.Approval.ApprovedAt.IsZero() || !approved.Approval.ApprovedAt.Equal(approved.Booking.UpdatedAt) {
		t.Errorf("approved_at %v must match the booking update %v", approved.Approval.ApprovedAt, approved.Booking.UpdatedAt)
	}
	if got := h.bookings.status(booking.ID); got != config.Approved {
		t.Errorf("stored status = %s, want APPROVED", got)
	}

	approval, err := h.approvals.FindByBookingID(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("expected approval record: %v", err)
	}
	if approval.Status != config.ApprovalApproved || approval.ApproverID != orgAdmin.UserID {
		t.Errorf("unexpected approval: %+v", approval)
	}
	if approval.ApprovedAt.IsZero() {
		t.Error("approved_at must be set")
	}

	last := h.notifier.sent[len(h.notifier.sent)-1]
	if last.UserID != member.UserID || last.Title != "Booking approved" || last.Type != config.NotificationSuccess {
		t.Errorf("unexpected notification: %+v", last)
	}

	want := []string{"Booking:CREATE", "Booking:UPDATE", "BookingApproval:CREATE"}
	if got := h.audit.actions(); !reflect.DeepEqual(got, want) {
		t.Errorf("audit trail = %v, want %v", got, want)
	}
	for _, e := range h.audit.entries {
		if e.EntityID != booking.ID {
			t.Errorf("audit entry %s:%s has entity id %q, want %q", e.Entity, e.Action, e.EntityID, booking.ID)
		}
	}
	if h.audit.entries[1].UserID != orgAdmin.UserID {
		t.Errorf("approval audit actor = %q, want %q", h.audit.entries[1].UserID, orgAdmin.UserID)
	}
}

func TestApprove_FirstApprovedWins(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.CreateBlocksPending = false })

	first, err := h.service.Create(ctxFor(member), member, request(resourceRequiresApproval, at(9, 30), at(10, 30)))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := h.service.Create(ctxFor(otherMember), otherMember, request(resourceRequiresApproval, at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.Status != config.Pending || second.Status != config.Pending {
		t.Fatalf("expected both PENDING, got %s and %s", first.Status, second.Status)
	}

	if _, err := h.service.Approve(ctxFor(orgAdmin), orgAdmin, first.ID); err != nil {
		t.Fatalf("approve first: %v", err)
	}

	auditBefore := len(h.audit.actions())
	_, err = h.service.Approve(ctxFor(orgAdmin), orgAdmin, second.ID)
	assertCode(t, err, apperrors.CodeConflict)

	if got := h.bookings.status(second.ID); got != config.Pending {
		t.Errorf("second booking status = %s, want PENDING", got)
	}
	if _, err := h.approvals.FindByBookingID(context.Background(), second.ID); err == nil {
		t.Error("no approval record may exist for the losing booking")
	}
	if got := len(h.audit.actions()); got != auditBefore {
		t.Errorf("a failed approval must not be audited, got %d new entries", got-auditBefore)
	}
}

func TestCreate_PendingBlocksNewRequests(t *testing.T) {
	h := newHarness(t)

	if _, err := h.service.Create(ctxFor(member), member, request(resourceRequiresApproval, at(9, 30), at(10, 30))); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := h.service.Create(ctxFor(otherMember), otherMember, request(resourceRequiresApproval, at(10, 0), at(11, 0)))
	assertCode(t, err, apperrors.CodeConflict)
}

func TestCreate_SelfServiceApprovedImmediately(t *testing.T) {
	h := newHarness(t)

	booking, err := h.service.Create(ctxFor(member), member, request(resourceSelfService, at(14, 0), at(15, 0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != config.Approved {
		t.Fatalf("expected APPROVED, got %s", booking.Status)
	}

	_, err = h.service.Create(ctxFor(otherMember), otherMember, request(resourceSelfService, at(14, 30), at(15, 30)))
	assertCode(t, err, apperrors.CodeConflict)

	if _, err := h.service.Create(ctxFor(otherMember), otherMember, request(resourceSelfService, at(15, 0), at(16, 0))); err != nil {
		t.Errorf("touching windows must not conflict: %v", err)
	}
	if _, err := h.service.Create(ctxFor(otherMember), otherMember, request(resourceSelfService, at(13, 0), at(14, 0))); err != nil {
		t.Errorf("touching windows must not conflict: %v", err)
	}

	if len(h.locks.touched) != 4 {
		t.Errorf("expected every create to take the resource lock, got %d", len(h.locks.touched))
	}
}

func TestCancel_OwnPendingBooking(t *testing.T) {
	h := newHarness(t)

	booking, err := h.service.Create(ctxFor(member), member, request(resourceRequiresApproval, at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := h.service.Cancel(ctxFor(member), member, booking.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != config.Cancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}

	_, err = h.service.Cancel(ctxFor(member), member, booking.ID)
	assertCode(t, err, apperrors.CodeInvalidState)

	if _, err := h.approvals.FindByBookingID(context.Background(), booking.ID); err == nil {
		t.Error("cancel must not write an approval record")
	}
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate_ValidationBeforePersistence(t *testing.T) {
	tests := []struct {
		name string
		req  *model.BookingRequest
	}{
		{"end equals start", request(resourceSelfService, at(10, 0), at(10, 0))},
		{"end before start", request(resourceSelfService, at(11, 0), at(10, 0))},
		{"missing title", &model.BookingRequest{ResourceID: resourceSelfService, StartTime: at(10, 0), EndTime: at(11, 0)}},
		{"malformed resource id", request("not-an-object-id", at(10, 0), at(11, 0))},
		{"priority out of range", func() *model.BookingRequest {
			r := request(resourceSelfService, at(10, 0), at(11, 0))
			r.Priority = intPtr(11)
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.service.Create(ctxFor(member), member, tt.req)
			assertCode(t, err, apperrors.CodeValidation)

			if h.resources.calls != 0 || h.bookings.txCalls != 0 {
				t.Errorf("validation must fail before persistence access (lookups=%d, txs=%d)", h.resources.calls, h.bookings.txCalls)
			}
		})
	}
}

func TestCreate_ResourceChecks(t *testing.T) {
	tests := []struct {
		name       string
		resourceID string
		attendees  *int
		code       string
	}{
		{"unknown resource", "650000000000000000000099", nil, apperrors.CodeNotFound},
		{"inactive resource", resourceInactive, nil, apperrors.CodeNotFound},
		{"other organization", resourceOtherOrg, nil, apperrors.CodeForbidden},
		{"over capacity", resourceSmallRoom, intPtr(5), apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := request(tt.resourceID, at(10, 0), at(11, 0))
			req.AttendeesCount = tt.attendees

			_, err := h.service.Create(ctxFor(member), member, req)
			assertCode(t, err, tt.code)

			if h.bookings.txCalls != 0 {
				t.Error("no write may be attempted")
			}
		})
	}
}

func TestCreate_AtCapacity(t *testing.T) {
	h := newHarness(t)
	req := request(resourceSmallRoom, at(10, 0), at(11, 0))
	req.AttendeesCount = intPtr(4)

	if _, err := h.service.Create(ctxFor(member), member, req); err != nil {
		t.Fatalf("attendees equal to capacity must be accepted: %v", err)
	}
}

func TestCreate_Availability(t *testing.T) {
	t.Run("outside rules", func(t *testing.T) {
		h := newHarness(t)
		h.availability.permits = false

		_, err := h.service.Create(ctxFor(member), member, request(resourceSelfService, at(20, 0), at(21, 0)))
		assertCode(t, err, apperrors.CodeValidation)
	})

	t.Run("checker failure", func(t *testing.T) {
		h := newHarness(t)
		h.availability.err = errors.New("mongo down")

		_, err := h.service.Create(ctxFor(member), member, request(resourceSelfService, at(20, 0), at(21, 0)))
		assertCode(t, err, apperrors.CodeInternal)
	})

	t.Run("enforcement disabled", func(t *testing.T) {
		h := newHarness(t, func(cfg *config.Config) { cfg.EnforceAvailability = false })
		h.availability.permits = false

		if _, err := h.service.Create(ctxFor(member), member, request(resourceSelfService, at(20, 0), at(21, 0))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.availability.calls != 0 {
			t.Error("availability must not be consulted when enforcement is disabled")
		}
	})
}

func TestCreate_AppliesDefaultsAndSanitizes(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.DefaultBookingPriority = 3 })
	req := request(" "+resourceSelfService+" ", at(10, 0), at(11, 0))
	req.Title = "  Quarterly   planning \x00"
	req.Purpose = "line one\n\n\n\nline two  "

	booking, err := h.service.Create(ctxFor(member), member, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Title != "Quarterly planning" {
		t.Errorf("title = %q", booking.Title)
	}
	if booking.Purpose != "line one\n\nline two" {
		t.Errorf("purpose = %q", booking.Purpose)
	}
	if booking.Priority == nil || *booking.Priority != 3 {
		t.Errorf("expected default priority 3, got %v", booking.Priority)
	}
	if booking.ResourceID != resourceSelfService {
		t.Errorf("resource id = %q", booking.ResourceID)
	}
}

func TestCreate_RequiresIdentity(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Create(context.Background(), model.Actor{}, request(resourceSelfService, at(10, 0), at(11, 0)))
	assertCode(t, err, apperrors.CodeUnauthorized)
}

// ────────────────────────────────────────────────
// Approve / Reject / Cancel
// ────────────────────────────────────────────────

func TestApprove_Twice(t *testing.T) {
	h := newHarness(t)
	booking, _ := h.service.Create(ctxFor(member), member, request(resourceRequiresApproval, at(10, 0), at(11, 0)))

	if _, err := h.service.Approve(ctxFor(orgAdmin), orgAdmin, booking.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	before, _ := h.approvals.FindByBookingID(context.Background(), booking.ID)

	_, err := h.service.Approve(ctxFor(orgAdmin), orgAdmin, booking.ID)
	assertCode(t, err, apperrors.CodeInvalidState)

	after, _ := h.approvals.FindByBookingID(context.Background(), booking.ID)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("approval changed by rejected call: before %+v after %+v", before, after)
	}
}

func TestApprove_Authorization(t *testing.T) {
	h := newHarness(t)
	booking, _ := h.service.Create(ctxFor(member), member, request(resourceRequiresApproval, at(10, 0), at(11, 0)))

	_, err := h.service.Approve(ctxFor(member), member, booking.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = h.service.Approve(ctxFor(foreignAdm), foreignAdm, booking.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	if _, err := h.service.Approve(ctxFor(superAdmin), superAdmin, booking.ID); err != nil {
		t.Errorf("super admin must be able to approve: %v", err)
	}
}

func TestApprove_UnknownBooking(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Approve(ctxFor(orgAdmin), orgAdmin, "650000000000000000000fff")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestReject(t *testing.T) {
	h := newHarness(t)
	booking, _ := h.service.Create(ctxFor(member), member, request(resourceRequiresApproval, at(10, 0), at(11, 0)))

	t.Run("short reason fails before lookup", func(t *testing.T) {
		finds := h.bookings.findCalls
		_, err := h.service.Reject(ctxFor(orgAdmin), orgAdmin, booking.ID, &model.RejectRequest{Reason: " no "})
		assertCode(t, err, apperrors.CodeValidation)
		if h.bookings.findCalls != finds {
			t.Error("reason must be validated before the booking is read")
		}
	})

	t.Run("rejects pending booking", func(t *testing.T) {
		rejected, err := h.service.Reject(ctxFor(orgAdmin), orgAdmin, booking.ID, &model.RejectRequest{Reason: "Room is being renovated"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rejected.Booking.Status != config.Rejected {
			t.Errorf("expected REJECTED, got %s", rejected.Booking.Status)
		}
		if rejected.Approval == nil || rejected.Approval.Comments != "Room is being renovated" ||
			rejected.Approval.ApproverID != orgAdmin.UserID || rejected.Approval.ApprovedAt.IsZero() {
			t.Errorf("unexpected approval in result: %+v", rejected.Approval)
		}

		approval, err := h.approvals.FindByBookingID(context.Background(), booking.ID)
		if err != nil {
			t.Fatalf("expected approval record: %v", err)
		}
		if approval.Status != config.ApprovalRejected || approval.Comments != "Room is being renovated" {
			t.Errorf("unexpected approval: %+v", approval)
		}

		last := h.notifier.sent[len(h.notifier.sent)-1]
		if !strings.Contains(last.Message, "Room is being renovated") {
			t.Errorf("notification must carry the reason, got %q", last.Message)
		}
	})

	t.Run("terminal booking", func(t *testing.T) {
		_, err := h.service.Reject(ctxFor(orgAdmin), orgAdmin, booking.ID, &model.RejectRequest{Reason: "Still renovating"})
		assertCode(t, err, apperrors.CodeInvalidState)
	})
}

func TestCancel_Authorization(t *testing.T) {
	h := newHarness(t)
	booking, _ := h.service.Create(ctxFor(member), member, request(resourceRequiresApproval, at(10, 0), at(11, 0)))

	_, err := h.service.Cancel(ctxFor(otherMember), otherMember, booking.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = h.service.Cancel(ctxFor(foreignAdm), foreignAdm, booking.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	sent := len(h.notifier.sent)
	if _, err := h.service.Cancel(ctxFor(orgAdmin), orgAdmin, booking.ID); err != nil {
		t.Fatalf("admin cancel on behalf of the requester: %v", err)
	}
	if len(h.notifier.sent) != sent+1 || h.notifier.sent[sent].UserID != member.UserID {
		t.Error("requester must be told when an admin cancels their booking")
	}
}

func TestCancel_ApprovedBooking(t *testing.T) {
	h := newHarness(t)
	booking, _ := h.service.Create(ctxFor(member), member, request(resourceSelfService, at(10, 0), at(11, 0)))

	_, err := h.service.Cancel(ctxFor(member), member, booking.ID)
	assertCode(t, err, apperrors.CodeInvalidState)
}

// ────────────────────────────────────────────────
// Reads
// ────────────────────────────────────────────────

func TestGetAll_ScopedByRole(t *testing.T) {
	h := newHarness(t)

	mustCreate := func(actor model.Actor, resourceID string, start time.Time) {
		t.Helper()
		if _, err := h.service.Create(ctxFor(actor), actor, request(resourceID, start, start.Add(time.Hour))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	foreignMember := model.Actor{UserID: "user-9", OrganizationID: "org-2", Role: config.RoleUser}

	mustCreate(member, resourceSelfService, at(8, 0))
	mustCreate(member, resourceSelfService, at(9, 0))
	mustCreate(otherMember, resourceSelfService, at(10, 0))
	mustCreate(foreignMember, resourceOtherOrg, at(10, 0))

	tests := []struct {
		name  string
		actor model.Actor
		want  int64
	}{
		{"member sees own", member, 2},
		{"org admin sees organization", orgAdmin, 3},
		{"super admin sees all", superAdmin, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings, total, err := h.service.GetAll(ctxFor(tt.actor), tt.actor, 10, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if total != tt.want || int64(len(bookings)) != tt.want {
				t.Errorf("got %d bookings (total %d), want %d", len(bookings), total, tt.want)
			}
		})
	}
}

func TestGetAll_LimitNormalization(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		start := at(8+i, 0)
		if _, err := h.service.Create(ctxFor(member), member, request(resourceSelfService, start, start.Add(time.Hour))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	bookings, total, err := h.service.GetAll(ctxFor(member), member, 0, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(bookings) != 3 {
		t.Errorf("expected 3 bookings, got %d (total %d)", len(bookings), total)
	}
}

func TestGetByID_Ownership(t *testing.T) {
	h := newHarness(t)
	booking, _ := h.service.Create(ctxFor(member), member, request(resourceSelfService, at(10, 0), at(11, 0)))

	if _, err := h.service.GetByID(ctxFor(member), member, booking.ID); err != nil {
		t.Errorf("owner must see the booking: %v", err)
	}
	if _, err := h.service.GetByID(ctxFor(orgAdmin), orgAdmin, booking.ID); err != nil {
		t.Errorf("org admin must see the booking: %v", err)
	}
	_, err := h.service.GetByID(ctxFor(otherMember), otherMember, booking.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = h.service.GetByID(ctxFor(member), member, "  ")
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	for _, hour := range []int{8, 10, 12} {
		if _, err := h.service.Create(ctxFor(member), member, request(resourceSelfService, at(hour, 0), at(hour+1, 0))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	from, to := at(9, 30), at(12, 0)
	bookings, total, err := h.service.Search(ctxFor(otherMember), otherMember, SearchQuery{ResourceID: resourceSelfService, From: &from, To: &to}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(bookings) != 1 || !bookings[0].StartTime.Equal(at(10, 0)) {
		t.Errorf("expected only the 10:00 booking, got %d (total %d)", len(bookings), total)
	}

	_, _, err = h.service.Search(ctxFor(member), member, SearchQuery{}, 10, 0)
	assertCode(t, err, apperrors.CodeInvalidInput)

	_, _, err = h.service.Search(ctxFor(member), member, SearchQuery{ResourceID: resourceOtherOrg}, 10, 0)
	assertCode(t, err, apperrors.CodeForbidden)

	_, _, err = h.service.Search(ctxFor(member), member, SearchQuery{ResourceID: resourceSelfService, From: &to, To: &from}, 10, 0)
	assertCode(t, err, apperrors.CodeValidation)

	_, _, err = h.service.Search(ctxFor(member), member, SearchQuery{ResourceID: resourceSelfService, Status: "DONE"}, 10, 0)
	assertCode(t, err, apperrors.CodeInvalidInput)
}
