package model

import (
	"bookit/pkg/config"
	"time"
)

// BookingApproval records the admin decision on a booking. There is at most
// one per booking.
type BookingApproval struct {
	ID         string                `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID  string                `json:"booking_id" bson:"booking_id"`
	Status     config.ApprovalStatus `json:"status" bson:"status"`
	ApproverID string                `json:"approver_id" bson:"approver_id"`
	Comments   string                `json:"comments,omitempty" bson:"comments,omitempty"`
	ApprovedAt time.Time             `json:"approved_at" bson:"approved_at"`
}

func (a *BookingApproval) AuditKey() string {
	return a.BookingID
}

// BookingDecision is the result of an approve or reject: the booking in its
// new state and the approval record written with it.
type BookingDecision struct {
	Booking  *Booking         `json:"booking"`
	Approval *BookingApproval `json:"approval"`
}
