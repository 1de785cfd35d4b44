package model

import (
	"bookit/pkg/config"
	"time"
)

type Booking struct {
	ID             string               `json:"id,omitempty" bson:"_id,omitempty"`
	ResourceID     string               `json:"resource_id" bson:"resource_id"`
	UserID         string               `json:"user_id" bson:"user_id"`
	OrganizationID string               `json:"organization_id" bson:"organization_id"`
	Title          string               `json:"title" bson:"title"`
	Purpose        string               `json:"purpose,omitempty" bson:"purpose,omitempty"`
	StartTime      time.Time            `json:"start_time" bson:"start_time"`
	EndTime        time.Time            `json:"end_time" bson:"end_time"`
	AttendeesCount *int                 `json:"attendees_count,omitempty" bson:"attendees_count,omitempty"`
	Priority       *int                 `json:"priority,omitempty" bson:"priority,omitempty"`
	Status         config.BookingStatus `json:"status" bson:"status"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" bson:"updated_at"`
}

func (b *Booking) AuditKey() string {
	return b.ID
}

// BookingRequest is the payload of a booking creation.
type BookingRequest struct {
	ResourceID     string    `json:"resource_id" validate:"required,mongodb"`
	Title          string    `json:"title" validate:"required,min=2,max=200"`
	Purpose        string    `json:"purpose,omitempty" validate:"omitempty,max=1000"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
	AttendeesCount *int      `json:"attendees_count,omitempty" validate:"omitempty,min=1,max=10000"`
	Priority       *int      `json:"priority,omitempty" validate:"omitempty,min=0"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// BookingStatusChange is the write payload of a lifecycle transition.
type BookingStatusChange struct {
	BookingID string               `json:"booking_id" bson:"booking_id"`
	From      config.BookingStatus `json:"from" bson:"from"`
	To        config.BookingStatus `json:"to" bson:"to"`
	UpdatedAt time.Time            `json:"updated_at" bson:"updated_at"`
}

func (c *BookingStatusChange) AuditKey() string {
	return c.BookingID
}

var transitions = map[config.BookingStatus][]config.BookingStatus{
	config.Pending: {config.Approved, config.Rejected, config.Cancelled},
}

// CanTransition reports whether from -> to is an edge of the booking
// lifecycle. Approved, rejected and cancelled bookings are terminal.
func CanTransition(from, to config.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status config.BookingStatus) bool {
	return len(transitions[status]) == 0
}

func ValidBookingStatus(status config.BookingStatus) bool {
	switch status {
	case config.Pending, config.Approved, config.Rejected, config.Cancelled:
		return true
	}
	return false
}
