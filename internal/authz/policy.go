// Package authz holds the authorization policy of the booking API.
//
// Each operation maps to the minimum role it needs and an ownership
// predicate evaluated against the subject once it has been loaded.
package authz

import (
	"bookit/pkg/config"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
	"fmt"
)

type Operation string

const (
	CreateBooking      Operation = "booking.create"
	ApproveBooking     Operation = "booking.approve"
	RejectBooking      Operation = "booking.reject"
	CancelBooking      Operation = "booking.cancel"
	ViewBooking        Operation = "booking.view"
	ListBookings       Operation = "booking.list"
	SearchBookings     Operation = "booking.search"
	AddAvailability    Operation = "availability.add"
	DeleteAvailability Operation = "availability.delete"
	ListAvailability   Operation = "availability.list"
)

// Subject is what an operation acts on: a booking (owner and organization)
// or a resource (organization only).
type Subject struct {
	OwnerID        string
	OrganizationID string
}

// Ownership decides whether actor may act on subject.
type Ownership func(actor model.Actor, subject Subject) bool

type Policy struct {
	RequiredRole config.Role
	Ownership    Ownership
	// Reason is returned to the caller when Ownership denies access.
	Reason string
}

func Anyone(model.Actor, Subject) bool { return true }

func SameOrganization(actor model.Actor, subject Subject) bool {
	if actor.Role.AtLeast(config.RoleSuperAdmin) {
		return true
	}
	return actor.OrganizationID != "" && actor.OrganizationID == subject.OrganizationID
}

// OwnerOrOrgAdmin admits the booking owner and admins of its organization.
func OwnerOrOrgAdmin(actor model.Actor, subject Subject) bool {
	if actor.UserID == subject.OwnerID {
		return true
	}
	return actor.Role.AtLeast(config.RoleOrgAdmin) && SameOrganization(actor, subject)
}

var DefaultPolicies = map[Operation]Policy{
	CreateBooking:      {RequiredRole: config.RoleUser, Ownership: SameOrganization, Reason: "Resource belongs to another organization"},
	ApproveBooking:     {RequiredRole: config.RoleOrgAdmin, Ownership: SameOrganization, Reason: "Booking belongs to another organization"},
	RejectBooking:      {RequiredRole: config.RoleOrgAdmin, Ownership: SameOrganization, Reason: "Booking belongs to another organization"},
	CancelBooking:      {RequiredRole: config.RoleUser, Ownership: OwnerOrOrgAdmin, Reason: "Only the requester or an organization admin can cancel this booking"},
	ViewBooking:        {RequiredRole: config.RoleUser, Ownership: OwnerOrOrgAdmin, Reason: "Not allowed to view this booking"},
	ListBookings:       {RequiredRole: config.RoleUser, Ownership: Anyone},
	SearchBookings:     {RequiredRole: config.RoleUser, Ownership: SameOrganization, Reason: "Resource belongs to another organization"},
	AddAvailability:    {RequiredRole: config.RoleOrgAdmin, Ownership: SameOrganization, Reason: "Resource belongs to another organization"},
	DeleteAvailability: {RequiredRole: config.RoleOrgAdmin, Ownership: SameOrganization, Reason: "Resource belongs to another organization"},
	ListAvailability:   {RequiredRole: config.RoleUser, Ownership: SameOrganization, Reason: "Resource belongs to another organization"},
}

type Authorizer struct {
	policies map[Operation]Policy
}

func NewAuthorizer(policies map[Operation]Policy) *Authorizer {
	if policies == nil {
		policies = DefaultPolicies
	}
	return &Authorizer{policies: policies}
}

// RequireRole checks the role half of the policy. It needs no data and runs
// before any persistence access.
func (a *Authorizer) RequireRole(actor model.Actor, op Operation) error {
	if actor.IsZero() {
		return apperrors.Unauthorized("Missing caller identity")
	}

	policy, ok := a.policies[op]
	if !ok {
		return apperrors.Forbidden(fmt.Sprintf("Operation %s is not permitted", op))
	}

	if !actor.Role.AtLeast(policy.RequiredRole) {
		return apperrors.Forbidden(fmt.Sprintf("Role %s is required", policy.RequiredRole)).
			WithDetails(map[string]any{"operation": string(op), "role": string(actor.Role)})
	}
	return nil
}

// CheckOwnership evaluates the ownership predicate against a loaded subject.
func (a *Authorizer) CheckOwnership(actor model.Actor, op Operation, subject Subject) error {
	policy, ok := a.policies[op]
	if !ok {
		return apperrors.Forbidden(fmt.Sprintf("Operation %s is not permitted", op))
	}
	if policy.Ownership == nil || policy.Ownership(actor, subject) {
		return nil
	}

	reason := policy.Reason
	if reason == "" {
		reason = "Access denied"
	}
	return apperrors.Forbidden(reason)
}

func (a *Authorizer) Authorize(actor model.Actor, op Operation, subject Subject) error {
	if err := a.RequireRole(actor, op); err != nil {
		return err
	}
	return a.CheckOwnership(actor, op, subject)
}

func BookingSubject(b *model.Booking) Subject {
	return Subject{OwnerID: b.UserID, OrganizationID: b.OrganizationID}
}

func ResourceSubject(r *model.Resource) Subject {
	return Subject{OrganizationID: r.OrganizationID}
}
