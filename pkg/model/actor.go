package model

import "bookit/pkg/config"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID         string
	OrganizationID string
	Role           config.Role
}

func (a Actor) IsZero() bool {
	return a.UserID == ""
}
