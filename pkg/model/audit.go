package model

import "time"

type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

// Entity tags the logical model a mutation was applied to.
type Entity string

const (
	EntityBooking          Entity = "Booking"
	EntityResource         Entity = "Resource"
	EntityUser             Entity = "User"
	EntityOrganization     Entity = "Organization"
	EntityDepartment       Entity = "Department"
	EntityBuilding         Entity = "Building"
	EntityResourceCategory Entity = "ResourceCategory"
	EntityResourceAmenity  Entity = "ResourceAmenity"
	EntityAvailabilityRule Entity = "AvailabilityRule"
	EntityStorageUnit      Entity = "StorageUnit"
	EntityCompartment      Entity = "Compartment"
	EntityBookingApproval  Entity = "BookingApproval"
	EntityNotification     Entity = "Notification"
	EntityAccount          Entity = "Account"
	EntitySession          Entity = "Session"

	EntityAuditLog Entity = "AuditLog"
)

var trackedEntities = map[Entity]struct{}{
	EntityBooking:          {},
	EntityResource:         {},
	EntityUser:             {},
	EntityOrganization:     {},
	EntityDepartment:       {},
	EntityBuilding:         {},
	EntityResourceCategory: {},
	EntityResourceAmenity:  {},
	EntityAvailabilityRule: {},
	EntityStorageUnit:      {},
	EntityCompartment:      {},
	EntityBookingApproval:  {},
	EntityNotification:     {},
	EntityAccount:          {},
	EntitySession:          {},
}

// IsTracked reports whether mutations of e are written to the audit log.
// The audit log itself is never tracked.
func IsTracked(e Entity) bool {
	_, ok := trackedEntities[e]
	return ok
}

type AuditLogEntry struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string      `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Action    AuditAction `json:"action" bson:"action"`
	Entity    Entity      `json:"entity" bson:"entity"`
	EntityID  string      `json:"entity_id,omitempty" bson:"entity_id,omitempty"`
	OldData   any         `json:"old_data,omitempty" bson:"old_data,omitempty"`
	NewData   any         `json:"new_data,omitempty" bson:"new_data,omitempty"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}
