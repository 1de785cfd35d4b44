package model

// Resource is owned by the organization CRUD side of the platform; the
// booking core only reads it.
type Resource struct {
	ID               string `json:"id,omitempty" bson:"_id,omitempty"`
	OrganizationID   string `json:"organization_id" bson:"organization_id"`
	Name             string `json:"name" bson:"name"`
	Capacity         int    `json:"capacity,omitempty" bson:"capacity,omitempty"`
	RequiresApproval bool   `json:"requires_approval" bson:"requires_approval"`
	IsActive         bool   `json:"is_active" bson:"is_active"`
}
