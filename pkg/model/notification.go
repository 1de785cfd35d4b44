package model

import (
	"bookit/pkg/config"
	"time"
)

type Notification struct {
	ID        string                  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string                  `json:"user_id" bson:"user_id" validate:"required"`
	Title     string                  `json:"title" bson:"title" validate:"required,max=200"`
	Message   string                  `json:"message" bson:"message" validate:"required,max=2000"`
	Type      config.NotificationType `json:"type" bson:"type" validate:"required,oneof=INFO SUCCESS WARNING"`
	IsRead    bool                    `json:"is_read" bson:"is_read"`
	CreatedAt time.Time               `json:"created_at" bson:"created_at"`
}

func (n *Notification) AuditKey() string {
	return n.ID
}
