package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationInfo is the type given to notifications created without one.
// Type is an open string; producers also use success, warning and error.
const NotificationInfo = "info"

type Notification struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string     `gorm:"not null" json:"title"`
	Message   string     `gorm:"not null" json:"message"`
	Type      string     `gorm:"not null;default:info" json:"type"` // info, success, warning, error
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	// soft delete: set on dismiss, rows are never removed
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate fills the id and type when the producer left them empty.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Type == "" {
		n.Type = NotificationInfo
	}
	return nil
}
