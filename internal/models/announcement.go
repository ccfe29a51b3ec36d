// internal/models/announcement.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Announcement is an admin broadcast. A nil EndDate means it never expires.
type Announcement struct {
	BaseModel
	Title            string                      `json:"title" gorm:"size:255;not null"`
	Content          string                      `json:"content" gorm:"type:text;not null"`
	Category         string                      `json:"category" gorm:"size:50;index"`
	Importance       Importance                  `json:"importance" gorm:"type:varchar(10);not null;default:'medium'"`
	StartDate        time.Time                   `json:"start_date" gorm:"not null;index"`
	EndDate          *time.Time                  `json:"end_date" gorm:"index"`
	TargetUserGroups datatypes.JSONSlice[string] `json:"target_user_groups"`
	SendEmail        bool                        `json:"send_email" gorm:"default:false"`
	CreatedBy        uuid.UUID                   `json:"created_by" gorm:"type:uuid;not null"`
}

// IsActiveAt reports whether the announcement is visible at t.
func (a *Announcement) IsActiveAt(t time.Time) bool {
	if a.StartDate.After(t) {
		return false
	}
	return a.EndDate == nil || !t.After(*a.EndDate)
}

// Notification is an in-app message addressed to a single user.
type Notification struct {
	BaseModel
	UserID              uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index:idx_notifications_user_read"`
	Type                string     `json:"type" gorm:"type:varchar(50);not null;index"`
	Title               string     `json:"title" gorm:"size:255;not null"`
	Message             string     `json:"message" gorm:"type:text;not null"`
	Priority            Importance `json:"priority" gorm:"type:varchar(10);default:'medium'"`
	RelatedResourceType string     `json:"related_resource_type,omitempty" gorm:"size:50"`
	RelatedResourceID   *uuid.UUID `json:"related_resource_id" gorm:"type:uuid"`
	ReadAt              *time.Time `json:"read_at" gorm:"index:idx_notifications_user_read"`
}

// NewsletterSubscriber is an email address opted in to newsletters.
type NewsletterSubscriber struct {
	BaseModel
	Email          string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Active         bool       `json:"active" gorm:"default:true;index"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`
}
