// internal/models/email_job.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailJob is an outbox row for an outbound email; the dispatcher retries
// pending rows with exponential backoff until MaxRetries is exceeded.
type EmailJob struct {
	BaseModel
	Recipient           string         `json:"recipient" gorm:"size:255;not null"`
	Subject             string         `json:"subject" gorm:"size:255;not null"`
	HTMLBody            string         `json:"html_body" gorm:"type:text"`
	TextBody            string         `json:"text_body" gorm:"type:text"`
	Kind                string         `json:"kind" gorm:"size:50;index"`
	RelatedResourceType string         `json:"related_resource_type,omitempty" gorm:"size:50"`
	RelatedResourceID   *uuid.UUID     `json:"related_resource_id" gorm:"type:uuid"`
	Status              EmailJobStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	RetryCount          int            `json:"retry_count" gorm:"default:0"`
	MaxRetries          int            `json:"max_retries" gorm:"default:5"`
	NextRetryAt         *time.Time     `json:"next_retry_at" gorm:"index"`
	LastError           *string        `json:"last_error" gorm:"type:text"`
	SentAt              *time.Time     `json:"sent_at"`
}
