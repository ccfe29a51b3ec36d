// internal/models/trial.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TrialService is a probationary engagement used to evaluate a partner.
type TrialService struct {
	BaseModel
	PartnerID        uuid.UUID   `json:"partner_id" gorm:"type:uuid;not null;index"`
	ServiceID        uuid.UUID   `json:"service_id" gorm:"type:uuid;not null;index"`
	Status           TrialStatus `json:"status" gorm:"type:varchar(20);not null;default:'assigned';index"`
	QualityRating    *int        `json:"quality_rating" gorm:"check:chk_trial_quality_rating,quality_rating IS NULL OR (quality_rating BETWEEN 1 AND 5)"`
	OnTimeDelivery   *bool       `json:"on_time_delivery"`
	ResponseRating   *int        `json:"response_rating" gorm:"check:chk_trial_response_rating,response_rating IS NULL OR (response_rating BETWEEN 1 AND 5)"`
	CustomerFeedback string      `json:"customer_feedback" gorm:"type:text"`
	AssignedDate     time.Time   `json:"assigned_date"`
	CompletionDate   *time.Time  `json:"completion_date"`

	Partner *Partner `json:"partner,omitempty" gorm:"foreignKey:PartnerID"`
	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}
