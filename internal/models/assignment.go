// internal/models/assignment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ServicePartnerAssignment links a partner to a service it may fulfil.
type ServicePartnerAssignment struct {
	BaseModel
	ServiceID      uuid.UUID        `json:"service_id" gorm:"type:uuid;not null;index:idx_spa_service_status"`
	PartnerID      uuid.UUID        `json:"partner_id" gorm:"type:uuid;not null;index"`
	Status         AssignmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'available';index:idx_spa_service_status"`
	CommissionType PartnerType      `json:"commission_type" gorm:"type:varchar(20)"`
	OrderID        *uuid.UUID       `json:"order_id" gorm:"type:uuid;index"`
	AssignedDate   *time.Time       `json:"assigned_date"`
	CompletionDate *time.Time       `json:"completion_date"`

	Partner *Partner `json:"partner,omitempty" gorm:"foreignKey:PartnerID"`
	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}
