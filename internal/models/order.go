// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	BaseModel
	BuyerID          uuid.UUID     `json:"buyer_id" gorm:"type:uuid;not null;index"`
	ServiceID        uuid.UUID     `json:"service_id" gorm:"type:uuid;not null;index"`
	PartnerID        *uuid.UUID    `json:"partner_id" gorm:"type:uuid;index"`
	AssignmentID     *uuid.UUID    `json:"assignment_id" gorm:"type:uuid"`
	Status           OrderStatus   `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Amount           float64       `json:"amount" gorm:"type:decimal(10,2);not null;default:0"`
	PlatformFee      float64       `json:"platform_fee" gorm:"type:decimal(10,2);not null;default:0"`
	PaymentStatus    PaymentStatus `json:"payment_status" gorm:"type:varchar(20);not null;default:'not_required'"`
	PaymentReference string        `json:"payment_reference,omitempty" gorm:"size:255"`
	Notes            string        `json:"notes,omitempty" gorm:"type:text"`
	AssignedAt       *time.Time    `json:"assigned_at"`
	CompletedAt      *time.Time    `json:"completed_at"`
	CancelledAt      *time.Time    `json:"cancelled_at"`
	RefundReason     string        `json:"refund_reason,omitempty" gorm:"type:text"`

	Buyer   *User    `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
	Partner *Partner `json:"partner,omitempty" gorm:"foreignKey:PartnerID"`
}
