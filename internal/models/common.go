// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the primary key client-side so inserts behave the same
// on Postgres and on the SQLite test store.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// SoftDeleteModel is used by entities that are archived rather than removed.
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeBuyer   UserType = "buyer"
	UserTypePartner UserType = "partner"
	UserTypeAdmin   UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type DashboardMode string

const (
	DashboardModeBuyer   DashboardMode = "buyer"
	DashboardModePartner DashboardMode = "partner"
)

type PartnerType string

const (
	PartnerTypePersonal PartnerType = "personal"
	PartnerTypeAgency   PartnerType = "agency"
)

type PartnerStatus string

const (
	PartnerStatusPending  PartnerStatus = "pending"
	PartnerStatusApproved PartnerStatus = "approved"
	PartnerStatusRejected PartnerStatus = "rejected"
)

type ApplicationStatus string

const (
	ApplicationStatusSubmitted   ApplicationStatus = "submitted"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

// IsTerminal reports whether no further review transition is allowed.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

// CanTransitionTo encodes the review state machine:
// submitted -> under_review -> {approved, rejected}, and submitted -> {approved, rejected}.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	switch s {
	case ApplicationStatusSubmitted:
		return next == ApplicationStatusUnderReview ||
			next == ApplicationStatusApproved ||
			next == ApplicationStatusRejected
	case ApplicationStatusUnderReview:
		return next == ApplicationStatusApproved || next == ApplicationStatusRejected
	default:
		return false
	}
}

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusConverted LeadStatus = "converted"
)

type TrialStatus string

const (
	TrialStatusAssigned  TrialStatus = "assigned"
	TrialStatusCompleted TrialStatus = "completed"
	TrialStatusFailed    TrialStatus = "failed"
)

type ServiceType string

const (
	ServiceTypeProject ServiceType = "Project"
	ServiceTypeTask    ServiceType = "Task"
	ServiceTypePrompt  ServiceType = "Prompt"
)

type ServiceStatus string

const (
	ServiceStatusDraft    ServiceStatus = "draft"
	ServiceStatusActive   ServiceStatus = "active"
	ServiceStatusInactive ServiceStatus = "inactive"
	ServiceStatusArchived ServiceStatus = "archived"
)

type ServiceLocation string

const (
	ServiceLocationOnline ServiceLocation = "online"
	ServiceLocationOnsite ServiceLocation = "onsite"
	ServiceLocationHybrid ServiceLocation = "hybrid"
	ServiceLocationBoth   ServiceLocation = "both"
)

type AssignmentStatus string

const (
	AssignmentStatusAvailable AssignmentStatus = "available"
	AssignmentStatusAssigned  AssignmentStatus = "assigned"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAssigned  OrderStatus = "assigned"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusNotRequired PaymentStatus = "not_required"
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusPaid        PaymentStatus = "paid"
	PaymentStatusRefunded    PaymentStatus = "refunded"
)

type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Target user groups for announcements.
const (
	UserGroupAll      = "all"
	UserGroupBuyers   = "buyers"
	UserGroupPartners = "partners"
	UserGroupAdmins   = "admins"
)

type EmailJobStatus string

const (
	EmailJobStatusPending    EmailJobStatus = "pending"
	EmailJobStatusProcessing EmailJobStatus = "processing"
	EmailJobStatusSent       EmailJobStatus = "sent"
	EmailJobStatusFailed     EmailJobStatus = "failed"
)
