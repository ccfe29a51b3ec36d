// internal/models/partner.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Partner is a service-fulfilling business profile, personal or agency.
// ContactEmail is stored trimmed and lower-cased; at most one partner per email.
type Partner struct {
	BaseModel
	PartnerType   PartnerType   `json:"partner_type" gorm:"type:varchar(20);not null"`
	BusinessName  string        `json:"business_name" gorm:"size:255"`
	ContactName   string        `json:"contact_name" gorm:"size:255;not null"`
	ContactEmail  string        `json:"contact_email" gorm:"size:255;not null;uniqueIndex"`
	ContactPhone  string        `json:"contact_phone" gorm:"size:50"`
	Website       string        `json:"website" gorm:"size:255"`
	EmployeeCount int           `json:"employee_count" gorm:"default:0"`
	Bio           string        `json:"bio" gorm:"type:text"`
	UserID        *uuid.UUID    `json:"user_id" gorm:"type:uuid;index"`
	Status        PartnerStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index;check:chk_partners_status,status IN ('pending','approved','rejected')"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// PartnerLead is a marketing contact captured before a full application.
type PartnerLead struct {
	BaseModel
	Email              string     `json:"email" gorm:"size:255;not null;index"`
	Name               string     `json:"name" gorm:"size:255"`
	Phone              string     `json:"phone" gorm:"size:50"`
	BusinessName       string     `json:"business_name" gorm:"size:255"`
	Source             string     `json:"source" gorm:"size:100"`
	Status             LeadStatus `json:"status" gorm:"type:varchar(20);not null;default:'new';index"`
	ConvertedPartnerID *uuid.UUID `json:"converted_partner_id" gorm:"type:uuid"`
	ConvertedAt        *time.Time `json:"converted_at"`
}

// BusinessDetails is the nested business profile captured with an application.
type BusinessDetails struct {
	YearsInBusiness string   `json:"years_in_business"`
	Industry        string   `json:"industry"`
	TeamSize        string   `json:"team_size"`
	Address         string   `json:"address"`
	Services        []string `json:"services"`
}

// PartnerApplication is the single review record for a partner.
type PartnerApplication struct {
	BaseModel
	PartnerID       uuid.UUID                           `json:"partner_id" gorm:"type:uuid;not null;uniqueIndex"`
	BusinessDetails datatypes.JSONType[BusinessDetails] `json:"business_details"`
	Experience      string                              `json:"experience" gorm:"type:text"`
	Qualifications  string                              `json:"qualifications" gorm:"type:text"`
	PortfolioLinks  datatypes.JSONSlice[string]         `json:"portfolio_links"`
	DocumentLinks   datatypes.JSONSlice[string]         `json:"document_links"`
	SourceLeadID    *uuid.UUID                          `json:"source_lead_id" gorm:"type:uuid"`
	Status          ApplicationStatus                   `json:"status" gorm:"type:varchar(20);not null;default:'submitted';index;check:chk_partner_applications_status,status IN ('submitted','under_review','approved','rejected')"`
	AdminNotes      string                              `json:"admin_notes,omitempty" gorm:"type:text"`
	RejectionReason string                              `json:"rejection_reason,omitempty" gorm:"type:text"`
	ApplicationDate time.Time                           `json:"application_date"`
	ReviewDate      *time.Time                          `json:"review_date"`

	Partner    *Partner     `json:"partner,omitempty" gorm:"foreignKey:PartnerID"`
	SourceLead *PartnerLead `json:"source_lead,omitempty" gorm:"foreignKey:SourceLeadID"`
}
