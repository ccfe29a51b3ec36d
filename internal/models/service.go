// internal/models/service.go
package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ServiceCategory is a normalized catalog category.
type ServiceCategory struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
	Icon        string `json:"icon" gorm:"size:50"`
	SortOrder   int    `json:"sort_order" gorm:"default:0"`
}

// ServiceSubcategory belongs to a ServiceCategory.
type ServiceSubcategory struct {
	BaseModel
	CategoryID  uuid.UUID `json:"category_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Description string    `json:"description" gorm:"type:text"`

	Category *ServiceCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// FAQ is one question/answer pair on a service page.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Service is a catalog entry. Category and Subcategory hold either a category
// id or a legacy literal name; see services.CategoryRef.
type Service struct {
	SoftDeleteModel
	Title           string                      `json:"title" gorm:"size:255;not null"`
	Description     string                      `json:"description" gorm:"type:text"`
	Price           float64                     `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	Category        string                      `json:"-" gorm:"column:category;size:255;index"`
	Subcategory     string                      `json:"-" gorm:"column:subcategory;size:255"`
	Features        datatypes.JSONSlice[string] `json:"features"`
	FAQs            datatypes.JSONSlice[FAQ]    `json:"faqs" gorm:"column:faqs"`
	ServiceType     ServiceType                 `json:"service_type" gorm:"type:varchar(20);not null;default:'Project'"`
	Status          ServiceStatus               `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	IsFree          bool                        `json:"is_free" gorm:"default:false"`
	Featured        bool                        `json:"featured" gorm:"default:false;index"`
	ServiceLocation ServiceLocation             `json:"service_location" gorm:"type:varchar(20);default:'online'"`
	DeliveryTime    string                      `json:"delivery_time" gorm:"size:100"`
	ImageURL        string                      `json:"image_url" gorm:"size:500"`
	CreatedBy       *uuid.UUID                  `json:"created_by" gorm:"type:uuid"`
}
