// internal/services/lead_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type LeadService struct {
	db *gorm.DB
}

type CreateLeadRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name" validate:"max=255"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	BusinessName string `json:"business_name" validate:"max=255"`
	Source       string `json:"source" validate:"max=100"`
}

func (r *CreateLeadRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.BusinessName = strings.TrimSpace(r.BusinessName)
	r.Source = strings.TrimSpace(r.Source)
}

func NewLeadService(db *gorm.DB) *LeadService {
	return &LeadService{db: db}
}

func (s *LeadService) CreateLead(ctx context.Context, req *CreateLeadRequest) (*models.PartnerLead, error) {
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	lead := &models.PartnerLead{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		BusinessName: req.BusinessName,
		Source:       req.Source,
		Status:       models.LeadStatusNew,
	}
	if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, classifyDBError(err, defaultConstraintMessages)
	}
	return lead, nil
}

func (s *LeadService) GetLead(ctx context.Context, leadID uuid.UUID) (*models.PartnerLead, error) {
	var lead models.PartnerLead
	if err := s.db.WithContext(ctx).First(&lead, "id = ?", leadID).Error; err != nil {
		return nil, lookupError(err, "lead")
	}
	return &lead, nil
}

func (s *LeadService) ListLeads(ctx context.Context, params utils.PaginationParams) ([]models.PartnerLead, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PartnerLead{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("email LIKE ? OR LOWER(name) LIKE ? OR LOWER(business_name) LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	var leads []models.PartnerLead
	query = utils.ApplySort(query, params, []string{"created_at", "email", "status"})
	if err := utils.ApplyPagination(query, params).Find(&leads).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, total, nil
}

// MarkLeadConverted records the partner a lead turned into. A lead that is
// already converted keeps its original partner.
func (s *LeadService) MarkLeadConverted(ctx context.Context, leadID, partnerID uuid.UUID) error {
	return markLeadConverted(s.db.WithContext(ctx), leadID, partnerID)
}

func markLeadConverted(db *gorm.DB, leadID, partnerID uuid.UUID) error {
	now := time.Now().UTC()
	result := db.Model(&models.PartnerLead{}).
		Where("id = ? AND status <> ?", leadID, models.LeadStatusConverted).
		Updates(map[string]interface{}{
			"status":               models.LeadStatusConverted,
			"converted_partner_id": partnerID,
			"converted_at":         &now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark lead converted: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.PartnerLead{}).Where("id = ?", leadID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up lead: %w", err)
		}
		if count == 0 {
			return notFound("lead")
		}
	}
	return nil
}
