// internal/services/partner_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type PartnerService struct {
	db     *gorm.DB
	config *config.Config
	users  *UserService
}

type CreatePartnerRequest struct {
	PartnerType   models.PartnerType `json:"partner_type" validate:"required,oneof=personal agency"`
	BusinessName  string             `json:"business_name" validate:"max=255"`
	ContactName   string             `json:"contact_name" validate:"required,max=255"`
	ContactEmail  string             `json:"contact_email" validate:"required,email"`
	ContactPhone  string             `json:"contact_phone" validate:"omitempty,phone"`
	Website       string             `json:"website" validate:"omitempty,http_url"`
	EmployeeCount int                `json:"employee_count" validate:"min=0"`
	Bio           string             `json:"bio"`
}

type UpdatePartnerRequest struct {
	BusinessName  *string `json:"business_name,omitempty" validate:"omitempty,max=255"`
	ContactName   *string `json:"contact_name,omitempty" validate:"omitempty,min=1,max=255"`
	ContactPhone  *string `json:"contact_phone,omitempty" validate:"omitempty,phone"`
	Website       *string `json:"website,omitempty" validate:"omitempty,http_url"`
	EmployeeCount *int    `json:"employee_count,omitempty" validate:"omitempty,min=0"`
	Bio           *string `json:"bio,omitempty"`
}

type PartnerFilter struct {
	Status      models.PartnerStatus
	PartnerType models.PartnerType
	Pagination  utils.PaginationParams
}

type LinkStatus string

const (
	LinkStatusLinked        LinkStatus = "linked"
	LinkStatusAlreadyLinked LinkStatus = "already_linked"
	LinkStatusNotFound      LinkStatus = "not_found"
	LinkStatusAmbiguous     LinkStatus = "ambiguous"
)

// LinkResult reports the outcome of attaching a partner record to a user account.
type LinkResult struct {
	Status    LinkStatus `json:"status"`
	PartnerID uuid.UUID  `json:"partner_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
}

// Normalize trims the free-text contact fields and lower-cases the email.
func (r *CreatePartnerRequest) Normalize() {
	r.BusinessName = strings.TrimSpace(r.BusinessName)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.ContactEmail = normalizeEmail(r.ContactEmail)
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	r.Website = strings.TrimSpace(r.Website)
}

func NewPartnerService(db *gorm.DB, cfg *config.Config, users *UserService) *PartnerService {
	return &PartnerService{
		db:     db,
		config: cfg,
		users:  users,
	}
}

func (s *PartnerService) CreatePartner(ctx context.Context, req *CreatePartnerRequest) (*models.Partner, error) {
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	partner := &models.Partner{
		PartnerType:   req.PartnerType,
		BusinessName:  req.BusinessName,
		ContactName:   req.ContactName,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Website:       req.Website,
		EmployeeCount: req.EmployeeCount,
		Bio:           req.Bio,
		Status:        models.PartnerStatusPending,
	}

	if err := s.db.WithContext(ctx).Create(partner).Error; err != nil {
		return nil, classifyWriteError(ctx, err, constraintMessages{
			Duplicate: "partner already exists",
			Reference: "invalid partner information",
			Check:     "validation failed",
		})
	}

	logrus.WithFields(logrus.Fields{
		"partner_id":   partner.ID,
		"partner_type": partner.PartnerType,
	}).Info("partner created")

	return partner, nil
}

func (s *PartnerService) GetPartner(ctx context.Context, partnerID uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := s.db.WithContext(ctx).First(&partner, "id = ?", partnerID).Error; err != nil {
		return nil, lookupError(err, "partner")
	}
	return &partner, nil
}

func (s *PartnerService) GetPartnerByEmail(ctx context.Context, email string) (*models.Partner, error) {
	var partner models.Partner
	if err := s.db.WithContext(ctx).Where("contact_email = ?", normalizeEmail(email)).First(&partner).Error; err != nil {
		return nil, lookupError(err, "partner")
	}
	return &partner, nil
}

// GetPartnerByUser returns the partner record linked to a user account.
func (s *PartnerService) GetPartnerByUser(ctx context.Context, userID uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&partner).Error; err != nil {
		return nil, lookupError(err, "partner")
	}
	return &partner, nil
}

func (s *PartnerService) ListPartners(ctx context.Context, filter PartnerFilter) ([]models.Partner, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Partner{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PartnerType != "" {
		query = query.Where("partner_type = ?", filter.PartnerType)
	}
	if search := strings.TrimSpace(filter.Pagination.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(business_name) LIKE ? OR LOWER(contact_name) LIKE ? OR contact_email LIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count partners: %w", err)
	}

	var partners []models.Partner
	query = utils.ApplySort(query, filter.Pagination, []string{"created_at", "business_name", "contact_name", "status"})
	if err := utils.ApplyPagination(query, filter.Pagination).Find(&partners).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list partners: %w", err)
	}

	return partners, total, nil
}

func (s *PartnerService) UpdatePartner(ctx context.Context, partnerID uuid.UUID, req *UpdatePartnerRequest) (*models.Partner, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	partner, err := s.GetPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.BusinessName != nil {
		updates["business_name"] = strings.TrimSpace(*req.BusinessName)
	}
	if req.ContactName != nil {
		updates["contact_name"] = strings.TrimSpace(*req.ContactName)
	}
	if req.ContactPhone != nil {
		updates["contact_phone"] = strings.TrimSpace(*req.ContactPhone)
	}
	if req.Website != nil {
		updates["website"] = strings.TrimSpace(*req.Website)
	}
	if req.EmployeeCount != nil {
		updates["employee_count"] = *req.EmployeeCount
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if len(updates) == 0 {
		return partner, nil
	}

	if err := s.db.WithContext(ctx).Model(partner).Updates(updates).Error; err != nil {
		return nil, classifyWriteError(ctx, err, defaultConstraintMessages)
	}
	return s.GetPartner(ctx, partnerID)
}

// UpdatePartnerStatus sets the partner status; setting the current status is a no-op.
func (s *PartnerService) UpdatePartnerStatus(ctx context.Context, partnerID uuid.UUID, status models.PartnerStatus) (*models.Partner, error) {
	switch status {
	case models.PartnerStatusPending, models.PartnerStatusApproved, models.PartnerStatusRejected:
	default:
		return nil, validationError("invalid partner status %q", status)
	}

	partner, err := s.GetPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if partner.Status == status {
		return partner, nil
	}

	if err := setPartnerStatus(s.db.WithContext(ctx), partnerID, status); err != nil {
		return nil, err
	}
	partner.Status = status
	return partner, nil
}

// setPartnerStatus is shared by workflows that change partner status inside
// their own transaction.
func setPartnerStatus(tx *gorm.DB, partnerID uuid.UUID, status models.PartnerStatus) error {
	result := tx.Model(&models.Partner{}).Where("id = ?", partnerID).Update("status", status)
	if result.Error != nil {
		return classifyDBError(result.Error, defaultConstraintMessages)
	}
	if result.RowsAffected == 0 {
		return notFound("partner")
	}
	return nil
}

// LinkPartnerAccount attaches the partner record to the single user account
// registered under email. Existing links are never overwritten.
func (s *PartnerService) LinkPartnerAccount(ctx context.Context, partnerID uuid.UUID, email string) (*LinkResult, error) {
	partner, err := s.GetPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	result := &LinkResult{PartnerID: partnerID}
	log := logrus.WithFields(logrus.Fields{
		"partner_id": partnerID,
		"email":      normalizeEmail(email),
	})

	if partner.UserID != nil {
		result.Status = LinkStatusAlreadyLinked
		result.UserID = partner.UserID
		log.WithField("link_status", result.Status).Info("partner account link skipped")
		return result, nil
	}

	users, err := s.users.FindUsersByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	switch len(users) {
	case 0:
		result.Status = LinkStatusNotFound
	case 1:
		userID := users[0].ID
		update := s.db.WithContext(ctx).Model(&models.Partner{}).
			Where("id = ? AND user_id IS NULL", partnerID).
			Update("user_id", userID)
		if update.Error != nil {
			return nil, classifyDBError(update.Error, defaultConstraintMessages)
		}
		if update.RowsAffected == 0 {
			result.Status = LinkStatusAlreadyLinked
		} else {
			result.Status = LinkStatusLinked
			result.UserID = &userID
		}
	default:
		result.Status = LinkStatusAmbiguous
	}

	log.WithField("link_status", result.Status).Info("partner account link attempted")
	return result, nil
}
