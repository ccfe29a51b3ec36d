// internal/services/admin_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

// Setting keys read by the workflows.
const (
	SettingCategoryAssignment = "assignment"
	SettingKeyStrategy        = "strategy"

	SettingCategoryTrials        = "trials"
	SettingKeyApprovalThreshold  = "approval_threshold"
	SettingCategoryPayments      = "payments"
	SettingKeyPlatformFeePercent = "platform_fee_percentage"
)

type AdminService struct {
	db *gorm.DB
}

type AdminDashboardStats struct {
	TotalUsers            int64   `json:"total_users"`
	NewUsersThisMonth     int64   `json:"new_users_this_month"`
	TotalPartners         int64   `json:"total_partners"`
	PendingPartners       int64   `json:"pending_partners"`
	ApprovedPartners      int64   `json:"approved_partners"`
	PendingApplications   int64   `json:"pending_applications"`
	ActiveTrials          int64   `json:"active_trials"`
	ActiveServices        int64   `json:"active_services"`
	TotalOrders           int64   `json:"total_orders"`
	UnassignedOrders      int64   `json:"unassigned_orders"`
	TotalRevenue          float64 `json:"total_revenue"`
	MonthlyRevenue        float64 `json:"monthly_revenue"`
	PendingEmails         int64   `json:"pending_emails"`
	FailedEmails          int64   `json:"failed_emails"`
	ActiveAnnouncements   int64   `json:"active_announcements"`
	NewsletterSubscribers int64   `json:"newsletter_subscribers"`
}

type AdminUserFilter struct {
	utils.PaginationParams
	UserType *models.UserType   `json:"user_type,omitempty"`
	Status   *models.UserStatus `json:"status,omitempty"`
}

type UpdateSettingRequest struct {
	Value       interface{} `json:"value"`
	DataType    string      `json:"data_type" validate:"required,oneof=string integer float boolean json"`
	Description string      `json:"description,omitempty"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &AdminDashboardStats{}
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	db.Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&stats.NewUsersThisMonth)

	// Partner pipeline
	db.Model(&models.Partner{}).Count(&stats.TotalPartners)
	db.Model(&models.Partner{}).Where("status = ?", models.PartnerStatusPending).Count(&stats.PendingPartners)
	db.Model(&models.Partner{}).Where("status = ?", models.PartnerStatusApproved).Count(&stats.ApprovedPartners)
	db.Model(&models.PartnerApplication{}).
		Where("status IN ?", []models.ApplicationStatus{models.ApplicationStatusSubmitted, models.ApplicationStatusUnderReview}).
		Count(&stats.PendingApplications)
	db.Model(&models.TrialService{}).Where("status = ?", models.TrialStatusAssigned).Count(&stats.ActiveTrials)

	// Catalog and orders
	db.Model(&models.Service{}).Where("status = ?", models.ServiceStatusActive).Count(&stats.ActiveServices)
	db.Model(&models.Order{}).Count(&stats.TotalOrders)
	db.Model(&models.Order{}).Where("status = ? AND partner_id IS NULL", models.OrderStatusPending).Count(&stats.UnassignedOrders)

	db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalRevenue)
	db.Model(&models.Order{}).
		Where("status = ? AND completed_at >= ?", models.OrderStatusCompleted, monthStart).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.MonthlyRevenue)

	// Messaging
	db.Model(&models.EmailJob{}).Where("status IN ?", []models.EmailJobStatus{models.EmailJobStatusPending, models.EmailJobStatusProcessing}).Count(&stats.PendingEmails)
	db.Model(&models.EmailJob{}).Where("status = ?", models.EmailJobStatusFailed).Count(&stats.FailedEmails)
	activeAnnouncements(db.Model(&models.Announcement{}), now).Count(&stats.ActiveAnnouncements)
	db.Model(&models.NewsletterSubscriber{}).Where("active = ?", true).Count(&stats.NewsletterSubscribers)

	return stats, nil
}

// User Management
func (s *AdminService) ListUsers(ctx context.Context, filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})

	if filter.UserType != nil {
		query = query.Where("user_type = ?", *filter.UserType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "email", "full_name"})
	if err := utils.ApplyPagination(query, filter.PaginationParams).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

func (s *AdminService) UpdateUserStatus(ctx context.Context, userID uuid.UUID, status models.UserStatus, adminID uuid.UUID) error {
	if status != models.UserStatusActive && status != models.UserStatusSuspended {
		return validationError("invalid user status %q", status)
	}
	if userID == adminID && status == models.UserStatusSuspended {
		return newError(ErrForbidden, "administrators cannot suspend themselves")
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("status", status)
	if result.Error != nil {
		return classifyDBError(result.Error, defaultConstraintMessages)
	}
	if result.RowsAffected == 0 {
		return notFound("user")
	}

	logrus.WithFields(logrus.Fields{"user_id": userID, "status": status, "admin_id": adminID}).Info("user status updated")
	return nil
}

// Settings Management
func (s *AdminService) GetSettings(ctx context.Context) (map[string]models.AdminSettings, error) {
	var settings []models.AdminSettings
	if err := s.db.WithContext(ctx).Order("category, key").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	settingsMap := make(map[string]models.AdminSettings)
	for _, setting := range settings {
		key := fmt.Sprintf("%s.%s", setting.Category, setting.Key)
		settingsMap[key] = setting
	}

	return settingsMap, nil
}

// GetSetting decodes one setting into dest. Missing settings return ErrNotFound.
func (s *AdminService) GetSetting(ctx context.Context, category, key string, dest interface{}) error {
	var setting models.AdminSettings
	err := s.db.WithContext(ctx).Where("category = ? AND key = ?", category, key).First(&setting).Error
	if err != nil {
		return lookupError(err, "setting")
	}
	if err := json.Unmarshal(setting.Value, dest); err != nil {
		return fmt.Errorf("setting %s.%s is malformed: %w", category, key, err)
	}
	return nil
}

// StringSetting returns a string setting, or fallback when it is missing or unreadable.
func (s *AdminService) StringSetting(ctx context.Context, category, key, fallback string) string {
	var value string
	if err := s.GetSetting(ctx, category, key, &value); err != nil {
		if !errors.Is(err, ErrNotFound) {
			logrus.WithError(err).WithFields(logrus.Fields{"category": category, "key": key}).Warn("falling back to default setting")
		}
		return fallback
	}
	return value
}

func (s *AdminService) IntSetting(ctx context.Context, category, key string, fallback int) int {
	var value int
	if err := s.GetSetting(ctx, category, key, &value); err != nil {
		if !errors.Is(err, ErrNotFound) {
			logrus.WithError(err).WithFields(logrus.Fields{"category": category, "key": key}).Warn("falling back to default setting")
		}
		return fallback
	}
	return value
}

func (s *AdminService) FloatSetting(ctx context.Context, category, key string, fallback float64) float64 {
	var value float64
	if err := s.GetSetting(ctx, category, key, &value); err != nil {
		if !errors.Is(err, ErrNotFound) {
			logrus.WithError(err).WithFields(logrus.Fields{"category": category, "key": key}).Warn("falling back to default setting")
		}
		return fallback
	}
	return value
}

func (s *AdminService) UpdateSetting(ctx context.Context, category, key string, req *UpdateSettingRequest, adminID uuid.UUID) (*models.AdminSettings, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}
	if req.Value == nil {
		return nil, validationError("setting value is required")
	}
	if category == SettingCategoryAssignment && key == SettingKeyStrategy {
		name, _ := req.Value.(string)
		if !IsAssignmentStrategy(name) {
			return nil, validationError("unknown assignment strategy %q", name)
		}
	}

	raw, err := json.Marshal(req.Value)
	if err != nil {
		return nil, validationError("setting value is not JSON encodable")
	}

	var setting models.AdminSettings
	err = s.db.WithContext(ctx).Where("category = ? AND key = ?", category, key).First(&setting).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Create new setting
		setting = models.AdminSettings{
			Category:    category,
			Key:         key,
			Value:       models.SettingValue(raw),
			DataType:    req.DataType,
			Description: req.Description,
			UpdatedBy:   &adminID,
		}
		if err := s.db.WithContext(ctx).Create(&setting).Error; err != nil {
			return nil, classifyDBError(err, defaultConstraintMessages)
		}
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	} else {
		oldValue := string(setting.Value)
		setting.Value = models.SettingValue(raw)
		setting.DataType = req.DataType
		if req.Description != "" {
			setting.Description = req.Description
		}
		setting.UpdatedBy = &adminID

		if err := s.db.WithContext(ctx).Save(&setting).Error; err != nil {
			return nil, classifyDBError(err, defaultConstraintMessages)
		}

		logrus.WithFields(logrus.Fields{
			"setting":   category + "." + key,
			"old_value": oldValue,
			"new_value": string(raw),
			"admin_id":  adminID,
		}).Info("setting updated")
	}

	return &setting, nil
}

// Audit Log
func (s *AdminService) ListAuditLogs(ctx context.Context, params utils.PaginationParams, resourceType string) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []models.AuditLog
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}
