// internal/services/user_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type UserService struct {
	db *gorm.DB
}

type UpdateUserProfileRequest struct {
	FullName    string                 `json:"full_name,omitempty" validate:"omitempty,max=255"`
	ProfileData map[string]interface{} `json:"profile_data,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
}

// Preferences is the per-user view state kept server-side.
type Preferences struct {
	DashboardMode   models.DashboardMode   `json:"dashboard_mode"`
	AvailableModes  []models.DashboardMode `json:"available_modes"`
	LinkedPartnerID *uuid.UUID             `json:"linked_partner_id,omitempty"`
}

type SetDashboardModeRequest struct {
	DashboardMode models.DashboardMode `json:"dashboard_mode" validate:"required,oneof=buyer partner"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, lookupError(err, "user")
	}
	return &user, nil
}

// FindUsersByEmail matches accounts case-insensitively.
func (s *UserService) FindUsersByEmail(ctx context.Context, email string) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", normalizeEmail(email)).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to look up users by email: %w", err)
	}
	return users, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateUserProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.FullName); name != "" {
		user.FullName = name
	}

	if req.ProfileData != nil {
		if user.ProfileData == nil {
			user.ProfileData = make(models.JSONB)
		}
		// Merge with existing profile data
		for key, value := range req.ProfileData {
			user.ProfileData[key] = value
		}
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return validationError("validation failed: %v", err)
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return newError(ErrForbidden, "current password is incorrect")
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(user).Update("password_hash", user.PasswordHash).Error
}

func (s *UserService) GetPreferences(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.preferencesFor(ctx, user)
}

// SetDashboardMode persists the user's last chosen view. The partner view
// requires a partner account or a linked partner record.
func (s *UserService) SetDashboardMode(ctx context.Context, userID uuid.UUID, req *SetDashboardModeRequest) (*Preferences, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs, err := s.preferencesFor(ctx, user)
	if err != nil {
		return nil, err
	}
	if !containsMode(prefs.AvailableModes, req.DashboardMode) {
		return nil, newError(ErrForbidden, "partner dashboard is not available for this account")
	}

	if err := s.db.WithContext(ctx).Model(user).Update("dashboard_mode", req.DashboardMode).Error; err != nil {
		return nil, fmt.Errorf("failed to save preference: %w", err)
	}
	prefs.DashboardMode = req.DashboardMode
	return prefs, nil
}

func (s *UserService) preferencesFor(ctx context.Context, user *models.User) (*Preferences, error) {
	prefs := &Preferences{
		DashboardMode:  user.DashboardMode,
		AvailableModes: []models.DashboardMode{models.DashboardModeBuyer},
	}
	if prefs.DashboardMode == "" {
		prefs.DashboardMode = models.DashboardModeBuyer
	}

	var partner models.Partner
	err := s.db.WithContext(ctx).Select("id").Where("user_id = ?", user.ID).Limit(1).Find(&partner).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up linked partner: %w", err)
	}
	if partner.ID != uuid.Nil {
		prefs.LinkedPartnerID = &partner.ID
	}

	if user.UserType == models.UserTypePartner || user.UserType == models.UserTypeAdmin || prefs.LinkedPartnerID != nil {
		prefs.AvailableModes = append(prefs.AvailableModes, models.DashboardModePartner)
	}
	return prefs, nil
}

func containsMode(modes []models.DashboardMode, mode models.DashboardMode) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}
