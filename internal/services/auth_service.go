// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

const passwordResetTTL = time.Hour

type AuthService struct {
	db            *gorm.DB
	cfg           *config.Config
	notifications *NotificationService
	outbox        *EmailOutbox
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,strong_password"`
	FullName string          `json:"full_name" validate:"required,max=255"`
	UserType models.UserType `json:"user_type" validate:"required,oneof=buyer partner"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,strong_password"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config, notifications *NotificationService, outbox *EmailOutbox) *AuthService {
	return &AuthService{
		db:            db,
		cfg:           cfg,
		notifications: notifications,
		outbox:        outbox,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *LoginRequest) Normalize()          { r.Email = normalizeEmail(r.Email) }
func (r *RegisterRequest) Normalize()       { r.Email = normalizeEmail(r.Email) }
func (r *ForgotPasswordRequest) Normalize() { r.Email = normalizeEmail(r.Email) }

func (r *ResetPasswordRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	user := &models.User{
		Email:         req.Email,
		FullName:      strings.TrimSpace(req.FullName),
		UserType:      req.UserType,
		Status:        models.UserStatusActive,
		DashboardMode: models.DashboardModeBuyer,
	}
	if req.UserType == models.UserTypePartner {
		user.DashboardMode = models.DashboardModePartner
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, classifyDBError(err, constraintMessages{
			Duplicate: "user with this email already exists",
			Reference: "invalid user information",
			Check:     "validation failed",
		})
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrForbidden, "invalid email or password")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if user.Status == models.UserStatusSuspended {
		return nil, newError(ErrForbidden, "account is suspended")
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, newError(ErrForbidden, "invalid email or password")
	}

	// Update last login time
	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", &now).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}

	return s.issueTokens(&user)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	userIDStr, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, newError(ErrForbidden, "invalid refresh token")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, newError(ErrForbidden, "invalid user ID in token")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, lookupError(err, "user")
	}

	if user.Status != models.UserStatusActive {
		return nil, newError(ErrForbidden, "account is not active")
	}

	return s.issueTokens(&user)
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Email, string(user.UserType), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
	}, nil
}

// ForgotPassword stores a hashed one-time code and queues the reset email.
// Unknown emails succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) error {
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return validationError("validation failed: %v", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Warn("password reset lookup failed")
		}
		return nil
	}

	code, err := utils.GenerateResetCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}

	msg, err := s.notifications.PasswordResetEmail(&user, code)
	if err != nil {
		return err
	}

	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		// Invalidate older codes
		now := time.Now().UTC()
		if err := tx.Model(&models.PasswordReset{}).
			Where("user_id = ? AND used_at IS NULL", user.ID).
			Update("used_at", &now).Error; err != nil {
			return err
		}

		reset := &models.PasswordReset{
			UserID:    user.ID,
			CodeHash:  utils.HashString(user.ID.String() + ":" + code),
			ExpiresAt: now.Add(passwordResetTTL),
		}
		if err := tx.Create(reset).Error; err != nil {
			return fmt.Errorf("failed to save reset code: %w", err)
		}

		_, err := s.outbox.Enqueue(tx, msg, EmailRef{Kind: EmailKindPasswordReset, ResourceType: "user", ResourceID: &user.ID}, false)
		return err
	})
}

func (s *AuthService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return validationError("validation failed: %v", err)
	}

	invalid := validationError("invalid or expired reset code")

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		return invalid
	}

	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var reset models.PasswordReset
		if err := tx.Where("user_id = ? AND code_hash = ? AND used_at IS NULL AND expires_at > ?",
			user.ID, utils.HashString(user.ID.String()+":"+strings.TrimSpace(req.Code)), now).
			First(&reset).Error; err != nil {
			return invalid
		}

		if err := user.SetPassword(req.NewPassword); err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if err := tx.Model(&user).Update("password_hash", user.PasswordHash).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		return tx.Model(&reset).Update("used_at", &now).Error
	})
}

// GetUserByID is the privileged account lookup.
func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, lookupError(err, "user")
	}
	return &user, nil
}
