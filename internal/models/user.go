// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is an authenticated account. Partner records may be linked to one via Partner.UserID.
type User struct {
	BaseModel
	Email         string        `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FullName      string        `json:"full_name" gorm:"size:255"`
	PasswordHash  string        `json:"-" gorm:"size:255;not null"`
	UserType      UserType      `json:"user_type" gorm:"type:varchar(20);not null;index"`
	Status        UserStatus    `json:"status" gorm:"type:varchar(20);default:'active'"`
	DashboardMode DashboardMode `json:"dashboard_mode" gorm:"type:varchar(20);default:'buyer'"`
	ProfileData   JSONB         `json:"profile_data" gorm:"type:jsonb"`
	LastLoginAt   *time.Time    `json:"last_login_at"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// PasswordReset stores a one-time reset code for a user.
type PasswordReset struct {
	BaseModel
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	CodeHash  string     `json:"-" gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at"`
}
