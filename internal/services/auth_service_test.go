package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

var resetCodePattern = regexp.MustCompile(`<strong>(\d{8})</strong>`)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, &RegisterRequest{
		Email:    "  Ada@Example.com ",
		Password: "Secur3!pass",
		FullName: "Ada Lovelace",
		UserType: models.UserTypePartner,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, models.DashboardModePartner, resp.User.DashboardMode)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), claims.UserID)

	login, err := env.auth.Login(ctx, &LoginRequest{Email: "ADA@example.com", Password: "Secur3!pass"})
	require.NoError(t, err)
	require.NotNil(t, login.User.LastLoginAt)

	_, err = env.auth.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.auth.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "Secur3!pass"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := &RegisterRequest{Email: "dup@example.com", Password: "Secur3!pass", FullName: "Dup", UserType: models.UserTypeBuyer}
	_, err := env.auth.Register(ctx, req)
	require.NoError(t, err)

	req.Email = "DUP@example.com"
	_, err = env.auth.Register(ctx, req)
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "user with this email already exists")
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Register(context.Background(), &RegisterRequest{
		Email: "weak@example.com", Password: "password", FullName: "Weak", UserType: models.UserTypeBuyer,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoginSuspendedAccount(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env.db, "suspended@example.com", models.UserTypeBuyer)
	require.NoError(t, env.db.Model(user).Update("status", models.UserStatusSuspended).Error)

	_, err := env.auth.Login(context.Background(), &LoginRequest{Email: user.Email, Password: "Passw0rd!"})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "suspended")
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, &RegisterRequest{
		Email: "refresh@example.com", Password: "Secur3!pass", FullName: "Refresh", UserType: models.UserTypeBuyer,
	})
	require.NoError(t, err)

	refreshed, err := env.auth.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, refreshed.User.ID)

	_, err = env.auth.RefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "reset@example.com", models.UserTypeBuyer)

	require.NoError(t, env.auth.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "Reset@Example.com"}))

	var job models.EmailJob
	require.NoError(t, env.db.Where("kind = ?", EmailKindPasswordReset).First(&job).Error)
	assert.Equal(t, user.Email, job.Recipient)
	assert.Equal(t, models.EmailJobStatusPending, job.Status)

	match := resetCodePattern.FindStringSubmatch(job.HTMLBody)
	require.Len(t, match, 2, "reset email should carry the code")
	code := match[1]

	err := env.auth.ResetPassword(ctx, &ResetPasswordRequest{Email: user.Email, Code: "00000000", NewPassword: "N3w!password"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, env.auth.ResetPassword(ctx, &ResetPasswordRequest{Email: user.Email, Code: code, NewPassword: "N3w!password"}))

	_, err = env.auth.Login(ctx, &LoginRequest{Email: user.Email, Password: "N3w!password"})
	require.NoError(t, err)

	// codes are single use
	err = env.auth.ResetPassword(ctx, &ResetPasswordRequest{Email: user.Email, Code: code, NewPassword: "An0ther!pass"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.auth.ForgotPassword(context.Background(), &ForgotPasswordRequest{Email: "ghost@example.com"}))

	var count int64
	env.db.Model(&models.EmailJob{}).Count(&count)
	assert.Zero(t, count)
}

func TestForgotPasswordInvalidatesOlderCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "twice@example.com", models.UserTypeBuyer)

	require.NoError(t, env.auth.ForgotPassword(ctx, &ForgotPasswordRequest{Email: user.Email}))
	require.NoError(t, env.auth.ForgotPassword(ctx, &ForgotPasswordRequest{Email: user.Email}))

	var open int64
	env.db.Model(&models.PasswordReset{}).Where("user_id = ? AND used_at IS NULL", user.ID).Count(&open)
	assert.EqualValues(t, 1, open)
}
