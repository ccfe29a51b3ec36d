package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

func TestAdminSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	adminID := uuid.New()

	assert.Equal(t, "fallback", env.admin.StringSetting(ctx, "general", "platform_name", "fallback"))
	assert.Equal(t, 7, env.admin.IntSetting(ctx, SettingCategoryTrials, SettingKeyApprovalThreshold, 7))

	setting, err := env.admin.UpdateSetting(ctx, "general", "platform_name", &UpdateSettingRequest{
		Value: "ServiceMart", DataType: "string", Description: "Name shown to users",
	}, adminID)
	require.NoError(t, err)
	assert.Equal(t, adminID, *setting.UpdatedBy)

	_, err = env.admin.UpdateSetting(ctx, "general", "platform_name", &UpdateSettingRequest{
		Value: "Marketplace", DataType: "string",
	}, adminID)
	require.NoError(t, err)

	all, err := env.admin.GetSettings(ctx)
	require.NoError(t, err)
	require.Contains(t, all, "general.platform_name")
	assert.Equal(t, "Name shown to users", all["general.platform_name"].Description)
	assert.Equal(t, "Marketplace", env.admin.StringSetting(ctx, "general", "platform_name", ""))

	_, err = env.admin.UpdateSetting(ctx, SettingCategoryPayments, SettingKeyPlatformFeePercent, &UpdateSettingRequest{
		Value: 12.5, DataType: "float",
	}, adminID)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, env.admin.FloatSetting(ctx, SettingCategoryPayments, SettingKeyPlatformFeePercent, 0), 0.001)

	var missing string
	assert.ErrorIs(t, env.admin.GetSetting(ctx, "general", "nope", &missing), ErrNotFound)

	// a malformed value falls back
	_, err = env.admin.UpdateSetting(ctx, SettingCategoryTrials, SettingKeyApprovalThreshold, &UpdateSettingRequest{
		Value: "three", DataType: "string",
	}, adminID)
	require.NoError(t, err)
	assert.Equal(t, 3, env.admin.IntSetting(ctx, SettingCategoryTrials, SettingKeyApprovalThreshold, 3))
}

func TestSettingValuesRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	adminID := uuid.New()

	_, err := env.admin.UpdateSetting(ctx, SettingCategoryTrials, SettingKeyApprovalThreshold, &UpdateSettingRequest{
		Value: 1, DataType: "integer",
	}, adminID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.admin.IntSetting(ctx, SettingCategoryTrials, SettingKeyApprovalThreshold, 3))

	_, err = env.admin.UpdateSetting(ctx, "general", "maintenance", &UpdateSettingRequest{
		Value: false, DataType: "boolean",
	}, adminID)
	require.NoError(t, err)
	enabled := true
	require.NoError(t, env.admin.GetSetting(ctx, "general", "maintenance", &enabled))
	assert.False(t, enabled)

	var stored models.AdminSettings
	require.NoError(t, env.db.Where("category = ? AND key = ?", SettingCategoryTrials, SettingKeyApprovalThreshold).First(&stored).Error)
	assert.Equal(t, "1", string(stored.Value))
}

func TestUpdateSettingValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.admin.UpdateSetting(ctx, "general", "x", &UpdateSettingRequest{Value: "v", DataType: "yaml"}, uuid.New())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.admin.UpdateSetting(ctx, SettingCategoryAssignment, SettingKeyStrategy, &UpdateSettingRequest{
		Value: "fastest", DataType: "string",
	}, uuid.New())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.admin.UpdateSetting(ctx, SettingCategoryAssignment, SettingKeyStrategy, &UpdateSettingRequest{
		Value: StrategyRoundRobin, DataType: "string",
	}, uuid.New())
	assert.NoError(t, err)
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := createUser(t, env.db, "admin@example.com", models.UserTypeAdmin)
	buyer := createUser(t, env.db, "buyer@example.com", models.UserTypeBuyer)
	createUser(t, env.db, "partner@example.com", models.UserTypePartner)

	require.NoError(t, env.admin.UpdateUserStatus(ctx, buyer.ID, models.UserStatusSuspended, admin.ID))

	suspended := models.UserStatusSuspended
	users, total, err := env.admin.ListUsers(ctx, AdminUserFilter{PaginationParams: utils.DefaultPagination(), Status: &suspended})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, buyer.ID, users[0].ID)

	filter := AdminUserFilter{PaginationParams: utils.DefaultPagination()}
	filter.Search = "PARTNER@"
	_, total, err = env.admin.ListUsers(ctx, filter)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	assert.ErrorIs(t, env.admin.UpdateUserStatus(ctx, admin.ID, models.UserStatusSuspended, admin.ID), ErrForbidden)
	assert.ErrorIs(t, env.admin.UpdateUserStatus(ctx, buyer.ID, "banned", admin.ID), ErrValidation)
	assert.ErrorIs(t, env.admin.UpdateUserStatus(ctx, uuid.New(), models.UserStatusActive, admin.ID), ErrNotFound)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createUser(t, env.db, "buyer@example.com", models.UserTypeBuyer)
	createPartner(t, env.db, "pending@example.com", models.PartnerStatusPending)
	createPartner(t, env.db, "approved@example.com", models.PartnerStatusApproved)
	createService(t, env.db, "Logo design", 100)
	_, err := env.newsletter.Subscribe(ctx, &SubscribeRequest{Email: "reader@example.com"})
	require.NoError(t, err)

	stats, err := env.admin.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalUsers)
	assert.EqualValues(t, 2, stats.TotalPartners)
	assert.EqualValues(t, 1, stats.PendingPartners)
	assert.EqualValues(t, 1, stats.ApprovedPartners)
	assert.EqualValues(t, 1, stats.ActiveServices)
	assert.EqualValues(t, 1, stats.NewsletterSubscribers)
	assert.Zero(t, stats.TotalOrders)
}
