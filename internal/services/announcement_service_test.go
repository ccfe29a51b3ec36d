package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/servicemart-backend/internal/models"
)

func TestCreateAnnouncementFansOutToGroups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := createUser(t, env.db, "admin@example.com", models.UserTypeAdmin)
	buyer := createUser(t, env.db, "buyer@example.com", models.UserTypeBuyer)
	partnerUser := createUser(t, env.db, "partner@example.com", models.UserTypePartner)
	linkedBuyer := createUser(t, env.db, "linked@example.com", models.UserTypeBuyer)
	partner := createPartner(t, env.db, "linked@example.com", models.PartnerStatusApproved)
	require.NoError(t, env.db.Model(partner).Update("user_id", linkedBuyer.ID).Error)
	suspended := createUser(t, env.db, "gone@example.com", models.UserTypePartner)
	require.NoError(t, env.db.Model(suspended).Update("status", models.UserStatusSuspended).Error)

	result, err := env.announcements.CreateAnnouncement(ctx, admin.ID, &CreateAnnouncementRequest{
		Title:            "New payout schedule",
		Content:          "Payouts now run weekly.",
		Importance:       models.ImportanceHigh,
		TargetUserGroups: []string{models.UserGroupPartners},
		SendEmail:        true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.FanoutError)
	assert.Equal(t, 2, result.NotificationsCreated)
	assert.Equal(t, 2, result.EmailsQueued)

	for _, id := range []uuid.UUID{partnerUser.ID, linkedBuyer.ID} {
		count, err := env.notifications.UnreadCount(ctx, id)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	}
	for _, id := range []uuid.UUID{admin.ID, buyer.ID, suspended.ID} {
		count, err := env.notifications.UnreadCount(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, count)
	}

	var jobs []models.EmailJob
	require.NoError(t, env.db.Where("kind = ?", EmailKindAnnouncement).Find(&jobs).Error)
	require.Len(t, jobs, 2)
	for _, job := range jobs {
		assert.Equal(t, models.EmailJobStatusPending, job.Status)
		assert.Contains(t, job.HTMLBody, "Payouts now run weekly.")
	}
}

func TestCreateAnnouncementDefaultsToEveryone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := createUser(t, env.db, "admin@example.com", models.UserTypeAdmin)
	createUser(t, env.db, "buyer@example.com", models.UserTypeBuyer)
	createUser(t, env.db, "partner@example.com", models.UserTypePartner)

	result, err := env.announcements.CreateAnnouncement(ctx, admin.ID, &CreateAnnouncementRequest{
		Title:   "Maintenance",
		Content: "Short downtime tonight.",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{models.UserGroupAll}, []string(result.Announcement.TargetUserGroups))
	assert.Equal(t, models.ImportanceMedium, result.Announcement.Importance)
	assert.Equal(t, 3, result.NotificationsCreated)
	assert.Zero(t, result.EmailsQueued)
}

func TestCreateAnnouncementValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := time.Now().UTC()
	end := start.Add(-time.Hour)

	_, err := env.announcements.CreateAnnouncement(ctx, uuid.New(), &CreateAnnouncementRequest{
		Title: "Backwards", Content: "x", StartDate: &start, EndDate: &end,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.announcements.CreateAnnouncement(ctx, uuid.New(), &CreateAnnouncementRequest{
		Title: "Bad group", Content: "x", TargetUserGroups: []string{"vendors"},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFetchActiveAnnouncements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	admin := uuid.New()

	past := now.Add(-48 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	create := func(title string, start time.Time, end *time.Time, groups ...string) {
		_, err := env.announcements.CreateAnnouncement(ctx, admin, &CreateAnnouncementRequest{
			Title: title, Content: title, StartDate: &start, EndDate: end, TargetUserGroups: groups,
		})
		require.NoError(t, err)
	}
	create("open ended", past, nil)
	create("expired", past, &yesterday)
	create("scheduled", tomorrow, nil)
	create("running", yesterday, &tomorrow, models.UserGroupBuyers)
	create("partners only", yesterday, nil, models.UserGroupPartners)

	titles := func(list []models.Announcement) []string {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, a.Title)
		}
		return out
	}

	all, err := env.announcements.FetchActiveAnnouncements(ctx, now, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"open ended", "running", "partners only"}, titles(all))

	buyers, err := env.announcements.FetchActiveAnnouncements(ctx, now, models.UserGroupBuyers)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"open ended", "running"}, titles(buyers))

	later, err := env.announcements.FetchActiveAnnouncements(ctx, now.Add(365*24*time.Hour), "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"open ended", "scheduled", "partners only"}, titles(later))
}

func TestDeleteAnnouncementRemovesNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := createUser(t, env.db, "admin@example.com", models.UserTypeAdmin)

	result, err := env.announcements.CreateAnnouncement(ctx, admin.ID, &CreateAnnouncementRequest{Title: "Bye", Content: "Soon gone"})
	require.NoError(t, err)
	require.Equal(t, 1, result.NotificationsCreated)

	require.NoError(t, env.announcements.DeleteAnnouncement(ctx, result.Announcement.ID))

	_, err = env.announcements.GetAnnouncement(ctx, result.Announcement.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	count, err := env.notifications.UnreadCount(ctx, admin.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, env.announcements.DeleteAnnouncement(ctx, result.Announcement.ID), ErrNotFound)
}

func TestGroupForUserType(t *testing.T) {
	assert.Equal(t, models.UserGroupAdmins, GroupForUserType(models.UserTypeAdmin))
	assert.Equal(t, models.UserGroupPartners, GroupForUserType(models.UserTypePartner))
	assert.Equal(t, models.UserGroupBuyers, GroupForUserType(models.UserTypeBuyer))
}
