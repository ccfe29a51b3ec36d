package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/servicemart-backend/internal/database/dbtest"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

func submitRequest(partnerID uuid.UUID) *SubmitApplicationRequest {
	return &SubmitApplicationRequest{
		PartnerID: partnerID,
		BusinessDetails: &models.BusinessDetails{
			YearsInBusiness: "5",
			Industry:        "Design",
		},
		Experience: "Ten years of branding work",
	}
}

func TestSubmitApplicationInvalidPartner(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.applications.SubmitApplication(context.Background(), submitRequest(uuid.New()))
	require.ErrorIs(t, err, ErrInvalidReference)
	assert.Equal(t, "Invalid partner ID", err.Error())
}

func TestSubmitApplicationDropsBlankLinks(t *testing.T) {
	env := newTestEnv(t)
	partner := createPartner(t, env.db, "links@example.com", models.PartnerStatusPending)

	req := submitRequest(partner.ID)
	req.PortfolioLinks = []string{"", "https://portfolio.example.com", "   "}
	req.DocumentLinks = []string{" "}

	application, err := env.applications.SubmitApplication(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://portfolio.example.com"}, []string(application.PortfolioLinks))
	assert.Empty(t, application.DocumentLinks)
	assert.Equal(t, models.ApplicationStatusSubmitted, application.Status)

	stored, err := env.applications.GetApplication(context.Background(), application.ID)
	require.NoError(t, err)
	assert.Equal(t, "Design", stored.BusinessDetails.Data().Industry)
	assert.NotNil(t, stored.BusinessDetails.Data().Services)
}

func TestSubmitApplicationRejectsBadPortfolioURL(t *testing.T) {
	env := newTestEnv(t)
	partner := createPartner(t, env.db, "badlink@example.com", models.PartnerStatusPending)

	req := submitRequest(partner.ID)
	req.PortfolioLinks = []string{"not-a-url"}

	_, err := env.applications.SubmitApplication(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitApplicationTwice(t *testing.T) {
	env := newTestEnv(t)
	partner := createPartner(t, env.db, "twice@example.com", models.PartnerStatusPending)

	_, err := env.applications.SubmitApplication(context.Background(), submitRequest(partner.ID))
	require.NoError(t, err)

	_, err = env.applications.SubmitApplication(context.Background(), submitRequest(partner.ID))
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "application already submitted", err.Error())
}

func TestSubmitApplicationFromLead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := createUser(t, env.db, "lead@example.com", models.UserTypePartner)
	partner := createPartner(t, env.db, "studio@example.com", models.PartnerStatusPending)
	lead, err := env.leads.CreateLead(ctx, &CreateLeadRequest{Email: "LEAD@example.com", Source: "webinar"})
	require.NoError(t, err)

	req := submitRequest(partner.ID)
	req.SourceLeadID = &lead.ID
	application, err := env.applications.SubmitApplication(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, application.SourceLeadID)
	assert.Equal(t, lead.ID, *application.SourceLeadID)

	linked, err := env.partners.GetPartner(ctx, partner.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.UserID)
	assert.Equal(t, user.ID, *linked.UserID)

	converted, err := env.leads.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusConverted, converted.Status)
}

func TestSubmitApplicationFromLeadWithoutAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	partner := createPartner(t, env.db, "solo@example.com", models.PartnerStatusPending)
	lead, err := env.leads.CreateLead(ctx, &CreateLeadRequest{Email: "nobody@example.com"})
	require.NoError(t, err)

	req := submitRequest(partner.ID)
	req.SourceLeadID = &lead.ID
	_, err = env.applications.SubmitApplication(ctx, req)
	require.NoError(t, err)

	stored, err := env.partners.GetPartner(ctx, partner.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.UserID)
}

func TestApproveApplication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := createUser(t, env.db, "approve@example.com", models.UserTypePartner)
	partner := createPartner(t, env.db, "approve@example.com", models.PartnerStatusPending)
	require.NoError(t, env.db.Model(partner).Update("user_id", user.ID).Error)
	application, err := env.applications.SubmitApplication(ctx, submitRequest(partner.ID))
	require.NoError(t, err)

	outcome, err := env.applications.ApproveApplication(ctx, application.ID, "looks good")
	require.NoError(t, err)
	assert.Empty(t, outcome.NotificationError)
	assert.Equal(t, models.ApplicationStatusApproved, outcome.Application.Status)
	assert.Equal(t, models.PartnerStatusApproved, outcome.Partner.Status)
	assert.NotNil(t, outcome.Application.ReviewDate)
	assert.Equal(t, 1, env.mailer.count())

	var job models.EmailJob
	require.NoError(t, env.db.Where("kind = ?", EmailKindApplicationStatus).First(&job).Error)
	assert.Equal(t, models.EmailJobStatusSent, job.Status)

	unread, err := env.notifications.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	_, err = env.applications.RejectApplication(ctx, application.ID, "changed our minds entirely", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveApplicationWithFailingMailer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailer.failWith("smtp unavailable")

	partner := createPartner(t, env.db, "mailfail@example.com", models.PartnerStatusPending)
	application, err := env.applications.SubmitApplication(ctx, submitRequest(partner.ID))
	require.NoError(t, err)

	outcome, err := env.applications.ApproveApplication(ctx, application.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "smtp unavailable", outcome.NotificationError)

	stored, err := env.partners.GetPartner(ctx, partner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerStatusApproved, stored.Status)

	var job models.EmailJob
	require.NoError(t, env.db.Where("kind = ?", EmailKindApplicationStatus).First(&job).Error)
	assert.Equal(t, models.EmailJobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.NotNil(t, job.NextRetryAt)
	require.NotNil(t, job.LastError)
	assert.Equal(t, "smtp unavailable", *job.LastError)
}

func TestRejectApplication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	partner := createPartner(t, env.db, "reject@example.com", models.PartnerStatusPending)
	application, err := env.applications.SubmitApplication(ctx, submitRequest(partner.ID))
	require.NoError(t, err)

	_, err = env.applications.ReviewApplication(ctx, application.ID, &ReviewApplicationRequest{Status: models.ApplicationStatusUnderReview})
	require.NoError(t, err)

	outcome, err := env.applications.RejectApplication(ctx, application.ID, "  Portfolio does not meet our bar  ", "")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, outcome.Application.Status)
	assert.Equal(t, "Portfolio does not meet our bar", outcome.Application.RejectionReason)
	assert.Equal(t, models.PartnerStatusRejected, outcome.Partner.Status)

	_, err = env.applications.ReviewApplication(ctx, application.ID, &ReviewApplicationRequest{Status: models.ApplicationStatusUnderReview})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectApplicationShortReasonTouchesNothing(t *testing.T) {
	db, mock := dbtest.NewMock(t)
	cfg := testConfig()
	notifications := NewNotificationService(db, cfg)
	outbox := NewEmailOutbox(db, &fakeMailer{}, 3, 10)
	users := NewUserService(db)
	service := NewApplicationService(db, cfg, NewPartnerService(db, cfg, users), NewLeadService(db), notifications, outbox)

	for _, reason := range []string{"", "too short", "         x         "} {
		_, err := service.RejectApplication(context.Background(), uuid.New(), reason, "")
		assert.ErrorIs(t, err, ErrValidation, "reason %q", reason)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApplicationsByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		partner := createPartner(t, env.db, email, models.PartnerStatusPending)
		_, err := env.applications.SubmitApplication(ctx, submitRequest(partner.ID))
		require.NoError(t, err)
	}

	apps, total, err := env.applications.ListApplications(ctx, ApplicationFilter{
		Status:     models.ApplicationStatusSubmitted,
		Pagination: utils.DefaultPagination(),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, apps, 3)
}
