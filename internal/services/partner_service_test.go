package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/servicemart-backend/internal/models"
)

func TestCreatePartnerNormalizesEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	partner, err := env.partners.CreatePartner(ctx, &CreatePartnerRequest{
		PartnerType:  models.PartnerTypePersonal,
		ContactName:  "  Grace ",
		ContactEmail: " Grace@Example.COM ",
		Website:      "https://grace.dev",
	})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", partner.ContactEmail)
	assert.Equal(t, "Grace", partner.ContactName)
	assert.Equal(t, models.PartnerStatusPending, partner.Status)

	_, err = env.partners.CreatePartner(ctx, &CreatePartnerRequest{
		PartnerType:  models.PartnerTypeAgency,
		ContactName:  "Other",
		ContactEmail: "grace@example.com",
	})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "partner already exists", err.Error())
}

func TestCreatePartnerValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  CreatePartnerRequest
	}{
		{"bad type", CreatePartnerRequest{PartnerType: "company", ContactName: "A", ContactEmail: "a@example.com"}},
		{"missing contact", CreatePartnerRequest{PartnerType: models.PartnerTypeAgency, ContactEmail: "a@example.com"}},
		{"bad email", CreatePartnerRequest{PartnerType: models.PartnerTypeAgency, ContactName: "A", ContactEmail: "nope"}},
		{"bad website", CreatePartnerRequest{PartnerType: models.PartnerTypeAgency, ContactName: "A", ContactEmail: "a@example.com", Website: "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.partners.CreatePartner(context.Background(), &tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUpdatePartnerStatusIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	partner := createPartner(t, env.db, "status@example.com", models.PartnerStatusPending)

	updated, err := env.partners.UpdatePartnerStatus(ctx, partner.ID, models.PartnerStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerStatusApproved, updated.Status)

	again, err := env.partners.UpdatePartnerStatus(ctx, partner.ID, models.PartnerStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerStatusApproved, again.Status)

	_, err = env.partners.UpdatePartnerStatus(ctx, partner.ID, "archived")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.partners.UpdatePartnerStatus(ctx, uuid.New(), models.PartnerStatusApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePartnerPartialFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	partner := createPartner(t, env.db, "partial@example.com", models.PartnerStatusPending)

	updated, err := env.partners.UpdatePartner(ctx, partner.ID, &UpdatePartnerRequest{
		Bio:           strPtr("We build things"),
		EmployeeCount: intPtr(12),
	})
	require.NoError(t, err)
	assert.Equal(t, "We build things", updated.Bio)
	assert.Equal(t, 12, updated.EmployeeCount)
	assert.Equal(t, "Ada", updated.ContactName)
}

func TestLinkPartnerAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("linked", func(t *testing.T) {
		user := createUser(t, env.db, "link@example.com", models.UserTypePartner)
		partner := createPartner(t, env.db, "link@example.com", models.PartnerStatusPending)

		result, err := env.partners.LinkPartnerAccount(ctx, partner.ID, "LINK@example.com")
		require.NoError(t, err)
		assert.Equal(t, LinkStatusLinked, result.Status)
		require.NotNil(t, result.UserID)
		assert.Equal(t, user.ID, *result.UserID)

		again, err := env.partners.LinkPartnerAccount(ctx, partner.ID, "link@example.com")
		require.NoError(t, err)
		assert.Equal(t, LinkStatusAlreadyLinked, again.Status)
	})

	t.Run("not found", func(t *testing.T) {
		partner := createPartner(t, env.db, "orphan@example.com", models.PartnerStatusPending)

		result, err := env.partners.LinkPartnerAccount(ctx, partner.ID, "orphan@example.com")
		require.NoError(t, err)
		assert.Equal(t, LinkStatusNotFound, result.Status)
		assert.Nil(t, result.UserID)
	})

	t.Run("missing partner", func(t *testing.T) {
		_, err := env.partners.LinkPartnerAccount(ctx, uuid.New(), "link@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMarkLeadConvertedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	partner := createPartner(t, env.db, "convert@example.com", models.PartnerStatusPending)

	lead, err := env.leads.CreateLead(ctx, &CreateLeadRequest{Email: " Convert@Example.com ", Source: " landing "})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Equal(t, "convert@example.com", lead.Email)
	assert.Equal(t, "landing", lead.Source)

	require.NoError(t, env.leads.MarkLeadConverted(ctx, lead.ID, partner.ID))
	require.NoError(t, env.leads.MarkLeadConverted(ctx, lead.ID, partner.ID))

	stored, err := env.leads.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusConverted, stored.Status)
	require.NotNil(t, stored.ConvertedPartnerID)
	assert.Equal(t, partner.ID, *stored.ConvertedPartnerID)

	assert.ErrorIs(t, env.leads.MarkLeadConverted(ctx, uuid.New(), partner.ID), ErrNotFound)
}
