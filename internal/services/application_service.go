// internal/services/application_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database"
	"github.com/javajoker/servicemart-backend/internal/metrics"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type ApplicationService struct {
	db            *gorm.DB
	config        *config.Config
	partners      *PartnerService
	leads         *LeadService
	notifications *NotificationService
	outbox        *EmailOutbox
}

type SubmitApplicationRequest struct {
	PartnerID       uuid.UUID               `json:"partner_id" validate:"required"`
	BusinessDetails *models.BusinessDetails `json:"business_details" validate:"required"`
	Experience      string                  `json:"experience"`
	Qualifications  string                  `json:"qualifications"`
	PortfolioLinks  []string                `json:"portfolio_links" validate:"dive,http_url"`
	DocumentLinks   []string                `json:"document_links"`
	SourceLeadID    *uuid.UUID              `json:"source_lead_id,omitempty"`
}

type ReviewApplicationRequest struct {
	Status          models.ApplicationStatus `json:"status" validate:"required,oneof=under_review approved rejected"`
	AdminNotes      string                   `json:"admin_notes,omitempty"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
}

type ApplicationFilter struct {
	Status     models.ApplicationStatus
	PartnerID  *uuid.UUID
	Pagination utils.PaginationParams
}

// ReviewOutcome is the result of an approval or rejection. The decision is
// committed even when NotificationError is set; the email stays queued.
type ReviewOutcome struct {
	Application       *models.PartnerApplication `json:"application"`
	Partner           *models.Partner            `json:"partner"`
	NotificationError string                     `json:"notification_error,omitempty"`
}

func NewApplicationService(db *gorm.DB, cfg *config.Config, partners *PartnerService, leads *LeadService,
	notifications *NotificationService, outbox *EmailOutbox) *ApplicationService {
	return &ApplicationService{
		db:            db,
		config:        cfg,
		partners:      partners,
		leads:         leads,
		notifications: notifications,
		outbox:        outbox,
	}
}

var applicationConstraintMessages = constraintMessages{
	Duplicate: "application already submitted",
	Reference: "invalid partner information",
	Check:     "validation failed",
}

// SubmitApplication records a partner application. When the application came
// from a lead, the partner is linked to an existing account with the lead's
// email if it has none; linking never fails the submission.
func (s *ApplicationService) SubmitApplication(ctx context.Context, req *SubmitApplicationRequest) (*models.PartnerApplication, error) {
	req.PortfolioLinks = compactLinks(req.PortfolioLinks)
	req.DocumentLinks = compactLinks(req.DocumentLinks)

	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	partner, err := s.partners.GetPartner(ctx, req.PartnerID)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(ErrInvalidReference, "Invalid partner ID")
		}
		return nil, classifyWriteError(ctx, err, applicationConstraintMessages)
	}

	var lead *models.PartnerLead
	if req.SourceLeadID != nil {
		lead, err = s.leads.GetLead(ctx, *req.SourceLeadID)
		if err != nil {
			logrus.WithError(err).WithField("lead_id", *req.SourceLeadID).Warn("source lead lookup failed")
			lead = nil
		} else if partner.UserID == nil {
			s.linkFromLead(ctx, partner.ID, lead.Email)
		}
	}

	application := &models.PartnerApplication{
		PartnerID:       partner.ID,
		BusinessDetails: datatypes.NewJSONType(withDefaults(*req.BusinessDetails)),
		Experience:      strings.TrimSpace(req.Experience),
		Qualifications:  strings.TrimSpace(req.Qualifications),
		PortfolioLinks:  datatypes.NewJSONSlice(req.PortfolioLinks),
		DocumentLinks:   datatypes.NewJSONSlice(req.DocumentLinks),
		Status:          models.ApplicationStatusSubmitted,
		ApplicationDate: time.Now().UTC(),
	}
	if lead != nil {
		application.SourceLeadID = &lead.ID
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(application).Error; err != nil {
			return err
		}
		if lead != nil {
			return markLeadConverted(tx, lead.ID, partner.ID)
		}
		return nil
	})
	if err != nil {
		return nil, classifyWriteError(ctx, err, applicationConstraintMessages)
	}

	logrus.WithFields(logrus.Fields{
		"application_id": application.ID,
		"partner_id":     partner.ID,
	}).Info("partner application submitted")

	return application, nil
}

func (s *ApplicationService) linkFromLead(ctx context.Context, partnerID uuid.UUID, email string) {
	result, err := s.partners.LinkPartnerAccount(ctx, partnerID, email)
	if err != nil {
		logrus.WithError(err).WithField("partner_id", partnerID).Warn("partner account linking failed")
		return
	}
	if result.Status != LinkStatusLinked {
		logrus.WithFields(logrus.Fields{
			"partner_id":  partnerID,
			"link_status": result.Status,
		}).Info("partner not linked from lead")
	}
}

// ReviewApplication moves an application through the review state machine.
// It does not touch the partner record; see ApproveApplication.
func (s *ApplicationService) ReviewApplication(ctx context.Context, applicationID uuid.UUID, req *ReviewApplicationRequest) (*models.PartnerApplication, error) {
	if err := validateReview(req); err != nil {
		return nil, err
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	var application *models.PartnerApplication
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		application, err = reviewInTx(tx, applicationID, req)
		return err
	})
	if err != nil {
		return nil, classifyWriteError(ctx, err, applicationConstraintMessages)
	}

	metrics.RecordApplicationReview(string(application.Status))
	return application, nil
}

func (s *ApplicationService) ApproveApplication(ctx context.Context, applicationID uuid.UUID, adminNotes string) (*ReviewOutcome, error) {
	return s.decide(ctx, applicationID, &ReviewApplicationRequest{
		Status:     models.ApplicationStatusApproved,
		AdminNotes: adminNotes,
	}, models.PartnerStatusApproved)
}

// RejectApplication requires a reason of at least ten non-blank characters,
// checked before the store is touched.
func (s *ApplicationService) RejectApplication(ctx context.Context, applicationID uuid.UUID, reason, adminNotes string) (*ReviewOutcome, error) {
	return s.decide(ctx, applicationID, &ReviewApplicationRequest{
		Status:          models.ApplicationStatusRejected,
		AdminNotes:      adminNotes,
		RejectionReason: reason,
	}, models.PartnerStatusRejected)
}

func (s *ApplicationService) decide(ctx context.Context, applicationID uuid.UUID, req *ReviewApplicationRequest,
	partnerStatus models.PartnerStatus) (*ReviewOutcome, error) {
	if err := validateReview(req); err != nil {
		return nil, err
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	outcome := &ReviewOutcome{}
	var job *models.EmailJob

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		application, err := reviewInTx(tx, applicationID, req)
		if err != nil {
			return err
		}
		if err := setPartnerStatus(tx, application.PartnerID, partnerStatus); err != nil {
			return err
		}

		var partner models.Partner
		if err := tx.First(&partner, "id = ?", application.PartnerID).Error; err != nil {
			return lookupError(err, "partner")
		}

		msg, err := s.notifications.ApplicationStatusEmail(&partner, application)
		if err != nil {
			return err
		}
		job, err = s.outbox.Enqueue(tx, msg, EmailRef{
			Kind:         EmailKindApplicationStatus,
			ResourceType: "partner_application",
			ResourceID:   &application.ID,
		}, true)
		if err != nil {
			return err
		}

		if partner.UserID != nil {
			if _, err := s.notifications.Notify(tx, NotificationInput{
				UserID:              *partner.UserID,
				Type:                NotificationTypeApplicationStatus,
				Title:               "Partner application " + string(application.Status),
				Message:             msg.Subject,
				Priority:            models.ImportanceHigh,
				RelatedResourceType: "partner_application",
				RelatedResourceID:   &application.ID,
			}); err != nil {
				return err
			}
		}

		outcome.Application = application
		outcome.Partner = &partner
		return nil
	})
	if err != nil {
		return nil, classifyWriteError(ctx, err, applicationConstraintMessages)
	}

	metrics.RecordApplicationReview(string(req.Status))

	// The decision is committed; delivery failure leaves the job queued.
	if sendErr := s.outbox.Deliver(context.WithoutCancel(ctx), job); sendErr != nil {
		outcome.NotificationError = sendErr.Error()
		logrus.WithError(sendErr).WithFields(logrus.Fields{
			"application_id": applicationID,
			"email_job_id":   job.ID,
		}).Warn("application status email not delivered, queued for retry")
	}

	return outcome, nil
}

func validateReview(req *ReviewApplicationRequest) error {
	if req.Status == models.ApplicationStatusRejected && !utils.ValidRejectionReason(req.RejectionReason) {
		return validationError("rejection reason must be at least %d characters", utils.MinRejectionReasonLength)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return validationError("validation failed: %v", err)
	}
	return nil
}

func reviewInTx(tx *gorm.DB, applicationID uuid.UUID, req *ReviewApplicationRequest) (*models.PartnerApplication, error) {
	var application models.PartnerApplication
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&application, "id = ?", applicationID).Error; err != nil {
		return nil, lookupError(err, "application")
	}

	if !application.Status.CanTransitionTo(req.Status) {
		return nil, newError(ErrInvalidTransition,
			fmt.Sprintf("cannot change application from %s to %s", application.Status, req.Status))
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      req.Status,
		"review_date": &now,
	}
	if notes := strings.TrimSpace(req.AdminNotes); notes != "" {
		updates["admin_notes"] = notes
	}
	if req.Status == models.ApplicationStatusRejected {
		updates["rejection_reason"] = strings.TrimSpace(req.RejectionReason)
	}

	if err := tx.Model(&application).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := tx.First(&application, "id = ?", applicationID).Error; err != nil {
		return nil, err
	}
	return &application, nil
}

func (s *ApplicationService) GetApplication(ctx context.Context, applicationID uuid.UUID) (*models.PartnerApplication, error) {
	var application models.PartnerApplication
	if err := s.db.WithContext(ctx).Preload("Partner").First(&application, "id = ?", applicationID).Error; err != nil {
		return nil, lookupError(err, "application")
	}
	return &application, nil
}

func (s *ApplicationService) GetApplicationByPartner(ctx context.Context, partnerID uuid.UUID) (*models.PartnerApplication, error) {
	var application models.PartnerApplication
	if err := s.db.WithContext(ctx).Preload("Partner").
		Where("partner_id = ?", partnerID).
		First(&application).Error; err != nil {
		return nil, lookupError(err, "application")
	}
	return &application, nil
}

func (s *ApplicationService) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.PartnerApplication, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PartnerApplication{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	var applications []models.PartnerApplication
	query = utils.ApplySort(query.Preload("Partner"), filter.Pagination, []string{"created_at", "application_date", "review_date", "status"})
	if err := utils.ApplyPagination(query, filter.Pagination).Find(&applications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	return applications, total, nil
}

func compactLinks(links []string) []string {
	out := make([]string, 0, len(links))
	for _, link := range links {
		if l := strings.TrimSpace(link); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func withDefaults(details models.BusinessDetails) models.BusinessDetails {
	if details.Services == nil {
		details.Services = []string{}
	}
	return details
}
