// internal/services/trial_service.go
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
	"gorm.io/gorm/clause"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database"
	"github.com/javajoker/servicemart-backend/internal/metrics"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type TrialService struct {
	db            *gorm.DB
	config        *config.Config
	settings      *AdminService
	notifications *NotificationService
}

type AssignTrialRequest struct {
	PartnerID uuid.UUID `json:"partner_id" validate:"required"`
	ServiceID uuid.UUID `json:"service_id" validate:"required"`
}

type CompleteTrialRequest struct {
	QualityRating    *int   `json:"quality_rating,omitempty" validate:"omitempty,min=1,max=5"`
	OnTimeDelivery   *bool  `json:"on_time_delivery,omitempty"`
	ResponseRating   *int   `json:"response_rating,omitempty" validate:"omitempty,min=1,max=5"`
	CustomerFeedback string `json:"customer_feedback,omitempty"`
}

type FailTrialRequest struct {
	CustomerFeedback string `json:"customer_feedback" validate:"required"`
}

// TrialCompletion reports the completed trial and whether it promoted the partner.
type TrialCompletion struct {
	Trial           *models.TrialService `json:"trial"`
	CompletedTrials int64                `json:"completed_trials"`
	PartnerPromoted bool                 `json:"partner_promoted"`
}

func NewTrialService(db *gorm.DB, cfg *config.Config, settings *AdminService, notifications *NotificationService) *TrialService {
	return &TrialService{
		db:            db,
		config:        cfg,
		settings:      settings,
		notifications: notifications,
	}
}

func (s *TrialService) AssignTrialService(ctx context.Context, req *AssignTrialRequest) (*models.TrialService, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	trial := &models.TrialService{
		PartnerID:    req.PartnerID,
		ServiceID:    req.ServiceID,
		Status:       models.TrialStatusAssigned,
		AssignedDate: time.Now().UTC(),
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var partner models.Partner
		if err := tx.First(&partner, "id = ?", req.PartnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrInvalidReference, "invalid partner or service")
			}
			return err
		}
		if partner.Status == models.PartnerStatusRejected {
			return newError(ErrInvalidTransition, "cannot assign trials to a rejected partner")
		}
		if err := requireService(tx, req.ServiceID); err != nil {
			return err
		}

		var open int64
		if err := tx.Model(&models.TrialService{}).
			Where("partner_id = ? AND service_id = ? AND status = ?", req.PartnerID, req.ServiceID, models.TrialStatusAssigned).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return newError(ErrDuplicate, "trial already assigned for this service")
		}

		if err := tx.Create(trial).Error; err != nil {
			return err
		}

		if partner.UserID != nil {
			_, err := s.notifications.Notify(tx, NotificationInput{
				UserID:              *partner.UserID,
				Type:                NotificationTypeTrialAssigned,
				Title:               "New trial service assigned",
				Message:             "A trial service has been assigned to you. Complete it to progress your partner approval.",
				RelatedResourceType: "trial_service",
				RelatedResourceID:   &trial.ID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, classifyWriteError(ctx, err, constraintMessages{
			Duplicate: "trial already assigned for this service",
			Reference: "invalid partner or service",
			Check:     "validation failed",
		})
	}

	metrics.RecordTrialOutcome(string(models.TrialStatusAssigned))
	return trial, nil
}

// CompleteTrialService records the rating and, in the same transaction,
// approves the partner once its completed trials reach the approval threshold.
// Promoting an already approved partner is a no-op.
func (s *TrialService) CompleteTrialService(ctx context.Context, trialID uuid.UUID, req *CompleteTrialRequest) (*TrialCompletion, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	threshold := s.approvalThreshold(ctx)

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	result := &TrialCompletion{}
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		trial, err := lockAssignedTrial(tx, trialID, models.TrialStatusCompleted)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Model(trial).Updates(map[string]interface{}{
			"status":            models.TrialStatusCompleted,
			"quality_rating":    req.QualityRating,
			"on_time_delivery":  req.OnTimeDelivery,
			"response_rating":   req.ResponseRating,
			"customer_feedback": strings.TrimSpace(req.CustomerFeedback),
			"completion_date":   &now,
		}).Error; err != nil {
			return err
		}

		count, err := completedTrialCount(tx, trial.PartnerID)
		if err != nil {
			return err
		}
		result.CompletedTrials = count

		if count >= int64(threshold) {
			promoted, err := s.promotePartner(tx, trial.PartnerID)
			if err != nil {
				return err
			}
			result.PartnerPromoted = promoted
		}

		if err := tx.First(trial, "id = ?", trialID).Error; err != nil {
			return err
		}
		result.Trial = trial
		return nil
	})
	if err != nil {
		return nil, classifyWriteError(ctx, err, defaultConstraintMessages)
	}

	metrics.RecordTrialOutcome(string(models.TrialStatusCompleted))
	if result.PartnerPromoted {
		metrics.RecordPartnerPromotion()
		logrus.WithFields(logrus.Fields{
			"partner_id":       result.Trial.PartnerID,
			"completed_trials": result.CompletedTrials,
		}).Info("partner approved after completing trials")
	}

	return result, nil
}

func (s *TrialService) FailTrialService(ctx context.Context, trialID uuid.UUID, req *FailTrialRequest) (*models.TrialService, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	var trial *models.TrialService
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		trial, err = lockAssignedTrial(tx, trialID, models.TrialStatusFailed)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Model(trial).Updates(map[string]interface{}{
			"status":            models.TrialStatusFailed,
			"customer_feedback": strings.TrimSpace(req.CustomerFeedback),
			"completion_date":   &now,
		}).Error; err != nil {
			return err
		}
		return tx.First(trial, "id = ?", trialID).Error
	})
	if err != nil {
		return nil, classifyWriteError(ctx, err, defaultConstraintMessages)
	}

	metrics.RecordTrialOutcome(string(models.TrialStatusFailed))
	return trial, nil
}

func (s *TrialService) GetTrialService(ctx context.Context, trialID uuid.UUID) (*models.TrialService, error) {
	var trial models.TrialService
	if err := s.db.WithContext(ctx).Preload("Service").First(&trial, "id = ?", trialID).Error; err != nil {
		return nil, lookupError(err, "trial")
	}
	return &trial, nil
}

func (s *TrialService) GetCompletedTrialCount(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	return completedTrialCount(s.db.WithContext(ctx), partnerID)
}

func (s *TrialService) ListTrialServices(ctx context.Context, partnerID uuid.UUID) ([]models.TrialService, error) {
	var trials []models.TrialService
	if err := s.db.WithContext(ctx).
		Preload("Service").
		Where("partner_id = ?", partnerID).
		Order("assigned_date DESC").
		Find(&trials).Error; err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	return trials, nil
}

func (s *TrialService) approvalThreshold(ctx context.Context) int {
	threshold := s.config.Workflow.TrialApprovalThreshold
	if s.settings != nil {
		threshold = s.settings.IntSetting(ctx, SettingCategoryTrials, SettingKeyApprovalThreshold, threshold)
	}
	if threshold < 1 {
		threshold = 1
	}
	return threshold
}

// promotePartner approves the partner unless it already is, and reports
// whether the status changed.
func (s *TrialService) promotePartner(tx *gorm.DB, partnerID uuid.UUID) (bool, error) {
	update := tx.Model(&models.Partner{}).
		Where("id = ? AND status <> ?", partnerID, models.PartnerStatusApproved).
		Update("status", models.PartnerStatusApproved)
	if update.Error != nil {
		return false, update.Error
	}
	if update.RowsAffected == 0 {
		return false, nil
	}

	var partner models.Partner
	if err := tx.Select("id", "user_id").First(&partner, "id = ?", partnerID).Error; err != nil {
		return false, err
	}
	if partner.UserID != nil {
		if _, err := s.notifications.Notify(tx, NotificationInput{
			UserID:              *partner.UserID,
			Type:                NotificationTypePartnerApproved,
			Title:               "You are now an approved partner",
			Message:             "You have completed your trial services and can now receive orders.",
			Priority:            models.ImportanceHigh,
			RelatedResourceType: "partner",
			RelatedResourceID:   &partner.ID,
		}); err != nil {
			return false, err
		}
	}
	return true, nil
}

func lockAssignedTrial(tx *gorm.DB, trialID uuid.UUID, next models.TrialStatus) (*models.TrialService, error) {
	var trial models.TrialService
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trial, "id = ?", trialID).Error; err != nil {
		return nil, lookupError(err, "trial")
	}
	if trial.Status != models.TrialStatusAssigned {
		return nil, newError(ErrInvalidTransition,
			fmt.Sprintf("cannot change trial from %s to %s", trial.Status, next))
	}
	return &trial, nil
}

func completedTrialCount(db *gorm.DB, partnerID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&models.TrialService{}).
		Where("partner_id = ? AND status = ?", partnerID, models.TrialStatusCompleted).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed trials: %w", err)
	}
	return count, nil
}

func requireService(tx *gorm.DB, serviceID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Service{}).Where("id = ?", serviceID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return newError(ErrInvalidReference, "invalid partner or service")
	}
	return nil
}
