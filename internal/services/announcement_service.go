// internal/services/announcement_service.go
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

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database"
	"github.com/javajoker/servicemart-backend/internal/metrics"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type AnnouncementService struct {
	db            *gorm.DB
	config        *config.Config
	notifications *NotificationService
	outbox        *EmailOutbox
}

type CreateAnnouncementRequest struct {
	Title            string            `json:"title" validate:"required,max=255"`
	Content          string            `json:"content" validate:"required"`
	Category         string            `json:"category,omitempty" validate:"max=50"`
	Importance       models.Importance `json:"importance,omitempty" validate:"omitempty,oneof=low medium high"`
	StartDate        *time.Time        `json:"start_date,omitempty"`
	EndDate          *time.Time        `json:"end_date,omitempty"`
	TargetUserGroups []string          `json:"target_user_groups,omitempty" validate:"dive,oneof=all buyers partners admins"`
	SendEmail        bool              `json:"send_email"`
}

// AnnouncementResult reports the saved announcement and its fan-out. A fan-out
// failure never removes the announcement.
type AnnouncementResult struct {
	Announcement         *models.Announcement `json:"announcement"`
	NotificationsCreated int                  `json:"notifications_created"`
	EmailsQueued         int                  `json:"emails_queued"`
	FanoutError          string               `json:"fanout_error,omitempty"`
}

type recipient struct {
	ID    uuid.UUID
	Email string
}

func NewAnnouncementService(db *gorm.DB, cfg *config.Config, notifications *NotificationService, outbox *EmailOutbox) *AnnouncementService {
	return &AnnouncementService{
		db:            db,
		config:        cfg,
		notifications: notifications,
		outbox:        outbox,
	}
}

// GroupForUserType maps an account type to its announcement audience.
func GroupForUserType(userType models.UserType) string {
	switch userType {
	case models.UserTypeAdmin:
		return models.UserGroupAdmins
	case models.UserTypePartner:
		return models.UserGroupPartners
	default:
		return models.UserGroupBuyers
	}
}

func (s *AnnouncementService) CreateAnnouncement(ctx context.Context, createdBy uuid.UUID, req *CreateAnnouncementRequest) (*AnnouncementResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	start := time.Now().UTC()
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	var end *time.Time
	if req.EndDate != nil {
		e := req.EndDate.UTC()
		if e.Before(start) {
			return nil, validationError("end_date must not be before start_date")
		}
		end = &e
	}

	groups := normalizeGroups(req.TargetUserGroups)
	importance := req.Importance
	if importance == "" {
		importance = models.ImportanceMedium
	}

	announcement := &models.Announcement{
		Title:            strings.TrimSpace(req.Title),
		Content:          req.Content,
		Category:         strings.TrimSpace(req.Category),
		Importance:       importance,
		StartDate:        start,
		EndDate:          end,
		TargetUserGroups: datatypes.NewJSONSlice(groups),
		SendEmail:        req.SendEmail,
		CreatedBy:        createdBy,
	}

	writeCtx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()
	if err := s.db.WithContext(writeCtx).Create(announcement).Error; err != nil {
		return nil, classifyWriteError(writeCtx, err, defaultConstraintMessages)
	}

	result := &AnnouncementResult{Announcement: announcement}
	created, queued, err := s.fanOut(ctx, announcement)
	result.NotificationsCreated = created
	result.EmailsQueued = queued
	if err != nil {
		result.FanoutError = err.Error()
		logrus.WithError(err).WithField("announcement_id", announcement.ID).Error("announcement fan-out failed")
	}

	logrus.WithFields(logrus.Fields{
		"announcement_id": announcement.ID,
		"groups":          groups,
		"notifications":   created,
		"emails":          queued,
	}).Info("announcement published")

	return result, nil
}

// fanOut writes one notification per recipient and, when requested, queues
// one email each. Both commit together.
func (s *AnnouncementService) fanOut(ctx context.Context, announcement *models.Announcement) (int, int, error) {
	recipients, err := s.recipients(ctx, announcement.TargetUserGroups)
	if err != nil {
		return 0, 0, err
	}
	if len(recipients) == 0 {
		return 0, 0, nil
	}

	inputs := make([]NotificationInput, 0, len(recipients))
	for _, r := range recipients {
		inputs = append(inputs, NotificationInput{
			UserID:              r.ID,
			Type:                NotificationTypeAnnouncement,
			Title:               announcement.Title,
			Message:             announcement.Content,
			Priority:            announcement.Importance,
			RelatedResourceType: "announcement",
			RelatedResourceID:   &announcement.ID,
		})
	}

	var messages []EmailMessage
	if announcement.SendEmail {
		template, err := s.notifications.AnnouncementEmail("", announcement)
		if err != nil {
			metrics.RecordNotificationFanout(0, len(recipients))
			return 0, 0, err
		}
		messages = make([]EmailMessage, 0, len(recipients))
		for _, r := range recipients {
			msg := template
			msg.To = r.Email
			messages = append(messages, msg)
		}
	}

	var created, queued int
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		if created, err = s.notifications.NotifyMany(tx, inputs); err != nil {
			return err
		}
		if len(messages) > 0 {
			queued, err = s.outbox.EnqueueBatch(tx, messages, EmailRef{
				Kind:         EmailKindAnnouncement,
				ResourceType: "announcement",
				ResourceID:   &announcement.ID,
			})
		}
		return err
	})
	if err != nil {
		metrics.RecordNotificationFanout(0, len(recipients))
		return 0, 0, err
	}

	metrics.RecordNotificationFanout(created, 0)
	return created, queued, nil
}

// recipients returns the active users in the target groups. Accounts linked
// to a partner record count as partners.
func (s *AnnouncementService) recipients(ctx context.Context, groups []string) ([]recipient, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).
		Select("id", "email").
		Where("status = ?", models.UserStatusActive)

	if !containsGroup(groups, models.UserGroupAll) {
		var types []models.UserType
		for _, g := range groups {
			switch g {
			case models.UserGroupBuyers:
				types = append(types, models.UserTypeBuyer)
			case models.UserGroupPartners:
				types = append(types, models.UserTypePartner)
			case models.UserGroupAdmins:
				types = append(types, models.UserTypeAdmin)
			}
		}
		if containsGroup(groups, models.UserGroupPartners) {
			linked := s.db.Model(&models.Partner{}).Select("user_id").Where("user_id IS NOT NULL")
			query = query.Where(s.db.Where("user_type IN ?", types).Or("id IN (?)", linked))
		} else {
			query = query.Where("user_type IN ?", types)
		}
	}

	var recipients []recipient
	if err := query.Order("created_at ASC").Scan(&recipients).Error; err != nil {
		return nil, fmt.Errorf("failed to load announcement recipients: %w", err)
	}
	return recipients, nil
}

// FetchActiveAnnouncements returns announcements visible at now. A non-empty
// group restricts the result to announcements targeting it or everyone.
func (s *AnnouncementService) FetchActiveAnnouncements(ctx context.Context, now time.Time, group string) ([]models.Announcement, error) {
	var announcements []models.Announcement
	query := activeAnnouncements(s.db.WithContext(ctx).Model(&models.Announcement{}), now.UTC())
	if err := query.Order("start_date DESC").Find(&announcements).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch announcements: %w", err)
	}

	if group == "" {
		return announcements, nil
	}
	visible := announcements[:0]
	for _, a := range announcements {
		if len(a.TargetUserGroups) == 0 || containsGroup(a.TargetUserGroups, models.UserGroupAll) || containsGroup(a.TargetUserGroups, group) {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

func (s *AnnouncementService) ListAnnouncements(ctx context.Context, params utils.PaginationParams) ([]models.Announcement, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Announcement{})
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count announcements: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "start_date", "end_date", "importance"})
	var announcements []models.Announcement
	if err := utils.ApplyPagination(query, params).Find(&announcements).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list announcements: %w", err)
	}
	return announcements, total, nil
}

func (s *AnnouncementService) GetAnnouncement(ctx context.Context, id uuid.UUID) (*models.Announcement, error) {
	var announcement models.Announcement
	if err := s.db.WithContext(ctx).First(&announcement, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "announcement")
	}
	return &announcement, nil
}

// DeleteAnnouncement removes the announcement and the notifications it produced.
func (s *AnnouncementService) DeleteAnnouncement(ctx context.Context, id uuid.UUID) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		result := tx.Delete(&models.Announcement{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete announcement: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("announcement")
		}
		return tx.Where("type = ? AND related_resource_id = ?", NotificationTypeAnnouncement, id).
			Delete(&models.Notification{}).Error
	})
}

// activeAnnouncements filters to start_date <= now and an open or future end.
func activeAnnouncements(query *gorm.DB, now time.Time) *gorm.DB {
	return query.Where("start_date <= ? AND (end_date IS NULL OR end_date >= ?)", now, now)
}

func normalizeGroups(groups []string) []string {
	seen := make(map[string]bool, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	if len(out) == 0 || seen[models.UserGroupAll] {
		return []string{models.UserGroupAll}
	}
	return out
}

func containsGroup(groups []string, group string) bool {
	for _, g := range groups {
		if g == group {
			return true
		}
	}
	return false
}
