// internal/services/newsletter_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type NewsletterService struct {
	db     *gorm.DB
	config *config.Config
	outbox *EmailOutbox
}

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *SubscribeRequest) Normalize() { r.Email = normalizeEmail(r.Email) }

type SendNewsletterRequest struct {
	Subject string `json:"subject" validate:"required,max=255"`
	HTML    string `json:"html" validate:"required"`
	Text    string `json:"text,omitempty"`
}

func NewNewsletterService(db *gorm.DB, cfg *config.Config, outbox *EmailOutbox) *NewsletterService {
	return &NewsletterService{
		db:     db,
		config: cfg,
		outbox: outbox,
	}
}

// Subscribe is idempotent and reactivates a previous subscription.
func (s *NewsletterService) Subscribe(ctx context.Context, req *SubscribeRequest) (*models.NewsletterSubscriber, error) {
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}
	email := req.Email

	var subscriber models.NewsletterSubscriber
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&subscriber).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		subscriber = models.NewsletterSubscriber{Email: email, Active: true}
		if err := s.db.WithContext(ctx).Create(&subscriber).Error; err != nil {
			return nil, classifyDBError(err, constraintMessages{
				Duplicate: "already subscribed",
				Reference: "invalid subscriber",
				Check:     "validation failed",
			})
		}
	case err != nil:
		return nil, fmt.Errorf("database error: %w", err)
	case !subscriber.Active:
		if err := s.db.WithContext(ctx).Model(&subscriber).Updates(map[string]interface{}{
			"active":          true,
			"unsubscribed_at": nil,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to resubscribe: %w", err)
		}
		subscriber.Active = true
		subscriber.UnsubscribedAt = nil
	}
	return &subscriber, nil
}

func (s *NewsletterService) Unsubscribe(ctx context.Context, email string) error {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.NewsletterSubscriber{}).
		Where("email = ?", normalizeEmail(email)).
		Updates(map[string]interface{}{
			"active":          false,
			"unsubscribed_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to unsubscribe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("subscriber")
	}
	return nil
}

func (s *NewsletterService) ListSubscribers(ctx context.Context, params utils.PaginationParams) ([]models.NewsletterSubscriber, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.NewsletterSubscriber{}).Where("active = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscribers: %w", err)
	}

	var subscribers []models.NewsletterSubscriber
	query = utils.ApplySort(query, params, []string{"created_at", "email"})
	if err := utils.ApplyPagination(query, params).Find(&subscribers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subscribers, total, nil
}

// SendNewsletter queues one email per active subscriber and returns the count.
func (s *NewsletterService) SendNewsletter(ctx context.Context, req *SendNewsletterRequest) (int, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return 0, validationError("validation failed: %v", err)
	}

	var emails []string
	if err := s.db.WithContext(ctx).Model(&models.NewsletterSubscriber{}).
		Where("active = ?", true).
		Order("created_at ASC").
		Pluck("email", &emails).Error; err != nil {
		return 0, fmt.Errorf("failed to load subscribers: %w", err)
	}
	if len(emails) == 0 {
		return 0, nil
	}

	text := req.Text
	if text == "" {
		text = plainText(req.HTML)
	}

	messages := make([]EmailMessage, 0, len(emails))
	for _, email := range emails {
		link := fmt.Sprintf("%s/newsletter/unsubscribe?email=%s", s.config.Frontend.BaseURL, url.QueryEscape(email))
		messages = append(messages, EmailMessage{
			To:      email,
			Subject: req.Subject,
			HTML:    req.HTML + fmt.Sprintf(`<p style="font-size:12px"><a href="%s">Unsubscribe</a></p>`, link),
			Text:    text + "\n\nUnsubscribe: " + link,
		})
	}

	var queued int
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		queued, err = s.outbox.EnqueueBatch(tx, messages, EmailRef{Kind: EmailKindNewsletter, ResourceType: "newsletter"})
		return err
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"subject":    req.Subject,
		"recipients": queued,
	}).Info("newsletter queued")
	return queued, nil
}
