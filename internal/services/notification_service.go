// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

// Notification types
const (
	NotificationTypeApplicationStatus = "application_status"
	NotificationTypeAnnouncement      = "announcement"
	NotificationTypeTrialAssigned     = "trial_assigned"
	NotificationTypePartnerApproved   = "partner_approved"
	NotificationTypeOrderAssigned     = "order_assigned"
)

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

// NotificationInput describes one in-app notification.
type NotificationInput struct {
	UserID              uuid.UUID
	Type                string
	Title               string
	Message             string
	Priority            models.Importance
	RelatedResourceType string
	RelatedResourceID   *uuid.UUID
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

// In-app notifications

// Notify writes one notification using tx.
func (s *NotificationService) Notify(tx *gorm.DB, in NotificationInput) (*models.Notification, error) {
	notification := toNotification(in)
	if err := tx.Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return notification, nil
}

// NotifyMany writes notifications in batches and reports how many were stored.
func (s *NotificationService) NotifyMany(tx *gorm.DB, inputs []NotificationInput) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}
	rows := make([]*models.Notification, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, toNotification(in))
	}
	if err := tx.CreateInBatches(rows, 100).Error; err != nil {
		return 0, fmt.Errorf("failed to create notifications: %w", err)
	}
	return len(rows), nil
}

func toNotification(in NotificationInput) *models.Notification {
	priority := in.Priority
	if priority == "" {
		priority = models.ImportanceMedium
	}
	return &models.Notification{
		UserID:              in.UserID,
		Type:                in.Type,
		Title:               in.Title,
		Message:             in.Message,
		Priority:            priority,
		RelatedResourceType: in.RelatedResourceType,
		RelatedResourceID:   in.RelatedResourceID,
	}
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, params utils.PaginationParams) ([]models.Notification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var notifications []models.Notification
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params).Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkNotificationRead is idempotent; a notification owned by another user is not found.
func (s *NotificationService) MarkNotificationRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	var notification models.Notification
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error; err != nil {
		return lookupError(err, "notification")
	}
	if notification.ReadAt != nil {
		return nil
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&notification).Update("read_at", &now).Error
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", &now)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// Email rendering

// ApplicationStatusEmail renders the partner-facing email for a review decision.
func (s *NotificationService) ApplicationStatusEmail(partner *models.Partner, application *models.PartnerApplication) (EmailMessage, error) {
	templateType := "application_" + string(application.Status)
	data := map[string]interface{}{
		"ContactName":     partner.ContactName,
		"BusinessName":    partner.BusinessName,
		"Status":          humanize(string(application.Status)),
		"RejectionReason": application.RejectionReason,
		"AdminNotes":      application.AdminNotes,
		"DashboardURL":    fmt.Sprintf("%s/partner/dashboard", s.config.Frontend.BaseURL),
		"PlatformName":    s.config.Email.FromName,
	}
	return s.render(templateType, partner.ContactEmail, data)
}

func (s *NotificationService) AnnouncementEmail(to string, announcement *models.Announcement) (EmailMessage, error) {
	data := map[string]interface{}{
		"Title":        announcement.Title,
		"Content":      announcement.Content,
		"Importance":   humanize(string(announcement.Importance)),
		"PlatformName": s.config.Email.FromName,
	}
	return s.render("announcement", to, data)
}

func (s *NotificationService) PasswordResetEmail(user *models.User, code string) (EmailMessage, error) {
	data := map[string]interface{}{
		"Name":         user.FullName,
		"Code":         code,
		"ResetURL":     fmt.Sprintf("%s/reset-password?code=%s", s.config.Frontend.BaseURL, code),
		"ExpiresIn":    "1 hour",
		"PlatformName": s.config.Email.FromName,
	}
	return s.render("password_reset", user.Email, data)
}

func (s *NotificationService) OrderAssignedEmail(to string, order *models.Order, serviceTitle string) (EmailMessage, error) {
	data := map[string]interface{}{
		"ServiceTitle": serviceTitle,
		"OrderID":      order.ID,
		"OrderURL":     fmt.Sprintf("%s/partner/orders/%s", s.config.Frontend.BaseURL, order.ID),
		"PlatformName": s.config.Email.FromName,
	}
	return s.render("order_assigned", to, data)
}

func (s *NotificationService) render(templateType, to string, data map[string]interface{}) (EmailMessage, error) {
	tmpl := s.getEmailTemplate(templateType)

	subject, err := s.renderTemplate(tmpl.Subject, data)
	if err != nil {
		return EmailMessage{}, fmt.Errorf("failed to render email subject: %w", err)
	}
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return EmailMessage{}, fmt.Errorf("failed to render email template: %w", err)
	}

	return EmailMessage{
		To:      to,
		Subject: subject,
		HTML:    body,
		Text:    plainText(body),
	}, nil
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	if tmpl, exists := emailTemplates[templateType]; exists {
		return tmpl
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification from {{.PlatformName}}",
		Body:    "<p>{{.Message}}</p>",
	}
}

var emailTemplates = map[string]EmailTemplate{
	"application_approved": {
		Subject: "Your partner application has been approved",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>Welcome aboard, {{.ContactName}}!</h2>
	<p>Your partner application for {{.BusinessName}} has been approved.</p>
	{{if .AdminNotes}}<p>Notes from our team: {{.AdminNotes}}</p>{{end}}
	<p><a href="{{.DashboardURL}}">Open your partner dashboard</a></p>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
	},
	"application_rejected": {
		Subject: "Update on your partner application",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.ContactName}},</h2>
	<p>Thank you for applying to become a partner. After review we are unable to approve the application for {{.BusinessName}} at this time.</p>
	<p>Reason: {{.RejectionReason}}</p>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
	},
	"application_under_review": {
		Subject: "Your partner application is under review",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.ContactName}},</h2>
	<p>Your application for {{.BusinessName}} is now under review. We will email you once a decision is made.</p>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
	},
	"announcement": {
		Subject: "{{.Title}}",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>{{.Title}}</h2>
	<p>{{.Content}}</p>
	<p>{{.PlatformName}} Team</p>
</body>
</html>`,
	},
	"password_reset": {
		Subject: "Password reset request",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Use the code <strong>{{.Code}}</strong> or the link below to reset your password. It expires in {{.ExpiresIn}}.</p>
	<p><a href="{{.ResetURL}}">Reset password</a></p>
	<p>{{.PlatformName}} Team</p>
</body>
</html>`,
	},
	"order_assigned": {
		Subject: "New order assigned: {{.ServiceTitle}}",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>You have a new order</h2>
	<p>An order for "{{.ServiceTitle}}" has been assigned to you.</p>
	<p><a href="{{.OrderURL}}">View order</a></p>
	<p>{{.PlatformName}} Team</p>
</body>
</html>`,
	},
}

func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// plainText strips tags from a rendered HTML body for the text/plain part.
func plainText(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
