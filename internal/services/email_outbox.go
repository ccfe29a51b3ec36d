// internal/services/email_outbox.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/servicemart-backend/internal/metrics"
	"github.com/javajoker/servicemart-backend/internal/models"
)

// Email kinds recorded on outbox rows.
const (
	EmailKindApplicationStatus = "application_status"
	EmailKindAnnouncement      = "announcement"
	EmailKindNewsletter        = "newsletter"
	EmailKindPasswordReset     = "password_reset"
	EmailKindOrder             = "order"
)

const stuckJobThreshold = 5 * time.Minute

// EmailOutbox persists outbound emails alongside the writes that produce them
// and delivers them with bounded, backed-off retries.
type EmailOutbox struct {
	db         *gorm.DB
	mailer     Mailer
	maxRetries int
	batchSize  int
	baseDelay  time.Duration
	now        func() time.Time
}

func NewEmailOutbox(db *gorm.DB, mailer Mailer, maxRetries, batchSize int) *EmailOutbox {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &EmailOutbox{
		db:         db,
		mailer:     mailer,
		maxRetries: maxRetries,
		batchSize:  batchSize,
		baseDelay:  time.Minute,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// EmailRef ties an outbox row to the record it reports on.
type EmailRef struct {
	Kind         string
	ResourceType string
	ResourceID   *uuid.UUID
}

// Enqueue writes a job using tx, so it commits or rolls back with the caller.
// Claimed jobs are written as processing and must be passed to Deliver by
// the caller; unclaimed jobs wait for the dispatcher.
func (o *EmailOutbox) Enqueue(tx *gorm.DB, msg EmailMessage, ref EmailRef, claimed bool) (*models.EmailJob, error) {
	status := models.EmailJobStatusPending
	if claimed {
		status = models.EmailJobStatusProcessing
	}
	job := &models.EmailJob{
		Recipient:           msg.To,
		Subject:             msg.Subject,
		HTMLBody:            msg.HTML,
		TextBody:            msg.Text,
		Kind:                ref.Kind,
		RelatedResourceType: ref.ResourceType,
		RelatedResourceID:   ref.ResourceID,
		Status:              status,
		MaxRetries:          o.maxRetries,
	}
	if err := tx.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to queue email: %w", err)
	}
	return job, nil
}

// EnqueueBatch queues one pending job per message.
func (o *EmailOutbox) EnqueueBatch(tx *gorm.DB, msgs []EmailMessage, ref EmailRef) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	jobs := make([]models.EmailJob, 0, len(msgs))
	for _, msg := range msgs {
		jobs = append(jobs, models.EmailJob{
			Recipient:           msg.To,
			Subject:             msg.Subject,
			HTMLBody:            msg.HTML,
			TextBody:            msg.Text,
			Kind:                ref.Kind,
			RelatedResourceType: ref.ResourceType,
			RelatedResourceID:   ref.ResourceID,
			Status:              models.EmailJobStatusPending,
			MaxRetries:          o.maxRetries,
		})
	}
	if err := tx.CreateInBatches(jobs, 100).Error; err != nil {
		return 0, fmt.Errorf("failed to queue emails: %w", err)
	}
	return len(jobs), nil
}

// Deliver sends a claimed job now and records the outcome. The returned error
// is the send failure; the job itself stays queued for retry.
func (o *EmailOutbox) Deliver(ctx context.Context, job *models.EmailJob) error {
	sendErr := o.mailer.Send(ctx, EmailMessage{
		To:      job.Recipient,
		Subject: job.Subject,
		HTML:    job.HTMLBody,
		Text:    job.TextBody,
	})
	o.recordResult(ctx, job, sendErr)
	return sendErr
}

// ProcessDue claims and sends one batch of due jobs, returning how many were sent.
func (o *EmailOutbox) ProcessDue(ctx context.Context) int {
	now := o.now()
	db := o.db.WithContext(ctx)

	// Reset jobs stuck in processing by a crashed worker
	if err := db.Model(&models.EmailJob{}).
		Where("status = ?", models.EmailJobStatusProcessing).
		Where("updated_at < ?", now.Add(-stuckJobThreshold)).
		Update("status", models.EmailJobStatusPending).Error; err != nil {
		logrus.WithError(err).Warn("failed to reset stuck email jobs")
	}

	var jobs []models.EmailJob
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ?", models.EmailJobStatusPending).
			Where("(next_retry_at IS NULL OR next_retry_at <= ?)", now).
			Order("created_at ASC").
			Limit(o.batchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&jobs).Error; err != nil {
			return err
		}

		if len(jobs) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(jobs))
		for i := range jobs {
			ids[i] = jobs[i].ID
		}
		return tx.Model(&models.EmailJob{}).
			Where("id IN ?", ids).
			Update("status", models.EmailJobStatusProcessing).Error
	})
	if err != nil {
		logrus.WithError(err).Error("failed to claim email jobs")
		return 0
	}

	sent := 0
	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		if o.Deliver(ctx, &jobs[i]) == nil {
			sent++
		}
	}
	if len(jobs) > 0 {
		logrus.WithFields(logrus.Fields{"claimed": len(jobs), "sent": sent}).Info("email batch processed")
	}
	return sent
}

func (o *EmailOutbox) recordResult(ctx context.Context, job *models.EmailJob, sendErr error) {
	now := o.now()
	newRetryCount := job.RetryCount + 1
	updates := map[string]interface{}{
		"retry_count": newRetryCount,
	}

	if sendErr != nil {
		msg := sendErr.Error()
		updates["last_error"] = &msg

		if newRetryCount > job.MaxRetries {
			updates["status"] = models.EmailJobStatusFailed
			updates["next_retry_at"] = nil
			logrus.WithError(sendErr).WithFields(logrus.Fields{
				"job_id":      job.ID,
				"recipient":   job.Recipient,
				"retry_count": newRetryCount,
			}).Error("email failed after max retries")
		} else {
			// base delay doubled for each retry
			nextRetryAt := now.Add(o.baseDelay * time.Duration(1<<job.RetryCount))
			updates["next_retry_at"] = &nextRetryAt
			updates["status"] = models.EmailJobStatusPending
			logrus.WithError(sendErr).WithFields(logrus.Fields{
				"job_id":        job.ID,
				"recipient":     job.Recipient,
				"retry_count":   newRetryCount,
				"next_retry_at": nextRetryAt,
			}).Warn("email failed, will retry")
		}
	} else {
		updates["status"] = models.EmailJobStatusSent
		updates["sent_at"] = &now
		updates["last_error"] = nil
		updates["next_retry_at"] = nil
	}
	metrics.RecordEmailDelivery(job.Kind, sendErr)

	// the send already happened; record it even if the caller's context ended
	if err := o.db.WithContext(context.WithoutCancel(ctx)).Model(job).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("job_id", job.ID).Error("failed to update email job status")
	}
}
