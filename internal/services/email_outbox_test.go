package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/models"
)

func queueEmail(t *testing.T, env *testEnv, to string) *models.EmailJob {
	t.Helper()
	var job *models.EmailJob
	err := env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = env.outbox.Enqueue(tx, EmailMessage{To: to, Subject: "Hi", HTML: "<p>Hi</p>", Text: "Hi"},
			EmailRef{Kind: EmailKindOrder, ResourceType: "order"}, false)
		return err
	})
	require.NoError(t, err)
	return job
}

func reloadJob(t *testing.T, env *testEnv, job *models.EmailJob) models.EmailJob {
	t.Helper()
	var stored models.EmailJob
	require.NoError(t, env.db.First(&stored, "id = ?", job.ID).Error)
	return stored
}

func TestProcessDueSendsPendingJobs(t *testing.T) {
	env := newTestEnv(t)
	first := queueEmail(t, env, "one@example.com")
	queueEmail(t, env, "two@example.com")

	sent := env.outbox.ProcessDue(context.Background())
	assert.Equal(t, 2, sent)
	assert.Equal(t, 2, env.mailer.count())

	stored := reloadJob(t, env, first)
	assert.Equal(t, models.EmailJobStatusSent, stored.Status)
	assert.NotNil(t, stored.SentAt)
	assert.Equal(t, 1, stored.RetryCount)

	assert.Zero(t, env.outbox.ProcessDue(context.Background()))
}

func TestProcessDueBacksOffAndFails(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.failWith("connection refused")

	clock := time.Now().UTC()
	env.outbox.now = func() time.Time { return clock }
	env.outbox.baseDelay = time.Minute

	job := queueEmail(t, env, "retry@example.com")
	require.Equal(t, 3, job.MaxRetries)

	assert.Zero(t, env.outbox.ProcessDue(context.Background()))
	stored := reloadJob(t, env, job)
	assert.Equal(t, models.EmailJobStatusPending, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.NextRetryAt)
	assert.WithinDuration(t, clock.Add(time.Minute), *stored.NextRetryAt, time.Second)

	// not due yet
	assert.Zero(t, env.outbox.ProcessDue(context.Background()))
	assert.Equal(t, 1, reloadJob(t, env, job).RetryCount)

	// second failure doubles the delay
	clock = clock.Add(2 * time.Minute)
	env.outbox.ProcessDue(context.Background())
	stored = reloadJob(t, env, job)
	assert.Equal(t, 2, stored.RetryCount)
	require.NotNil(t, stored.NextRetryAt)
	assert.WithinDuration(t, clock.Add(2*time.Minute), *stored.NextRetryAt, time.Second)

	for i := 0; i < 2; i++ {
		clock = clock.Add(time.Hour)
		env.outbox.ProcessDue(context.Background())
	}
	stored = reloadJob(t, env, job)
	assert.Equal(t, models.EmailJobStatusFailed, stored.Status)
	assert.Equal(t, 4, stored.RetryCount)
	assert.Nil(t, stored.NextRetryAt)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "connection refused", *stored.LastError)

	clock = clock.Add(time.Hour)
	assert.Zero(t, env.outbox.ProcessDue(context.Background()))
	assert.Equal(t, 4, reloadJob(t, env, job).RetryCount)
}

func TestProcessDueResetsStuckJobs(t *testing.T) {
	env := newTestEnv(t)
	job := queueEmail(t, env, "stuck@example.com")

	stale := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.db.Model(&models.EmailJob{}).Where("id = ?", job.ID).
		UpdateColumns(map[string]interface{}{"status": models.EmailJobStatusProcessing, "updated_at": stale}).Error)

	assert.Equal(t, 1, env.outbox.ProcessDue(context.Background()))
	assert.Equal(t, models.EmailJobStatusSent, reloadJob(t, env, job).Status)
}

func TestDeliverClaimedJob(t *testing.T) {
	env := newTestEnv(t)
	var job *models.EmailJob
	require.NoError(t, env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = env.outbox.Enqueue(tx, EmailMessage{To: "now@example.com", Subject: "Now"},
			EmailRef{Kind: EmailKindApplicationStatus}, true)
		return err
	}))
	assert.Equal(t, models.EmailJobStatusProcessing, job.Status)

	// the dispatcher does not pick up claimed jobs
	assert.Zero(t, env.outbox.ProcessDue(context.Background()))

	require.NoError(t, env.outbox.Deliver(context.Background(), job))
	assert.Equal(t, models.EmailJobStatusSent, reloadJob(t, env, job).Status)
}
