// internal/services/email_dispatcher.go
package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// EmailDispatcher drains the outbox on a cron schedule.
type EmailDispatcher struct {
	outbox   *EmailOutbox
	schedule string
	cron     *cron.Cron
}

func NewEmailDispatcher(outbox *EmailOutbox, schedule string) *EmailDispatcher {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	return &EmailDispatcher{
		outbox:   outbox,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
	}
}

// Start registers the dispatch job and runs the scheduler until ctx is done.
func (d *EmailDispatcher) Start(ctx context.Context) error {
	if _, err := d.cron.AddFunc(d.schedule, func() { d.outbox.ProcessDue(ctx) }); err != nil {
		return fmt.Errorf("invalid email dispatch schedule %q: %w", d.schedule, err)
	}
	d.cron.Start()
	logrus.WithField("schedule", d.schedule).Info("email dispatcher started")

	go func() {
		<-ctx.Done()
		<-d.cron.Stop().Done()
		logrus.Info("email dispatcher stopped")
	}()
	return nil
}
