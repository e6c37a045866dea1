// Package scheduler runs the periodic follow-up digest.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/notifications"
	"github.com/21draw/ugc-finder/internal/outreach"
)

// Service schedules the follow-up digest email.
type Service struct {
	config   *config.Config
	outreach *outreach.Service
	notifier *notifications.Service
	cron     *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(cfg *config.Config, out *outreach.Service, notifier *notifications.Service) *Service {
	return &Service{
		config:   cfg,
		outreach: out,
		notifier: notifier,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled digest runs.
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.DigestSchedule {
	case "daily":
		// Run daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM UTC
		cronExpression = "0 0 9 * * MON"
	default:
		cronExpression = "0 0 9 * * MON"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		if err := s.RunDigest(); err != nil {
			logrus.Errorf("Scheduled digest run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest schedule", s.config.DigestSchedule)
	return nil
}

// RunDigest finds stalled outreach contacts and emails the digest.
func (s *Service) RunDigest() error {
	logrus.Info("Starting follow-up digest run")
	records, err := s.outreach.NeedsFollowUp(context.Background())
	if err != nil {
		return err
	}
	return s.notifier.SendFollowUpDigest(records)
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
