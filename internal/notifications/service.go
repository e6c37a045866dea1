// Package notifications sends outreach emails and the periodic follow-up
// digest over SMTP.
package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/models"
)

// Service sends email via the configured SMTP account.
type Service struct {
	cfg    *config.Config
	dialer *gomail.Dialer
}

// NewService creates the email service. The dialer is only built when SMTP is
// configured; otherwise every send is a no-op with a warning.
func NewService(cfg *config.Config) *Service {
	s := &Service{cfg: cfg}
	if cfg.EmailConfigured() {
		s.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return s
}

// IsConfigured reports whether emails can actually be sent.
func (s *Service) IsConfigured() bool {
	return s.dialer != nil
}

// Send delivers a plain-text email.
func (s *Service) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		logrus.Warn("Email not configured, skipping send")
		return fmt.Errorf("email not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.SMTPUsername)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	logrus.Infof("Sent email to %s: %s", to, subject)
	return nil
}

// SendFollowUpDigest emails the team a summary of outreach records waiting on
// a follow-up. An empty candidate list sends nothing.
func (s *Service) SendFollowUpDigest(records []models.OutreachRecord) error {
	if len(records) == 0 {
		logrus.Info("No follow-up candidates, skipping digest")
		return nil
	}
	if s.cfg.NotificationEmail == "" {
		logrus.Warn("NOTIFICATION_EMAIL not set, skipping digest")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d outreach contact(s) have gone %d+ days without a reply:\n\n", len(records), 7)
	for _, r := range records {
		days := 0
		if r.ContactedAt != nil {
			days = int(time.Since(*r.ContactedAt).Hours() / 24)
		}
		fmt.Fprintf(&b, "- %s (tier %s, contacted %d days ago)\n", r.ProfileUsername, r.PriorityTier, days)
	}
	b.WriteString("\nOpen the outreach dashboard to send follow-ups.\n")

	subject := fmt.Sprintf("UGC outreach: %d profiles need a follow-up", len(records))
	return s.Send(s.cfg.NotificationEmail, subject, b.String())
}
