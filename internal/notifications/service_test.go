package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/models"
)

func TestSendRequiresConfiguration(t *testing.T) {
	svc := NewService(&config.Config{})
	assert.False(t, svc.IsConfigured())
	assert.Error(t, svc.Send("to@example.com", "subject", "body"))
}

func TestIsConfigured(t *testing.T) {
	svc := NewService(&config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUsername: "bot@example.com",
		SMTPPassword: "secret",
	})
	assert.True(t, svc.IsConfigured())
}

func TestDigestSkipsEmptyList(t *testing.T) {
	svc := NewService(&config.Config{})
	assert.NoError(t, svc.SendFollowUpDigest(nil))
}

func TestDigestSkipsWithoutRecipient(t *testing.T) {
	// SMTP is configured but no digest recipient is set; nothing is sent and
	// nothing fails.
	svc := NewService(&config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUsername: "bot@example.com",
		SMTPPassword: "secret",
	})
	contacted := time.Now().UTC().Add(-10 * 24 * time.Hour)
	records := []models.OutreachRecord{{
		ProfileUsername: "alice",
		PriorityTier:    models.Tier1,
		Status:          models.OutreachContacted,
		ContactedAt:     &contacted,
	}}
	assert.NoError(t, svc.SendFollowUpDigest(records))
}
