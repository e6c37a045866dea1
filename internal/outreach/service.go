// Package outreach manages the lifecycle of outreach records after approval:
// status transitions, reply tracking, message edits, reclassification, and the
// CSV export used by the outreach team.
package outreach

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/classify"
	"github.com/21draw/ugc-finder/internal/models"
	"github.com/21draw/ugc-finder/internal/store"
)

// FollowUpAfter is how long a record sits in CONTACTED before it surfaces as
// needing a follow-up. Follow-up need is derived, never stored.
const FollowUpAfter = 7 * 24 * time.Hour

// transitions is the allowed state machine. Reset to QUEUED is allowed from
// any state and handled separately.
var transitions = map[models.OutreachStatus][]models.OutreachStatus{
	models.OutreachQueued:      {models.OutreachContacted},
	models.OutreachContacted:   {models.OutreachFollowUp1, models.OutreachReplied, models.OutreachNoResponse},
	models.OutreachFollowUp1:   {models.OutreachFollowUp2, models.OutreachReplied, models.OutreachNoResponse},
	models.OutreachFollowUp2:   {models.OutreachReplied, models.OutreachNoResponse},
	models.OutreachReplied:     {models.OutreachNegotiating, models.OutreachConfirmed, models.OutreachDeclined},
	models.OutreachNegotiating: {models.OutreachConfirmed, models.OutreachDeclined},
}

// editableMessageFields are the outreach columns the UI may rewrite before
// sending.
var editableMessageFields = map[string]bool{
	"message_sent":          true,
	"email_subject":         true,
	"email_body":            true,
	"teacher_dm_message":    true,
	"teacher_email_subject": true,
	"teacher_email_body":    true,
}

// Generator produces a fresh outreach record for a profile.
type Generator interface {
	GenerateOutreach(ctx context.Context, p *models.Profile) (*models.OutreachRecord, error)
}

var _ Generator = (*classify.Classifier)(nil)

// Service coordinates outreach record changes.
type Service struct {
	store      store.StoreInterface
	classifier Generator
}

// NewService creates the outreach service.
func NewService(st store.StoreInterface, classifier Generator) *Service {
	return &Service{store: st, classifier: classifier}
}

// ValidTransition reports whether moving from one status to another is
// allowed. Any state may be reset to QUEUED.
func ValidTransition(from, to models.OutreachStatus) bool {
	if to == models.OutreachQueued {
		return from != models.OutreachQueued
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves a record through the state machine, stamping the
// transition timestamp. Resetting to QUEUED clears every timestamp so the
// record behaves like a fresh one.
func (s *Service) UpdateStatus(ctx context.Context, username string, status models.OutreachStatus, notes string) error {
	record, err := s.store.GetOutreach(ctx, username)
	if err != nil {
		return fmt.Errorf("loading outreach for %s: %w", username, err)
	}
	if !ValidTransition(record.Status, status) {
		return fmt.Errorf("invalid transition %s -> %s for %s", record.Status, status, username)
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{"status": status}
	switch status {
	case models.OutreachQueued:
		fields["contacted_at"] = nil
		fields["follow_up_1_at"] = nil
		fields["follow_up_2_at"] = nil
		fields["replied_at"] = nil
	case models.OutreachContacted:
		fields["contacted_at"] = now
	case models.OutreachFollowUp1:
		fields["follow_up_1_at"] = now
	case models.OutreachFollowUp2:
		fields["follow_up_2_at"] = now
	case models.OutreachReplied:
		fields["replied_at"] = now
	}
	if notes != "" {
		fields["user_notes"] = notes
	}

	return s.store.UpdateOutreach(ctx, username, fields)
}

// MarkContacted records a manually-sent DM and moves the record to CONTACTED.
func (s *Service) MarkContacted(ctx context.Context, username, message string) error {
	fields := map[string]interface{}{
		"status":       models.OutreachContacted,
		"contacted_at": time.Now().UTC(),
	}
	if message != "" {
		fields["message_sent"] = message
	}
	return s.store.UpdateOutreach(ctx, username, fields)
}

// RecordEmailSent stores the email actually sent and moves the record to
// CONTACTED. The caller has already delivered the email.
func (s *Service) RecordEmailSent(ctx context.Context, username, subject, body string) error {
	return s.store.UpdateOutreach(ctx, username, map[string]interface{}{
		"status":        models.OutreachContacted,
		"contacted_at":  time.Now().UTC(),
		"email_subject": subject,
		"email_body":    body,
	})
}

// SaveReply records a creator's reply and moves the record to REPLIED.
func (s *Service) SaveReply(ctx context.Context, username, summary, sentiment string) error {
	fields := map[string]interface{}{
		"status":        models.OutreachReplied,
		"replied_at":    time.Now().UTC(),
		"reply_summary": summary,
	}
	if sentiment != "" {
		fields["reply_sentiment"] = sentiment
	}
	return s.store.UpdateOutreach(ctx, username, fields)
}

// SaveMessageField rewrites one of the generated messages before sending.
func (s *Service) SaveMessageField(ctx context.Context, username, field, value string) error {
	if !editableMessageFields[field] {
		return fmt.Errorf("field %q is not editable", field)
	}
	return s.store.UpdateOutreach(ctx, username, map[string]interface{}{field: value})
}

// SaveNotes replaces the free-form notes on a record.
func (s *Service) SaveNotes(ctx context.Context, username, notes string) error {
	return s.store.UpdateOutreach(ctx, username, map[string]interface{}{"user_notes": notes})
}

// Reclassify deletes the record and regenerates it from the current profile
// state. Deliberately destructive: edits, status history, and reply data are
// gone afterwards, which is what makes the new messages trustworthy.
func (s *Service) Reclassify(ctx context.Context, username string) error {
	profile, err := s.store.GetProfile(ctx, username)
	if err != nil {
		return fmt.Errorf("loading profile %s: %w", username, err)
	}

	if err := s.store.DeleteOutreach(ctx, username); err != nil {
		return fmt.Errorf("deleting outreach for %s: %w", username, err)
	}

	record, err := s.classifier.GenerateOutreach(ctx, profile)
	if err != nil {
		return err
	}
	if err := s.store.InsertOutreach(ctx, record); err != nil {
		return fmt.Errorf("inserting regenerated outreach for %s: %w", username, err)
	}

	logrus.Infof("Reclassified %s: tier %s, method %s", username, record.PriorityTier, record.ContactMethod)
	return nil
}

// NeedsFollowUp returns records contacted at least FollowUpAfter ago with no
// reply.
func (s *Service) NeedsFollowUp(ctx context.Context) ([]models.OutreachRecord, error) {
	return s.store.ListContactedBefore(ctx, time.Now().UTC().Add(-FollowUpAfter))
}

// ExportCSV writes all outreach records joined with profile metrics.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	records, err := s.store.ListOutreach(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"username", "tier", "type", "status", "contact_method", "contact_email",
		"followers", "engagement_rate", "profile_score",
		"dm_message", "email_subject", "email_body",
		"teacher_dm", "teacher_email_subject", "teacher_email_body",
		"language_note", "personalization_hook", "user_notes",
		"reply_summary", "reply_sentiment", "contacted_at", "replied_at",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		followers, engagement, score := "", "", ""
		if profile, err := s.store.GetProfile(ctx, r.ProfileUsername); err == nil {
			followers = fmt.Sprintf("%d", profile.Followers)
			engagement = fmt.Sprintf("%g", profile.EngagementRate)
			score = fmt.Sprintf("%d", profile.ProfileScore)
		}

		row := []string{
			r.ProfileUsername, string(r.PriorityTier), string(r.ProfileType), string(r.Status),
			string(r.ContactMethod), deref(r.ContactEmail),
			followers, engagement, score,
			r.MessageSent, deref(r.EmailSubject), deref(r.EmailBody),
			deref(r.TeacherDMMessage), deref(r.TeacherEmailSubject), deref(r.TeacherEmailBody),
			deref(r.LanguageNote), deref(r.PersonalizationHook), deref(r.UserNotes),
			deref(r.ReplySummary), deref(r.ReplySentiment),
			timeStr(r.ContactedAt), timeStr(r.RepliedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeStr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
