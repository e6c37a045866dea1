package outreach

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/21draw/ugc-finder/internal/models"
)

// fakeStore is an in-memory store for exercising the service logic.
type fakeStore struct {
	profiles map[string]*models.Profile
	records  map[string]*models.OutreachRecord
	updates  []map[string]interface{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[string]*models.Profile),
		records:  make(map[string]*models.OutreachRecord),
	}
}

func (f *fakeStore) ProfileExists(ctx context.Context, username string) (bool, error) {
	_, ok := f.profiles[username]
	return ok, nil
}

func (f *fakeStore) InsertProfile(ctx context.Context, p *models.Profile) error {
	f.profiles[p.Username] = p
	return nil
}

func (f *fakeStore) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	p, ok := f.profiles[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeStore) ListProfilesByStatus(ctx context.Context, status models.ProfileStatus, limit int) ([]models.Profile, error) {
	return nil, nil
}

func (f *fakeStore) ListProfilesNeedingRescore(ctx context.Context, limit int) ([]models.Profile, error) {
	return nil, nil
}

func (f *fakeStore) ListProfilesForVideoAnalysis(ctx context.Context, limit int) ([]models.Profile, error) {
	return nil, nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, username string, fields map[string]interface{}) error {
	return nil
}

func (f *fakeStore) GetReview(ctx context.Context, username string) (*models.HumanReview, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) UpsertReview(ctx context.Context, review *models.HumanReview) error { return nil }

func (f *fakeStore) ListReviewsByDecision(ctx context.Context, decision string) ([]models.HumanReview, error) {
	return nil, nil
}

func (f *fakeStore) OutreachExists(ctx context.Context, username string) (bool, error) {
	_, ok := f.records[username]
	return ok, nil
}

func (f *fakeStore) InsertOutreach(ctx context.Context, record *models.OutreachRecord) error {
	f.records[record.ProfileUsername] = record
	return nil
}

func (f *fakeStore) GetOutreach(ctx context.Context, username string) (*models.OutreachRecord, error) {
	r, ok := f.records[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeStore) UpdateOutreach(ctx context.Context, username string, fields map[string]interface{}) error {
	if _, ok := f.records[username]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.updates = append(f.updates, fields)
	return nil
}

func (f *fakeStore) DeleteOutreach(ctx context.Context, username string) error {
	delete(f.records, username)
	return nil
}

func (f *fakeStore) ListOutreach(ctx context.Context) ([]models.OutreachRecord, error) {
	var out []models.OutreachRecord
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) ListOutreachByStatus(ctx context.Context, status models.OutreachStatus) ([]models.OutreachRecord, error) {
	return nil, nil
}

func (f *fakeStore) ListContactedBefore(ctx context.Context, cutoff time.Time) ([]models.OutreachRecord, error) {
	var out []models.OutreachRecord
	for _, r := range f.records {
		if r.Status == models.OutreachContacted && r.ContactedAt != nil && !r.ContactedAt.After(cutoff) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListApprovedWithoutOutreach(ctx context.Context) ([]models.Profile, error) {
	return nil, nil
}

func (f *fakeStore) ListCleanupCandidates(ctx context.Context) ([]models.Profile, error) {
	return nil, nil
}

func (f *fakeStore) ListProfilesMissingVideos(ctx context.Context, limit int) ([]models.Profile, error) {
	return nil, nil
}

func (f *fakeStore) InsertAiLog(ctx context.Context, entry *models.AiLogEntry) error { return nil }

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to models.OutreachStatus
		allowed  bool
	}{
		{models.OutreachQueued, models.OutreachContacted, true},
		{models.OutreachQueued, models.OutreachReplied, false},
		{models.OutreachContacted, models.OutreachFollowUp1, true},
		{models.OutreachContacted, models.OutreachReplied, true},
		{models.OutreachContacted, models.OutreachNoResponse, true},
		{models.OutreachContacted, models.OutreachFollowUp2, false},
		{models.OutreachFollowUp1, models.OutreachFollowUp2, true},
		{models.OutreachFollowUp2, models.OutreachFollowUp1, false},
		{models.OutreachReplied, models.OutreachNegotiating, true},
		{models.OutreachReplied, models.OutreachConfirmed, true},
		{models.OutreachReplied, models.OutreachContacted, false},
		{models.OutreachNegotiating, models.OutreachDeclined, true},
		{models.OutreachConfirmed, models.OutreachDeclined, false},
		// Reset to QUEUED is allowed from anywhere but QUEUED itself.
		{models.OutreachNoResponse, models.OutreachQueued, true},
		{models.OutreachConfirmed, models.OutreachQueued, true},
		{models.OutreachQueued, models.OutreachQueued, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, ValidTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestUpdateStatusStampsTimestamp(t *testing.T) {
	st := newFakeStore()
	st.records["alice"] = &models.OutreachRecord{
		ProfileUsername: "alice",
		Status:          models.OutreachQueued,
	}
	svc := NewService(st, nil)

	require.NoError(t, svc.UpdateStatus(context.Background(), "alice", models.OutreachContacted, "sent the DM"))
	require.Len(t, st.updates, 1)
	fields := st.updates[0]
	assert.Equal(t, models.OutreachContacted, fields["status"])
	assert.NotNil(t, fields["contacted_at"])
	assert.Equal(t, "sent the DM", fields["user_notes"])
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	st := newFakeStore()
	st.records["alice"] = &models.OutreachRecord{
		ProfileUsername: "alice",
		Status:          models.OutreachQueued,
	}
	svc := NewService(st, nil)

	err := svc.UpdateStatus(context.Background(), "alice", models.OutreachConfirmed, "")
	assert.Error(t, err)
	assert.Empty(t, st.updates)
}

func TestUpdateStatusResetClearsTimestamps(t *testing.T) {
	now := time.Now().UTC()
	st := newFakeStore()
	st.records["alice"] = &models.OutreachRecord{
		ProfileUsername: "alice",
		Status:          models.OutreachNoResponse,
		ContactedAt:     &now,
		FollowUp1At:     &now,
	}
	svc := NewService(st, nil)

	require.NoError(t, svc.UpdateStatus(context.Background(), "alice", models.OutreachQueued, ""))
	require.Len(t, st.updates, 1)
	fields := st.updates[0]
	for _, col := range []string{"contacted_at", "follow_up_1_at", "follow_up_2_at", "replied_at"} {
		val, ok := fields[col]
		assert.True(t, ok, col)
		assert.Nil(t, val, col)
	}
}

func TestSaveMessageFieldWhitelist(t *testing.T) {
	st := newFakeStore()
	st.records["alice"] = &models.OutreachRecord{ProfileUsername: "alice"}
	svc := NewService(st, nil)

	require.NoError(t, svc.SaveMessageField(context.Background(), "alice", "email_body", "hello"))

	err := svc.SaveMessageField(context.Background(), "alice", "status", "CONFIRMED")
	assert.Error(t, err)
	err = svc.SaveMessageField(context.Background(), "alice", "priority_tier", "TIER_1")
	assert.Error(t, err)
}

type fakeGenerator struct{}

func (fakeGenerator) GenerateOutreach(ctx context.Context, p *models.Profile) (*models.OutreachRecord, error) {
	return &models.OutreachRecord{
		ProfileUsername: p.Username,
		PriorityTier:    models.Tier2,
		ContactMethod:   models.ContactDM,
		Status:          models.OutreachQueued,
		ProfileType:     p.EffectiveType(),
		MessageSent:     "fresh message",
	}, nil
}

func TestReclassifyDiscardsEditsAndHistory(t *testing.T) {
	st := newFakeStore()
	ptype := models.TypeUGCCreator
	st.profiles["alice"] = &models.Profile{Username: "alice", ProfileType: &ptype}

	now := time.Now().UTC()
	edited := "hand-tuned email body"
	st.records["alice"] = &models.OutreachRecord{
		ProfileUsername: "alice",
		Status:          models.OutreachFollowUp1,
		ContactedAt:     &now,
		FollowUp1At:     &now,
		EmailBody:       &edited,
	}
	svc := NewService(st, fakeGenerator{})

	require.NoError(t, svc.Reclassify(context.Background(), "alice"))

	record := st.records["alice"]
	require.NotNil(t, record)
	assert.Equal(t, models.OutreachQueued, record.Status)
	assert.Nil(t, record.ContactedAt)
	assert.Nil(t, record.FollowUp1At)
	assert.Nil(t, record.EmailBody)
	assert.Equal(t, "fresh message", record.MessageSent)
}

func TestNeedsFollowUp(t *testing.T) {
	st := newFakeStore()
	old := time.Now().UTC().Add(-8 * 24 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)
	st.records["stale"] = &models.OutreachRecord{
		ProfileUsername: "stale",
		Status:          models.OutreachContacted,
		ContactedAt:     &old,
	}
	st.records["fresh"] = &models.OutreachRecord{
		ProfileUsername: "fresh",
		Status:          models.OutreachContacted,
		ContactedAt:     &recent,
	}
	svc := NewService(st, nil)

	records, err := svc.NeedsFollowUp(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "stale", records[0].ProfileUsername)
}

func TestExportCSV(t *testing.T) {
	st := newFakeStore()
	email := "alice@example.com"
	st.profiles["alice"] = &models.Profile{
		Username:       "alice",
		Followers:      12000,
		EngagementRate: 4.2,
		ProfileScore:   8,
	}
	st.records["alice"] = &models.OutreachRecord{
		ProfileUsername: "alice",
		PriorityTier:    models.Tier1,
		ContactMethod:   models.ContactEmail,
		ContactEmail:    &email,
		Status:          models.OutreachQueued,
		ProfileType:     models.TypeUGCCreator,
		MessageSent:     "hey alice",
	}
	svc := NewService(st, nil)

	var b strings.Builder
	require.NoError(t, svc.ExportCSV(context.Background(), &b))

	rows, err := csv.NewReader(strings.NewReader(b.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "username", rows[0][0])
	assert.Len(t, rows[0], 22)
	assert.Equal(t, "alice", rows[1][0])
	assert.Equal(t, "TIER_1", rows[1][1])
	assert.Equal(t, "12000", rows[1][6])
	assert.Equal(t, "4.2", rows[1][7])
}
