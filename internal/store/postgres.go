// Package store is the hosted-Postgres persistence layer. Every pipeline goes
// through StoreInterface; the concrete implementation rides gorm so the same
// code runs against the hosted database and against a mocked connection in
// tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/21draw/ugc-finder/internal/models"
)

// Store implements StoreInterface on Postgres.
type Store struct {
	db *gorm.DB
}

var _ StoreInterface = (*Store)(nil)

// Connect opens the hosted database.
func Connect(dsn string, debug bool) (*Store, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already-open gorm connection. Used by tests with a mocked
// driver.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// IsDuplicate reports whether err is a primary-key conflict. Pipelines treat
// conflicts as "already done" and move on.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (s *Store) ProfileExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking profile %s: %w", username, err)
	}
	return count > 0, nil
}

func (s *Store) InsertProfile(ctx context.Context, profile *models.Profile) error {
	return s.db.WithContext(ctx).Create(profile).Error
}

func (s *Store) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).First(&profile, "username = ?", username).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) ListProfilesByStatus(ctx context.Context, status models.ProfileStatus, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	q := s.db.WithContext(ctx).Where("status = ?", status).Order("username")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("listing %s profiles: %w", status, err)
	}
	return profiles, nil
}

// ListProfilesNeedingRescore returns scored profiles that predate the teacher
// dimension. REJECT profiles are never worth a second model call.
func (s *Store) ListProfilesNeedingRescore(ctx context.Context, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	q := s.db.WithContext(ctx).
		Where("course_teacher_score IS NULL AND recommendation IN ?",
			[]models.Recommendation{models.RecommendCollaborate, models.RecommendReview, models.RecommendPass}).
		Order("username")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("listing profiles needing rescore: %w", err)
	}
	return profiles, nil
}

// ListProfilesForVideoAnalysis returns approved profiles with stored videos
// that have not been through the video model yet. ANALYSIS_FAILED profiles are
// included so a transient failure gets another chance.
func (s *Store) ListProfilesForVideoAnalysis(ctx context.Context, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	q := s.db.WithContext(ctx).Model(&models.Profile{}).
		Joins("JOIN human_reviews ON human_reviews.profile_username = profiles.username").
		Where("human_reviews.decision = ?", models.DecisionApproved).
		Where("profiles.status IN ?", []models.ProfileStatus{models.StatusHumanReviewed, models.StatusAnalyzed, models.StatusAnalysisFailed}).
		Where("profiles.videos_downloaded = ? AND profiles.overall_ugc_score IS NULL", true).
		Order("profiles.username")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("listing profiles for video analysis: %w", err)
	}
	return profiles, nil
}

func (s *Store) UpdateProfile(ctx context.Context, username string, fields map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("username = ?", username).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("updating profile %s: %w", username, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) GetReview(ctx context.Context, username string) (*models.HumanReview, error) {
	var review models.HumanReview
	err := s.db.WithContext(ctx).First(&review, "profile_username = ?", username).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// UpsertReview inserts the review or, when the profile was already reviewed,
// replaces the decision in place.
func (s *Store) UpsertReview(ctx context.Context, review *models.HumanReview) error {
	err := s.db.WithContext(ctx).Create(review).Error
	if IsDuplicate(err) {
		return s.db.WithContext(ctx).Model(&models.HumanReview{}).
			Where("profile_username = ?", review.ProfileUsername).
			Updates(map[string]interface{}{
				"decision":        review.Decision,
				"human_reasoning": review.HumanReasoning,
				"profile_type":    review.ProfileType,
				"reviewed_by":     review.ReviewedBy,
				"reviewed_at":     time.Now().UTC(),
			}).Error
	}
	return err
}

func (s *Store) ListReviewsByDecision(ctx context.Context, decision string) ([]models.HumanReview, error) {
	var reviews []models.HumanReview
	err := s.db.WithContext(ctx).
		Where("decision = ?", decision).
		Order("profile_username").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("listing %s reviews: %w", decision, err)
	}
	return reviews, nil
}

func (s *Store) OutreachExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.OutreachRecord{}).
		Where("profile_username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking outreach for %s: %w", username, err)
	}
	return count > 0, nil
}

func (s *Store) InsertOutreach(ctx context.Context, record *models.OutreachRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *Store) GetOutreach(ctx context.Context, username string) (*models.OutreachRecord, error) {
	var record models.OutreachRecord
	err := s.db.WithContext(ctx).First(&record, "profile_username = ?", username).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Store) UpdateOutreach(ctx context.Context, username string, fields map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.OutreachRecord{}).
		Where("profile_username = ?", username).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("updating outreach for %s: %w", username, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) DeleteOutreach(ctx context.Context, username string) error {
	return s.db.WithContext(ctx).
		Delete(&models.OutreachRecord{}, "profile_username = ?", username).Error
}

func (s *Store) ListOutreach(ctx context.Context) ([]models.OutreachRecord, error) {
	var records []models.OutreachRecord
	err := s.db.WithContext(ctx).
		Order("priority_tier, profile_username").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing outreach: %w", err)
	}
	return records, nil
}

func (s *Store) ListOutreachByStatus(ctx context.Context, status models.OutreachStatus) ([]models.OutreachRecord, error) {
	var records []models.OutreachRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("profile_username").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing %s outreach: %w", status, err)
	}
	return records, nil
}

// ListContactedBefore returns records still in CONTACTED whose first contact
// happened at or before cutoff. These are the follow-up digest candidates.
func (s *Store) ListContactedBefore(ctx context.Context, cutoff time.Time) ([]models.OutreachRecord, error) {
	var records []models.OutreachRecord
	err := s.db.WithContext(ctx).
		Where("status = ? AND contacted_at IS NOT NULL AND contacted_at <= ?", models.OutreachContacted, cutoff).
		Order("contacted_at").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing follow-up candidates: %w", err)
	}
	return records, nil
}

func (s *Store) ListApprovedWithoutOutreach(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Joins("JOIN human_reviews ON human_reviews.profile_username = profiles.username").
		Joins("LEFT JOIN outreach ON outreach.profile_username = profiles.username").
		Where("human_reviews.decision = ? AND outreach.profile_username IS NULL", models.DecisionApproved).
		Order("profiles.username").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("listing approved profiles without outreach: %w", err)
	}
	return profiles, nil
}

func (s *Store) ListCleanupCandidates(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Joins("LEFT JOIN human_reviews ON human_reviews.profile_username = profiles.username").
		Where("human_reviews.decision = ? OR (human_reviews.profile_username IS NULL AND profiles.recommendation IN ?)",
			models.DecisionDenied, []models.Recommendation{models.RecommendPass, models.RecommendReject}).
		Order("profiles.username").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("listing cleanup candidates: %w", err)
	}
	return profiles, nil
}

func (s *Store) ListProfilesMissingVideos(ctx context.Context, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	q := s.db.WithContext(ctx).
		Where("videos_downloaded = ? AND reel_1_url <> ''", false).
		Order("username")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("listing profiles missing videos: %w", err)
	}
	return profiles, nil
}

func (s *Store) InsertAiLog(ctx context.Context, entry *models.AiLogEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}
