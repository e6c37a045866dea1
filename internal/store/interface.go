package store

import (
	"context"
	"time"

	"github.com/21draw/ugc-finder/internal/models"
)

// StoreInterface defines the contract for the hosted database.
type StoreInterface interface {
	// Profiles
	ProfileExists(ctx context.Context, username string) (bool, error)
	InsertProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, username string) (*models.Profile, error)
	ListProfilesByStatus(ctx context.Context, status models.ProfileStatus, limit int) ([]models.Profile, error)
	ListProfilesNeedingRescore(ctx context.Context, limit int) ([]models.Profile, error)
	ListProfilesForVideoAnalysis(ctx context.Context, limit int) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, username string, fields map[string]interface{}) error

	// Human reviews
	GetReview(ctx context.Context, username string) (*models.HumanReview, error)
	UpsertReview(ctx context.Context, review *models.HumanReview) error
	ListReviewsByDecision(ctx context.Context, decision string) ([]models.HumanReview, error)

	// Outreach
	OutreachExists(ctx context.Context, username string) (bool, error)
	InsertOutreach(ctx context.Context, record *models.OutreachRecord) error
	GetOutreach(ctx context.Context, username string) (*models.OutreachRecord, error)
	UpdateOutreach(ctx context.Context, username string, fields map[string]interface{}) error
	DeleteOutreach(ctx context.Context, username string) error
	ListOutreach(ctx context.Context) ([]models.OutreachRecord, error)
	ListOutreachByStatus(ctx context.Context, status models.OutreachStatus) ([]models.OutreachRecord, error)
	ListContactedBefore(ctx context.Context, cutoff time.Time) ([]models.OutreachRecord, error)

	// Approved profiles not yet queued for outreach
	ListApprovedWithoutOutreach(ctx context.Context) ([]models.Profile, error)

	// Cleanup candidates: denied reviews plus unreviewed PASS/REJECT profiles
	ListCleanupCandidates(ctx context.Context) ([]models.Profile, error)

	// Profiles whose selected reels were never downloaded to storage
	ListProfilesMissingVideos(ctx context.Context, limit int) ([]models.Profile, error)

	// Audit log, append only
	InsertAiLog(ctx context.Context, entry *models.AiLogEntry) error
}
