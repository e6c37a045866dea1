package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/storage"
	"github.com/21draw/ugc-finder/internal/store"
)

// Cleanup removes stored reel videos for profiles that will never be
// contacted: denied ones, and PASS/REJECT profiles nobody reviewed. Database
// rows are kept; only blobs and the path columns are cleared.
type Cleanup struct {
	store   store.StoreInterface
	storage storage.StorageInterface
}

// NewCleanup creates the cleanup pipeline.
func NewCleanup(st store.StoreInterface, sg storage.StorageInterface) *Cleanup {
	return &Cleanup{store: st, storage: sg}
}

// Run deletes dead videos. A partially failed storage batch does not stop the
// path columns from being cleared; orphaned blobs are caught by the next run.
func (c *Cleanup) Run(ctx context.Context, dryRun bool) (Summary, error) {
	var summary Summary

	candidates, err := c.store.ListCleanupCandidates(ctx)
	if err != nil {
		return summary, err
	}

	var paths []string
	var usernames []string
	for i := range candidates {
		p := &candidates[i]
		if !p.VideosDownloaded {
			continue
		}
		usernames = append(usernames, p.Username)
		paths = append(paths, p.StoragePaths()...)
	}

	logrus.Infof("Profiles to clean: %d, video files to delete: %d", len(usernames), len(paths))
	if len(usernames) == 0 {
		logrus.Info("Nothing to clean")
		return summary, nil
	}

	if dryRun {
		logrus.Infof("[DRY RUN] Would delete %d files and clear paths on %d profiles", len(paths), len(usernames))
		summary.Skipped = len(usernames)
		return summary, nil
	}

	removed, removeErr := c.storage.Remove(ctx, paths)
	if removeErr != nil {
		logrus.Warnf("Some storage batches failed: %v", removeErr)
	}
	logrus.Infof("Deleted %d/%d video files", removed, len(paths))

	for _, username := range usernames {
		err := c.store.UpdateProfile(ctx, username, map[string]interface{}{
			"reel_1_storage_path": nil,
			"reel_2_storage_path": nil,
			"reel_3_storage_path": nil,
			"videos_downloaded":   false,
		})
		if err != nil {
			logrus.Warnf("%s: %v", username, err)
			summary.Errors++
			continue
		}
		summary.Processed++
	}

	logrus.Infof("Done. Cleaned %d profiles, deleted %d video files, errors: %d",
		summary.Processed, removed, summary.Errors)
	return summary, nil
}
