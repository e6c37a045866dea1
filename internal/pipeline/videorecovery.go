package pipeline

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/apify"
	"github.com/21draw/ugc-finder/internal/checkpoint"
	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/models"
	"github.com/21draw/ugc-finder/internal/storage"
	"github.com/21draw/ugc-finder/internal/store"
)

const (
	videoRecoveryProgress = "video-recovery-progress.json"
	// scrapeBatchSize is how many profiles one scrape run covers.
	scrapeBatchSize = 5
	scrapePollEvery = 5 * time.Second
	batchDelay      = 3 * time.Second
)

// shortcodePattern extracts the post shortcode from a stored post URL.
var shortcodePattern = regexp.MustCompile(`/(p|reel)/([^/?]+)`)

// videoRecoveryState is the resumable progress for video recovery.
type videoRecoveryState struct {
	StartedAt time.Time `json:"started_at"`
	Recovered []string  `json:"recovered"`
	Errors    []string  `json:"errors"`
}

// VideoRecovery refreshes expired CDN URLs by re-scraping profiles in small
// batches, then downloads the reels into storage.
type VideoRecovery struct {
	cfg     *config.Config
	apify   *apify.Client
	store   store.StoreInterface
	storage storage.StorageInterface
}

// NewVideoRecovery creates the video recovery pipeline.
func NewVideoRecovery(cfg *config.Config, ap *apify.Client, st store.StoreInterface, sg storage.StorageInterface) *VideoRecovery {
	return &VideoRecovery{cfg: cfg, apify: ap, store: st, storage: sg}
}

// Run recovers videos for profiles that were scored but whose reels were
// never stored.
func (v *VideoRecovery) Run(ctx context.Context, limit int) (Summary, error) {
	var summary Summary

	state := &videoRecoveryState{StartedAt: time.Now().UTC()}
	if err := checkpoint.ReadSnapshot(v.cfg.DataDir, videoRecoveryProgress, state); err != nil && !os.IsNotExist(err) {
		return summary, err
	}
	recovered := make(map[string]bool, len(state.Recovered))
	for _, u := range state.Recovered {
		recovered[u] = true
	}

	profiles, err := v.store.ListProfilesMissingVideos(ctx, limit)
	if err != nil {
		return summary, err
	}
	var todo []models.Profile
	for _, p := range profiles {
		if !recovered[p.Username] {
			todo = append(todo, p)
		}
	}
	logrus.Infof("Total needing recovery: %d, already recovered: %d, remaining: %d",
		len(profiles), len(state.Recovered), len(todo))
	if len(todo) == 0 {
		logrus.Info("All profiles already have stored videos")
		return summary, nil
	}

	for start := 0; start < len(todo); start += scrapeBatchSize {
		end := start + scrapeBatchSize
		if end > len(todo) {
			end = len(todo)
		}
		batch := todo[start:end]

		usernames := make([]string, len(batch))
		for i, p := range batch {
			usernames[i] = p.Username
		}
		logrus.Infof("Batch %d/%d: %v", start/scrapeBatchSize+1, (len(todo)+scrapeBatchSize-1)/scrapeBatchSize, usernames)

		scraped, err := v.scrapeBatch(ctx, usernames)
		if err != nil {
			logrus.Warnf("  batch scrape failed: %v", err)
			for _, p := range batch {
				state.Errors = append(state.Errors, p.Username)
				summary.Errors++
			}
			v.saveState(state)
			continue
		}

		for i := range batch {
			p := &batch[i]
			if err := v.recoverProfile(ctx, p, scraped); err != nil {
				logrus.Warnf("  %s: %v", p.Username, err)
				state.Errors = append(state.Errors, p.Username)
				summary.Errors++
			} else {
				state.Recovered = append(state.Recovered, p.Username)
				summary.Processed++
			}
			v.saveState(state)
		}

		if end < len(todo) {
			select {
			case <-time.After(batchDelay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}

	logrus.Infof("Done. Recovered: %d, Errors: %d", summary.Processed, summary.Errors)
	return summary, nil
}

func (v *VideoRecovery) scrapeBatch(ctx context.Context, usernames []string) ([]models.RawProfile, error) {
	run, err := v.apify.StartProfileScrape(ctx, v.cfg.ProfileScraperActor, usernames)
	if err != nil {
		return nil, err
	}
	logrus.Infof("  scrape run %s started, waiting", run.ID)

	finished, err := v.apify.WaitForRun(ctx, run.ID, scrapePollEvery)
	if err != nil {
		return nil, err
	}

	var scraped []models.RawProfile
	if err := v.apify.DatasetItems(ctx, finished.DefaultDatasetID, &scraped); err != nil {
		return nil, err
	}
	return scraped, nil
}

// recoverProfile matches the profile's selected reels against fresh scrape
// data by shortcode, downloads them, and stores them. When no shortcode
// matches, the profile's reel selection has rotated out; the current top reels
// stand in, and the substitution is logged.
func (v *VideoRecovery) recoverProfile(ctx context.Context, p *models.Profile, scraped []models.RawProfile) error {
	var fresh *models.RawProfile
	for i := range scraped {
		if scraped[i].Username == p.Username {
			fresh = &scraped[i]
			break
		}
	}
	if fresh == nil {
		return fmt.Errorf("not found in scrape results")
	}
	if len(fresh.LatestPosts) == 0 {
		return fmt.Errorf("no posts returned")
	}

	targets := []string{
		extractShortcode(p.Reel1PostURL),
		extractShortcode(p.Reel2PostURL),
		extractShortcode(p.Reel3PostURL),
	}

	freshURLs := make([]string, 3)
	for _, post := range fresh.LatestPosts {
		for i := 0; i < 3; i++ {
			if targets[i] != "" && post.ShortCode == targets[i] && post.VideoURL != "" {
				freshURLs[i] = post.VideoURL
			}
		}
	}

	matched := 0
	for _, u := range freshURLs {
		if u != "" {
			matched++
		}
	}
	if matched == 0 {
		logrus.Warnf("  %s: no shortcode matches, substituting current top reels", p.Username)
		var reels []models.RawPost
		for _, post := range fresh.LatestPosts {
			if (post.ProductType == "clips" || post.Type == "Video") && post.VideoURL != "" {
				reels = append(reels, post)
			}
		}
		sort.SliceStable(reels, func(i, j int) bool {
			return reels[i].LikesCount+reels[i].CommentsCount > reels[j].LikesCount+reels[j].CommentsCount
		})
		for i := 0; i < 3 && i < len(reels); i++ {
			freshURLs[i] = reels[i].VideoURL
		}
	}

	paths := make([]*string, 3)
	stored := 0
	for i := 0; i < 3; i++ {
		if freshURLs[i] == "" {
			continue
		}
		data, err := v.apify.DownloadFile(ctx, freshURLs[i])
		if err != nil {
			logrus.Warnf("  reel %d: %v", i+1, err)
			continue
		}
		path := fmt.Sprintf("%s/reel_%d.mp4", p.Username, i+1)
		if err := v.storage.Upload(ctx, path, data, "video/mp4"); err != nil {
			logrus.Warnf("  reel %d: %v", i+1, err)
			continue
		}
		paths[i] = &path
		stored++
	}
	if stored == 0 {
		return fmt.Errorf("no videos downloaded")
	}

	fields := map[string]interface{}{
		"reel_1_storage_path": paths[0],
		"reel_2_storage_path": paths[1],
		"reel_3_storage_path": paths[2],
		"videos_downloaded":   true,
	}
	for i, u := range freshURLs {
		if u != "" {
			fields[fmt.Sprintf("reel_%d_url", i+1)] = u
		}
	}
	if err := v.store.UpdateProfile(ctx, p.Username, fields); err != nil {
		return err
	}

	logrus.Infof("  %s: %d/3 videos stored", p.Username, stored)
	return nil
}

func (v *VideoRecovery) saveState(state *videoRecoveryState) {
	if err := checkpoint.WriteSnapshot(v.cfg.DataDir, videoRecoveryProgress, state); err != nil {
		logrus.Warnf("could not save recovery progress: %v", err)
	}
}

func extractShortcode(postURL string) string {
	if m := shortcodePattern.FindStringSubmatch(postURL); m != nil {
		return m[2]
	}
	return ""
}
