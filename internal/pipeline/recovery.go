package pipeline

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/apify"
	"github.com/21draw/ugc-finder/internal/checkpoint"
	"github.com/21draw/ugc-finder/internal/classify"
	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/engagement"
	"github.com/21draw/ugc-finder/internal/models"
	"github.com/21draw/ugc-finder/internal/store"
)

const (
	checkpointFile   = "progress.json"
	postsSnapshot    = "raw-tagged-posts.json"
	sourcesSnapshot  = "source-map.json"
	profilesSnapshot = "raw-profiles.json"
	filteredSnapshot = "filtered-profiles.json"
	analyzedSnapshot = "analyzed-profiles.json"
)

// taggedURLPattern pulls the competitor account out of a tagged-page URL.
var taggedURLPattern = regexp.MustCompile(`instagram\.com/([^/]+)/tagged`)

// Recovery rebuilds the discovery pipeline from finished scrape runs: list the
// day's runs, download posts and profiles, filter, score with the text model,
// and insert. It only ever reads from the scrape provider.
type Recovery struct {
	cfg        *config.Config
	apify      *apify.Client
	classifier *classify.Classifier
	store      store.StoreInterface
}

// NewRecovery creates the recovery pipeline.
func NewRecovery(cfg *config.Config, ap *apify.Client, classifier *classify.Classifier, st store.StoreInterface) *Recovery {
	return &Recovery{cfg: cfg, apify: ap, classifier: classifier, store: st}
}

// Run executes the full recovery for one day (YYYY-MM-DD). A positive limit
// caps how many filtered profiles go through scoring, for test runs. Dry runs
// stop after filtering and report what would happen.
func (r *Recovery) Run(ctx context.Context, date string, limit int, dryRun bool) (Summary, error) {
	var summary Summary

	cp, err := checkpoint.Load(r.cfg.DataDir, checkpointFile)
	if err != nil {
		return summary, err
	}

	taggedRuns, err := r.apify.ListRunsOnDate(ctx, r.cfg.TaggedPostsActor, date)
	if err != nil {
		return summary, err
	}
	profileRuns, err := r.apify.ListRunsOnDate(ctx, r.cfg.ProfileScraperActor, date)
	if err != nil {
		return summary, err
	}
	logrus.Infof("[1/6] Found %d tagged-post runs, %d profile runs on %s", len(taggedRuns), len(profileRuns), date)
	if len(taggedRuns) == 0 && len(profileRuns) == 0 {
		return summary, fmt.Errorf("no finished runs found on %s", date)
	}

	sourceMap, err := r.buildSourceMap(ctx, taggedRuns, cp)
	if err != nil {
		return summary, err
	}

	rawProfiles, err := r.downloadProfiles(ctx, profileRuns, cp)
	if err != nil {
		return summary, err
	}

	filtered, err := r.filterProfiles(rawProfiles, sourceMap, cp)
	if err != nil {
		return summary, err
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	if dryRun {
		logrus.Infof("[DRY RUN] Would score and insert %d profiles", len(filtered))
		summary.Skipped = len(filtered)
		return summary, nil
	}

	analyzed, err := r.scoreProfiles(ctx, filtered, cp)
	if err != nil {
		return summary, err
	}

	summary = r.insertProfiles(ctx, analyzed, cp)

	logrus.Infof("[6/6] Done. Inserted: %d, Skipped: %d, Errors: %d (checkpoint errors logged: %d)",
		summary.Processed, summary.Skipped, summary.Errors, len(cp.Progress.Errors))
	return summary, nil
}

// buildSourceMap downloads every tagged-post dataset and attributes each
// discovered username to the competitor whose tagged page surfaced it. First
// attribution wins.
func (r *Recovery) buildSourceMap(ctx context.Context, runs []apify.Run, cp *checkpoint.File) (map[string]models.ProfileSource, error) {
	sourceMap := make(map[string]models.ProfileSource)
	if cp.Progress.PostsFetched {
		if err := checkpoint.ReadSnapshot(r.cfg.DataDir, sourcesSnapshot, &sourceMap); err == nil {
			logrus.Infof("[2/6] Resuming: %d usernames already mapped", len(sourceMap))
			return sourceMap, nil
		}
	}

	var allPosts []models.RawPost
	for _, run := range runs {
		inputURL, err := r.apify.RunInputURL(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		competitor := "unknown"
		if m := taggedURLPattern.FindStringSubmatch(inputURL); m != nil {
			competitor = m[1]
		}

		var posts []models.RawPost
		if err := r.apify.DatasetItems(ctx, run.DefaultDatasetID, &posts); err != nil {
			return nil, err
		}
		logrus.Infof("[2/6] %s: %d posts", competitor, len(posts))
		allPosts = append(allPosts, posts...)

		for _, post := range posts {
			if post.OwnerUsername == "" {
				continue
			}
			if _, seen := sourceMap[post.OwnerUsername]; !seen {
				sourceMap[post.OwnerUsername] = models.ProfileSource{Source: competitor, SourceType: "tagged"}
			}
		}

		if err := r.pause(ctx); err != nil {
			return nil, err
		}
	}

	if err := checkpoint.WriteSnapshot(r.cfg.DataDir, postsSnapshot, allPosts); err != nil {
		return nil, err
	}
	if err := checkpoint.WriteSnapshot(r.cfg.DataDir, sourcesSnapshot, sourceMap); err != nil {
		return nil, err
	}
	cp.Progress.PostsFetched = true
	if err := cp.Save(); err != nil {
		return nil, err
	}
	logrus.Infof("[2/6] %d posts, %d unique usernames mapped", len(allPosts), len(sourceMap))
	return sourceMap, nil
}

func (r *Recovery) downloadProfiles(ctx context.Context, runs []apify.Run, cp *checkpoint.File) ([]models.RawProfile, error) {
	var profiles []models.RawProfile
	if cp.Progress.ProfilesFetched {
		if err := checkpoint.ReadSnapshot(r.cfg.DataDir, profilesSnapshot, &profiles); err == nil {
			logrus.Infof("[3/6] Resuming: %d raw profiles already downloaded", len(profiles))
			return profiles, nil
		}
	}

	for i, run := range runs {
		var items []models.RawProfile
		if err := r.apify.DatasetItems(ctx, run.DefaultDatasetID, &items); err != nil {
			logrus.Warnf("[3/6] dataset for run %s failed: %v", run.ID, err)
			continue
		}
		profiles = append(profiles, items...)

		if (i+1)%50 == 0 || i == len(runs)-1 {
			logrus.Infof("[3/6] [%d/%d] %d profiles collected", i+1, len(runs), len(profiles))
		}
		if err := r.pause(ctx); err != nil {
			return nil, err
		}
	}

	if err := checkpoint.WriteSnapshot(r.cfg.DataDir, profilesSnapshot, profiles); err != nil {
		return nil, err
	}
	cp.Progress.ProfilesFetched = true
	if err := cp.Save(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *Recovery) filterProfiles(raw []models.RawProfile, sourceMap map[string]models.ProfileSource, cp *checkpoint.File) ([]*models.Profile, error) {
	if cp.Progress.FilteringDone {
		var cached []*models.Profile
		if err := checkpoint.ReadSnapshot(r.cfg.DataDir, filteredSnapshot, &cached); err == nil {
			logrus.Infof("[4/6] Resuming: %d filtered profiles already exist", len(cached))
			return cached, nil
		}
	}

	filter := engagement.Filter{MinFollowers: r.cfg.MinFollowers, MaxFollowers: r.cfg.MaxFollowers}
	var tally engagement.Tally
	var filtered []*models.Profile

	for _, rp := range raw {
		profile, ok := filter.Evaluate(rp, sourceMap[rp.Username], &tally)
		if ok {
			filtered = append(filtered, profile)
		}
	}

	logrus.Infof("[4/6] Skipped: %d private/empty, %d outside follower range, %d no posts, %d no reels",
		tally.PrivateOrEmpty, tally.OutsideRange, tally.NoPosts, tally.NoReels)
	logrus.Infof("[4/6] Qualified: %d profiles", len(filtered))

	if err := checkpoint.WriteSnapshot(r.cfg.DataDir, filteredSnapshot, filtered); err != nil {
		return nil, err
	}
	cp.Progress.FilteringDone = true
	if err := cp.Save(); err != nil {
		return nil, err
	}
	return filtered, nil
}

func (r *Recovery) scoreProfiles(ctx context.Context, filtered []*models.Profile, cp *checkpoint.File) ([]*models.Profile, error) {
	var analyzed []*models.Profile
	if err := checkpoint.ReadSnapshot(r.cfg.DataDir, analyzedSnapshot, &analyzed); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var todo []*models.Profile
	for _, p := range filtered {
		if !cp.Analyzed(p.Username) {
			todo = append(todo, p)
		}
	}
	logrus.Infof("[5/6] %d to score (%d already done)", len(todo), len(filtered)-len(todo))
	if len(todo) == 0 {
		return analyzed, nil
	}

	var mu sync.Mutex
	err := r.classifier.ScoreBatch(ctx, todo, func(p *models.Profile, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			logrus.Warnf("[5/6] %s: %v", p.Username, err)
			cp.RecordError(p.Username, "score", err)
		} else {
			analyzed = append(analyzed, p)
			cp.MarkAnalyzed(p.Username)
			logrus.Infof("[5/6] [%d/%d] %s - %s (score: %d)",
				len(cp.Progress.AnalyzedUsernames), len(filtered), p.Username, p.Recommendation, p.ProfileScore)
		}
		if err := checkpoint.WriteSnapshot(r.cfg.DataDir, analyzedSnapshot, analyzed); err != nil {
			logrus.Warnf("[5/6] snapshot write failed: %v", err)
		}
		if err := cp.Save(); err != nil {
			logrus.Warnf("[5/6] checkpoint save failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return analyzed, nil
}

// insertProfiles writes scored profiles to the store. Two idempotence layers:
// the checkpoint skips usernames finished in this run, and an existence check
// plus duplicate-key handling skips profiles inserted by anything else.
func (r *Recovery) insertProfiles(ctx context.Context, analyzed []*models.Profile, cp *checkpoint.File) Summary {
	var summary Summary

	for _, p := range analyzed {
		if cp.Inserted(p.Username) {
			summary.Skipped++
			continue
		}

		exists, err := r.store.ProfileExists(ctx, p.Username)
		if err != nil {
			logrus.Warnf("[6/6] %s: %v", p.Username, err)
			cp.RecordError(p.Username, "insert", err)
			summary.Errors++
			continue
		}
		if exists {
			summary.Skipped++
			cp.MarkInserted(p.Username)
			_ = cp.Save()
			continue
		}

		if err := r.store.InsertProfile(ctx, p); err != nil {
			if store.IsDuplicate(err) {
				summary.Skipped++
			} else {
				logrus.Warnf("[6/6] %s: %v", p.Username, err)
				cp.RecordError(p.Username, "insert", err)
				summary.Errors++
				continue
			}
		} else {
			summary.Processed++
		}

		cp.MarkInserted(p.Username)
		if err := cp.Save(); err != nil {
			logrus.Warnf("[6/6] checkpoint save failed: %v", err)
		}
	}

	return summary
}

func (r *Recovery) pause(ctx context.Context) error {
	select {
	case <-time.After(r.cfg.ApifyRequestDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
