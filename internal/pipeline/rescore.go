package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/classify"
	"github.com/21draw/ugc-finder/internal/store"
)

// rescoreDelay paces sequential rescore calls.
const rescoreDelay = time.Second

// Rescore adds the course-teacher dimension to profiles scored before it
// existed. Original scores are never touched.
type Rescore struct {
	classifier *classify.Classifier
	store      store.StoreInterface
}

// NewRescore creates the rescore pipeline.
func NewRescore(classifier *classify.Classifier, st store.StoreInterface) *Rescore {
	return &Rescore{classifier: classifier, store: st}
}

// Run rescores profiles missing a course_teacher_score. The work is naturally
// idempotent: a rescored profile drops out of the candidate query.
func (r *Rescore) Run(ctx context.Context, limit int, dryRun bool) (Summary, error) {
	var summary Summary

	profiles, err := r.store.ListProfilesNeedingRescore(ctx, limit)
	if err != nil {
		return summary, err
	}
	logrus.Infof("Found %d profiles to re-score", len(profiles))
	if len(profiles) == 0 {
		logrus.Info("Nothing to re-score")
		return summary, nil
	}

	for i := range profiles {
		p := &profiles[i]
		logrus.Infof("[%d/%d] %s (%d followers, current score: %d)",
			i+1, len(profiles), p.Username, p.Followers, p.ProfileScore)

		if dryRun {
			logrus.Info("  [DRY RUN] Would call the model and update the profile")
			summary.Skipped++
			continue
		}

		result, err := r.classifier.Rescore(ctx, p)
		if err != nil {
			logrus.Warnf("  %v", err)
			summary.Errors++
			continue
		}
		summary.Processed++
		logrus.Infof("  course_teacher_score: %d, suggested_type: %s", result.CourseTeacherScore, result.SuggestedType)

		if i < len(profiles)-1 {
			select {
			case <-time.After(rescoreDelay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}

	logrus.Infof("Done. Re-scored: %d, Errors: %d", summary.Processed, summary.Errors)
	return summary, nil
}
