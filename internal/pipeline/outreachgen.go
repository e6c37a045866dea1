package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/classify"
	"github.com/21draw/ugc-finder/internal/store"
)

// outreachDelay paces sequential generation calls.
const outreachDelay = time.Second

// OutreachGen creates queued outreach records for approved profiles that do
// not have one yet.
type OutreachGen struct {
	classifier *classify.Classifier
	store      store.StoreInterface
}

// NewOutreachGen creates the outreach generation pipeline.
func NewOutreachGen(classifier *classify.Classifier, st store.StoreInterface) *OutreachGen {
	return &OutreachGen{classifier: classifier, store: st}
}

// Run generates outreach for every approved profile without a record. The
// candidate query excludes profiles with records, so reruns only pick up what
// failed.
func (o *OutreachGen) Run(ctx context.Context, limit int, dryRun bool) (Summary, error) {
	var summary Summary

	profiles, err := o.store.ListApprovedWithoutOutreach(ctx)
	if err != nil {
		return summary, err
	}
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	logrus.Infof("Found %d approved profiles without outreach", len(profiles))
	if len(profiles) == 0 {
		logrus.Info("Nothing to classify")
		return summary, nil
	}

	for i := range profiles {
		p := &profiles[i]
		logrus.Infof("[%d/%d] %s (%s)", i+1, len(profiles), p.Username, p.EffectiveType())

		if dryRun {
			logrus.Info("  [DRY RUN] Would generate outreach messages")
			summary.Skipped++
			continue
		}

		record, err := o.classifier.GenerateOutreach(ctx, p)
		if err != nil {
			logrus.Warnf("  %v", err)
			summary.Errors++
			continue
		}

		if err := o.store.InsertOutreach(ctx, record); err != nil {
			if store.IsDuplicate(err) {
				logrus.Infof("  already has outreach, skipping")
				summary.Skipped++
			} else {
				logrus.Warnf("  %v", err)
				summary.Errors++
			}
			continue
		}

		summary.Processed++
		logrus.Infof("  tier %s, method %s", record.PriorityTier, record.ContactMethod)

		if i < len(profiles)-1 {
			select {
			case <-time.After(outreachDelay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}

	logrus.Infof("Done. Generated: %d, Skipped: %d, Errors: %d", summary.Processed, summary.Skipped, summary.Errors)
	return summary, nil
}
