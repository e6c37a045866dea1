// Package engagement turns raw scraped profiles into enriched candidates. The
// filter is pure: no I/O, so the selection and the metric math are directly
// testable.
package engagement

import (
	"math"
	"sort"

	"github.com/21draw/ugc-finder/internal/models"
)

// Tally counts why raw profiles were rejected during one recovery run.
type Tally struct {
	PrivateOrEmpty int `json:"private_or_empty"`
	OutsideRange   int `json:"outside_range"`
	NoPosts        int `json:"no_posts"`
	NoReels        int `json:"no_reels"`
}

// Total is the number of rejected profiles across all reasons.
func (t *Tally) Total() int {
	return t.PrivateOrEmpty + t.OutsideRange + t.NoPosts + t.NoReels
}

// Filter holds the follower band. Both bounds are inclusive.
type Filter struct {
	MinFollowers int
	MaxFollowers int
}

// Evaluate applies the follower band and reel heuristics to one raw profile.
// On rejection it increments the matching tally bucket and returns false; on
// acceptance it returns the enriched profile with the top three reels and
// aggregate engagement metrics filled in.
func (f *Filter) Evaluate(raw models.RawProfile, src models.ProfileSource, tally *Tally) (*models.Profile, bool) {
	if raw.Username == "" {
		tally.PrivateOrEmpty++
		return nil, false
	}
	if raw.FollowersCount < f.MinFollowers || raw.FollowersCount > f.MaxFollowers {
		tally.OutsideRange++
		return nil, false
	}
	if len(raw.LatestPosts) == 0 {
		tally.NoPosts++
		return nil, false
	}

	reels := selectReels(raw.LatestPosts)
	if len(reels) == 0 {
		// Accounts posting only long-form or unlabeled video still count if
		// anything video-shaped exists.
		reels = selectAnyVideo(raw.LatestPosts)
	}
	if len(reels) == 0 {
		tally.NoReels++
		return nil, false
	}

	if src.Source == "" {
		src = models.ProfileSource{Source: "unknown", SourceType: "tagged"}
	}

	profile := &models.Profile{
		Username:         raw.Username,
		Followers:        raw.FollowersCount,
		Bio:              truncate(raw.Biography, 500),
		Source:           src.Source,
		SourceType:       src.SourceType,
		Verified:         raw.Verified,
		BusinessCategory: raw.BusinessCategoryName,
		TotalReelsFound:  len(reels),
		Status:           models.StatusPendingReview,
	}

	applyMetrics(profile, reels, raw.FollowersCount)
	applyTopReels(profile, topReels(reels, 3))

	return profile, true
}

// isReel matches the post shapes the scraper labels as short-form video.
func isReel(p models.RawPost) bool {
	return p.ProductType == "clips" || (p.Type == "Video" && p.ProductType != "igtv")
}

// selectReels keeps short-form videos inside the 15-90s window. Posts with an
// unknown duration pass; the scraper frequently omits it.
func selectReels(posts []models.RawPost) []models.RawPost {
	var out []models.RawPost
	for _, p := range posts {
		if !isReel(p) {
			continue
		}
		if p.VideoDuration > 0 && (p.VideoDuration < 15 || p.VideoDuration > 90) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// selectAnyVideo is the relaxed fallback: any post that is video at all.
func selectAnyVideo(posts []models.RawPost) []models.RawPost {
	var out []models.RawPost
	for _, p := range posts {
		if p.Type == "Video" || p.ProductType == "clips" || p.ProductType == "igtv" {
			out = append(out, p)
		}
	}
	return out
}

// topReels returns the n highest-engagement reels. The sort is stable so ties
// keep scrape order and repeated runs pick the same reels.
func topReels(reels []models.RawPost, n int) []models.RawPost {
	sorted := make([]models.RawPost, len(reels))
	copy(sorted, reels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LikesCount+sorted[i].CommentsCount > sorted[j].LikesCount+sorted[j].CommentsCount
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// applyMetrics fills the aggregate columns. Averages cover every qualifying
// reel, not just the stored top three; average duration only covers reels
// whose duration the scraper reported.
func applyMetrics(profile *models.Profile, reels []models.RawPost, followers int) {
	var totalLikes, totalComments int
	var totalDuration float64
	withDuration := 0
	for _, r := range reels {
		totalLikes += r.LikesCount
		totalComments += r.CommentsCount
		if r.VideoDuration > 0 {
			totalDuration += r.VideoDuration
			withDuration++
		}
	}

	n := float64(len(reels))
	profile.AvgLikes = int(math.Round(float64(totalLikes) / n))
	profile.AvgComments = int(math.Round(float64(totalComments) / n))
	if withDuration > 0 {
		profile.AvgDuration = int(math.Round(totalDuration / float64(withDuration)))
	}
	if followers > 0 {
		rate := float64(totalLikes+totalComments) / n / float64(followers) * 100
		profile.EngagementRate = math.Round(rate*100) / 100
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func applyTopReels(profile *models.Profile, top []models.RawPost) {
	if len(top) > 0 {
		profile.Reel1URL = top[0].VideoURL
		profile.Reel1PostURL = top[0].PostURL()
		profile.Reel1Likes = top[0].LikesCount
		profile.Reel1Comments = top[0].CommentsCount
		profile.Reel1Duration = int(math.Round(top[0].VideoDuration))
		profile.Reel1Caption = truncate(top[0].Caption, 300)
	}
	if len(top) > 1 {
		profile.Reel2URL = top[1].VideoURL
		profile.Reel2PostURL = top[1].PostURL()
		profile.Reel2Likes = top[1].LikesCount
		profile.Reel2Comments = top[1].CommentsCount
		profile.Reel2Duration = int(math.Round(top[1].VideoDuration))
		profile.Reel2Caption = truncate(top[1].Caption, 300)
	}
	if len(top) > 2 {
		profile.Reel3URL = top[2].VideoURL
		profile.Reel3PostURL = top[2].PostURL()
		profile.Reel3Likes = top[2].LikesCount
		profile.Reel3Comments = top[2].CommentsCount
		profile.Reel3Duration = int(math.Round(top[2].VideoDuration))
		profile.Reel3Caption = truncate(top[2].Caption, 300)
	}
}
