package engagement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/21draw/ugc-finder/internal/models"
)

func reel(likes, comments int, duration float64) models.RawPost {
	return models.RawPost{
		Type:          "Video",
		ProductType:   "clips",
		LikesCount:    likes,
		CommentsCount: comments,
		VideoDuration: duration,
		VideoURL:      "https://cdn.example.com/v.mp4",
		ShortCode:     "abc",
	}
}

func TestEvaluateMetrics(t *testing.T) {
	f := &Filter{MinFollowers: 2000, MaxFollowers: 150000}
	raw := models.RawProfile{
		Username:       "artist_one",
		FollowersCount: 2000,
		LatestPosts: []models.RawPost{
			reel(100, 10, 30),
			reel(50, 5, 60),
			reel(10, 1, 0),
		},
	}

	var tally Tally
	p, ok := f.Evaluate(raw, models.ProfileSource{Source: "competitor_a", SourceType: "tagged"}, &tally)
	require.True(t, ok)

	assert.Equal(t, 53, p.AvgLikes)
	assert.Equal(t, 5, p.AvgComments)
	// Average duration only covers the two reels that reported one.
	assert.Equal(t, 45, p.AvgDuration)
	// (160+16)/3/2000*100 rounded to two decimals.
	assert.Equal(t, 2.93, p.EngagementRate)
	assert.Equal(t, 3, p.TotalReelsFound)
	assert.Equal(t, models.StatusPendingReview, p.Status)
	assert.Equal(t, "competitor_a", p.Source)
}

func TestEvaluateFollowerBandInclusive(t *testing.T) {
	f := &Filter{MinFollowers: 2000, MaxFollowers: 150000}
	posts := []models.RawPost{reel(10, 1, 30)}

	cases := []struct {
		followers int
		accepted  bool
	}{
		{1999, false},
		{2000, true},
		{150000, true},
		{150001, false},
	}
	for _, tc := range cases {
		var tally Tally
		_, ok := f.Evaluate(models.RawProfile{
			Username:       "u",
			FollowersCount: tc.followers,
			LatestPosts:    posts,
		}, models.ProfileSource{}, &tally)
		assert.Equal(t, tc.accepted, ok, "followers=%d", tc.followers)
		if !tc.accepted {
			assert.Equal(t, 1, tally.OutsideRange)
		}
	}
}

func TestEvaluateRejectionTally(t *testing.T) {
	f := &Filter{MinFollowers: 2000, MaxFollowers: 150000}
	var tally Tally

	_, ok := f.Evaluate(models.RawProfile{}, models.ProfileSource{}, &tally)
	assert.False(t, ok)

	_, ok = f.Evaluate(models.RawProfile{Username: "u", FollowersCount: 5000}, models.ProfileSource{}, &tally)
	assert.False(t, ok)

	// A photo-only account has posts but no reels.
	_, ok = f.Evaluate(models.RawProfile{
		Username:       "u",
		FollowersCount: 5000,
		LatestPosts:    []models.RawPost{{Type: "Image"}},
	}, models.ProfileSource{}, &tally)
	assert.False(t, ok)

	assert.Equal(t, 1, tally.PrivateOrEmpty)
	assert.Equal(t, 1, tally.NoPosts)
	assert.Equal(t, 1, tally.NoReels)
	assert.Equal(t, 3, tally.Total())
}

func TestEvaluateSourceFallback(t *testing.T) {
	f := &Filter{MinFollowers: 2000, MaxFollowers: 150000}
	var tally Tally
	p, ok := f.Evaluate(models.RawProfile{
		Username:       "orphan",
		FollowersCount: 5000,
		LatestPosts:    []models.RawPost{reel(10, 1, 30)},
	}, models.ProfileSource{}, &tally)
	require.True(t, ok)
	assert.Equal(t, "unknown", p.Source)
	assert.Equal(t, "tagged", p.SourceType)
}

func TestEvaluateTruncatesBioAndCaptions(t *testing.T) {
	f := &Filter{MinFollowers: 2000, MaxFollowers: 150000}
	post := reel(10, 1, 30)
	post.Caption = strings.Repeat("c", 400)

	var tally Tally
	p, ok := f.Evaluate(models.RawProfile{
		Username:       "verbose",
		FollowersCount: 5000,
		Biography:      strings.Repeat("b", 600),
		LatestPosts:    []models.RawPost{post},
	}, models.ProfileSource{}, &tally)
	require.True(t, ok)
	assert.Len(t, p.Bio, 500)
	assert.Len(t, p.Reel1Caption, 300)
}

func TestSelectReelsDurationWindow(t *testing.T) {
	posts := []models.RawPost{
		reel(1, 0, 14),  // too short
		reel(2, 0, 15),  // boundary, keep
		reel(3, 0, 90),  // boundary, keep
		reel(4, 0, 91),  // too long
		reel(5, 0, 0),   // unknown duration, keep
		{Type: "Video", ProductType: "igtv", VideoDuration: 30}, // igtv is not a reel
	}
	kept := selectReels(posts)
	require.Len(t, kept, 3)
	assert.Equal(t, 2, kept[0].LikesCount)
	assert.Equal(t, 3, kept[1].LikesCount)
	assert.Equal(t, 5, kept[2].LikesCount)
}

func TestEvaluateRelaxedFallback(t *testing.T) {
	// Every video is outside the reel window, so the relaxed pass keeps them.
	f := &Filter{MinFollowers: 2000, MaxFollowers: 150000}
	var tally Tally
	p, ok := f.Evaluate(models.RawProfile{
		Username:       "longform",
		FollowersCount: 5000,
		LatestPosts: []models.RawPost{
			{Type: "Video", ProductType: "igtv", VideoDuration: 300, LikesCount: 7, VideoURL: "u"},
		},
	}, models.ProfileSource{}, &tally)
	require.True(t, ok)
	assert.Equal(t, 1, p.TotalReelsFound)
	assert.Equal(t, 0, tally.NoReels)
}

func TestTopReelsStableOrder(t *testing.T) {
	a := reel(10, 0, 30)
	a.ShortCode = "a"
	b := reel(10, 0, 30)
	b.ShortCode = "b"
	c := reel(20, 0, 30)
	c.ShortCode = "c"

	top := topReels([]models.RawPost{a, b, c}, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "c", top[0].ShortCode)
	// Tied reels keep scrape order.
	assert.Equal(t, "a", top[1].ShortCode)
	assert.Equal(t, "b", top[2].ShortCode)
}
