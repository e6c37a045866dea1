package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/21draw/ugc-finder/internal/models"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func typePtr(t models.ProfileType) *models.ProfileType { return &t }

func TestFormatNum(t *testing.T) {
	assert.Equal(t, "950", formatNum(950))
	assert.Equal(t, "12.5K", formatNum(12500))
	assert.Equal(t, "1.2M", formatNum(1200000))
}

func TestCleanTextStripsNewlinesAndAstralRunes(t *testing.T) {
	got := cleanText("line one\nline two\r😀 done")
	assert.NotContains(t, got, "\n")
	assert.NotContains(t, got, "\r")
	assert.NotContains(t, got, "😀")
	assert.Contains(t, got, "line one")
}

func TestBuildDiscoveryPromptIncludesMetrics(t *testing.T) {
	p := &models.Profile{
		Username:       "artist_one",
		Followers:      12500,
		Bio:            "digital painter",
		EngagementRate: 4.5,
		Reel1Caption:   "my newest piece",
	}
	prompt := BuildDiscoveryPrompt(p)
	assert.Contains(t, prompt, "artist_one")
	assert.Contains(t, prompt, "12500")
	assert.Contains(t, prompt, "digital painter")
	assert.Contains(t, prompt, "my newest piece")
}

func TestBuildOutreachPromptRoleVariants(t *testing.T) {
	base := models.Profile{
		Username:     "artist_one",
		Followers:    15000,
		Bio:          "oil painter",
		ProfileScore: 8,
	}

	both := base
	both.ProfileType = typePtr(models.TypeBoth)
	prompt := BuildOutreachPrompt(&both)
	assert.Contains(t, prompt, "teacher_dm_message")
	assert.Contains(t, prompt, "teacher_email_subject")

	ugc := base
	ugc.ProfileType = typePtr(models.TypeUGCCreator)
	prompt = BuildOutreachPrompt(&ugc)
	assert.NotContains(t, prompt, "teacher_dm_message")
}

func TestBuildOutreachPromptLanguageContext(t *testing.T) {
	p := &models.Profile{
		Username:        "artist_one",
		Followers:       15000,
		OverallUGCScore: intPtr(7),
		SpeaksEnglish:   boolPtr(false),
	}
	prompt := BuildOutreachPrompt(p)
	assert.Contains(t, prompt, "does NOT speak English")

	// English speakers get no language caveat block.
	p.SpeaksEnglish = boolPtr(true)
	assert.Equal(t, "", languageContext(p))
}

func TestBuildVideoPromptMentionsEveryVideo(t *testing.T) {
	p := &models.Profile{Username: "artist_one", Followers: 15000}
	prompt := BuildVideoPrompt(p, 3)
	assert.Contains(t, prompt, "3 video")
	assert.Contains(t, prompt, "talks_in_videos")
	assert.Contains(t, prompt, "overall_ugc_score")
	assert.True(t, strings.Contains(prompt, "JSON"))
}

func TestAudienceContext(t *testing.T) {
	micro := audienceContext(15000)
	mid := audienceContext(50000)
	large := audienceContext(120000)
	assert.NotEqual(t, micro, mid)
	assert.NotEqual(t, mid, large)
}
