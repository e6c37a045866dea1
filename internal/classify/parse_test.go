package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "fenced reply",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "control characters replaced",
			in:   "{\"a\":\n\"b\tc\"}",
			want: "{\"a\": \"b c\"}",
		},
		{
			name:    "prose reply",
			in:      "I cannot score this profile.",
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CleanJSON(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseScore(t *testing.T) {
	result, err := ParseScore("```json\n{\"niche_relevance\": 8, \"profile_score\": 7, \"recommendation\": \"COLLABORATE\", \"reasoning\": \"strong art content\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, 8, result.NicheRelevance)
	assert.Equal(t, 7, result.ProfileScore)
	assert.Equal(t, "COLLABORATE", result.Recommendation)
}

func TestParseScoreMissingRecommendation(t *testing.T) {
	_, err := ParseScore(`{"niche_relevance": 8, "profile_score": 7}`)
	assert.Error(t, err)
}

func TestParseOutreachDefaults(t *testing.T) {
	result, err := ParseOutreach(`{"dm_message": "hi there"}`)
	require.NoError(t, err)
	assert.Equal(t, "TIER_2", result.PriorityTier)
	assert.Equal(t, "DM", result.ContactMethod)
	assert.Equal(t, "hi there", result.DMMessage)
	assert.Nil(t, result.ContactEmail)
}

func TestValidateVideoNoVideoPatterns(t *testing.T) {
	for _, pattern := range []string{
		"No video provided for review",
		"Based on the caption, this creator paints",
	} {
		result := &VideoResult{VideoSummary: pattern}
		valid, reason := ValidateVideo(result)
		assert.False(t, valid, pattern)
		assert.NotEmpty(t, reason)
	}
}

func TestValidateVideoSpeechOverride(t *testing.T) {
	result := &VideoResult{
		TalksInVideos:    true,
		AudioDescription: "Lo-fi background music throughout",
		VideoSummary:     "Timelapse painting videos",
	}
	valid, _ := ValidateVideo(result)
	require.True(t, valid)
	assert.False(t, result.TalksInVideos)
	assert.True(t, strings.HasPrefix(result.AudioDescription, "[CORRECTED: talks_in_videos overridden to false] "))
}

func TestValidateVideoSpeechWithEvidence(t *testing.T) {
	result := &VideoResult{
		TalksInVideos:    true,
		AudioDescription: "The creator narrates each step in clear English",
		VideoSummary:     "Tutorial style videos",
	}
	valid, _ := ValidateVideo(result)
	require.True(t, valid)
	assert.True(t, result.TalksInVideos)
	assert.NotContains(t, result.AudioDescription, "[CORRECTED")
}
