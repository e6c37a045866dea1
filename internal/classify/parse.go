package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSON strips markdown fences and control characters from a model reply.
// An error means the reply is prose, not JSON; callers skip the profile and
// flag it rather than guessing at scores.
func CleanJSON(text string) (string, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var b strings.Builder
	for _, r := range cleaned {
		if r < 0x20 || r == 0x7F {
			b.WriteByte(' ')
		} else {
			b.WriteRune(r)
		}
	}
	cleaned = strings.TrimSpace(b.String())

	if !strings.HasPrefix(cleaned, "{") {
		return "", fmt.Errorf("model returned prose instead of JSON")
	}
	return cleaned, nil
}

// ScoreResult is the parsed discovery or rescore reply. CourseTeacherScore and
// SuggestedType are only present in rescore replies.
type ScoreResult struct {
	NicheRelevance     int    `json:"niche_relevance"`
	ProfileScore       int    `json:"profile_score"`
	CourseTeacherScore int    `json:"course_teacher_score"`
	SuggestedType      string `json:"suggested_type"`
	Recommendation     string `json:"recommendation"`
	Reasoning          string `json:"reasoning"`
}

// ParseScore parses a discovery or rescore reply.
func ParseScore(text string) (*ScoreResult, error) {
	cleaned, err := CleanJSON(text)
	if err != nil {
		return nil, err
	}
	var result ScoreResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("parsing score reply: %w", err)
	}
	if result.Recommendation == "" {
		return nil, fmt.Errorf("score reply missing recommendation")
	}
	return &result, nil
}

// OutreachResult is the parsed outreach-generation reply.
type OutreachResult struct {
	ContactEmail        *string `json:"contact_email"`
	ContactMethod       string  `json:"contact_method"`
	PriorityTier        string  `json:"priority_tier"`
	DMMessage           string  `json:"dm_message"`
	EmailSubject        *string `json:"email_subject"`
	EmailBody           *string `json:"email_body"`
	TeacherDMMessage    *string `json:"teacher_dm_message"`
	TeacherEmailSubject *string `json:"teacher_email_subject"`
	TeacherEmailBody    *string `json:"teacher_email_body"`
	LanguageNote        *string `json:"language_note"`
	PersonalizationHook *string `json:"personalization_hook"`
}

// ParseOutreach parses an outreach reply, defaulting tier and method the same
// way downstream tooling expects.
func ParseOutreach(text string) (*OutreachResult, error) {
	cleaned, err := CleanJSON(text)
	if err != nil {
		return nil, err
	}
	var result OutreachResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("parsing outreach reply: %w", err)
	}
	if result.PriorityTier == "" {
		result.PriorityTier = "TIER_2"
	}
	if result.ContactMethod == "" {
		result.ContactMethod = "DM"
	}
	return &result, nil
}

// VideoResult is the parsed video-analysis reply.
type VideoResult struct {
	TalksInVideos    bool   `json:"talks_in_videos"`
	AudioDescription string `json:"audio_description"`
	SpeechQuote      string `json:"speech_quote"`
	SpeaksEnglish    bool   `json:"speaks_english"`
	VideosWithSpeech int    `json:"videos_with_speech"`
	VoicePotential   int    `json:"voice_potential"`
	TeachingPotential int   `json:"teaching_potential"`
	ContentQuality   int    `json:"content_quality"`
	BrandFit         int    `json:"brand_fit"`
	OverallUGCScore  int    `json:"overall_ugc_score"`
	VideoSummary     string `json:"video_summary"`
	UGCReasoning     string `json:"ugc_reasoning"`
	Recommendation   string `json:"recommendation"`
	NextSteps        string `json:"next_steps"`
}

// ParseVideo parses a video-analysis reply.
func ParseVideo(text string) (*VideoResult, error) {
	cleaned, err := CleanJSON(text)
	if err != nil {
		return nil, err
	}
	var result VideoResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("parsing video reply: %w", err)
	}
	return &result, nil
}

// noVideoPatterns indicate the model described the captions rather than
// watching the videos. Any hit invalidates the whole analysis.
var noVideoPatterns = []string{
	"no video provided",
	"based on the caption",
	"without video",
	"cannot analyze video",
}

// speechKeywords are the words a genuine audio description contains when the
// creator actually speaks.
var speechKeywords = []string{"speak", "talk", "voice", "narrat", "explain", "say", "comment"}

// ValidateVideo guards against the two known hallucination modes. If the model
// never watched the videos the result is invalid and the profile is marked
// failed. If it claims speech without describing any in the audio, the claim
// is overridden in place and the override is recorded in the description.
func ValidateVideo(result *VideoResult) (bool, string) {
	summary := strings.ToLower(result.VideoSummary)
	audio := strings.ToLower(result.AudioDescription)

	for _, pattern := range noVideoPatterns {
		if strings.Contains(summary, pattern) || strings.Contains(audio, pattern) {
			return false, "model did not analyze actual video content"
		}
	}

	if result.TalksInVideos {
		hasEvidence := false
		for _, kw := range speechKeywords {
			if strings.Contains(audio, kw) {
				hasEvidence = true
				break
			}
		}
		if !hasEvidence {
			result.TalksInVideos = false
			result.AudioDescription = "[CORRECTED: talks_in_videos overridden to false] " + result.AudioDescription
		}
	}

	return true, ""
}
