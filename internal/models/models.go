package models

import (
	"encoding/json"
	"time"
)

// Recommendation is the AI verdict from discovery scoring.
type Recommendation string

const (
	RecommendCollaborate Recommendation = "COLLABORATE"
	RecommendReview      Recommendation = "REVIEW"
	RecommendPass        Recommendation = "PASS"
	RecommendReject      Recommendation = "REJECT"
)

// ProfileType determines which outreach message variants are generated.
type ProfileType string

const (
	TypeUGCCreator    ProfileType = "UGC_CREATOR"
	TypeCourseTeacher ProfileType = "COURSE_TEACHER"
	TypeBoth          ProfileType = "BOTH"
)

// ProfileStatus is the lifecycle stage of a discovered profile.
type ProfileStatus string

const (
	StatusPendingReview  ProfileStatus = "PENDING_REVIEW"
	StatusAnalyzed       ProfileStatus = "ANALYZED"
	StatusHumanReviewed  ProfileStatus = "HUMAN_REVIEWED"
	StatusVideoAnalyzed  ProfileStatus = "VIDEO_ANALYZED"
	StatusAnalysisFailed ProfileStatus = "ANALYSIS_FAILED"
)

// OutreachStatus is the outreach record state machine.
type OutreachStatus string

const (
	OutreachQueued      OutreachStatus = "QUEUED"
	OutreachContacted   OutreachStatus = "CONTACTED"
	OutreachFollowUp1   OutreachStatus = "FOLLOW_UP_1"
	OutreachFollowUp2   OutreachStatus = "FOLLOW_UP_2"
	OutreachReplied     OutreachStatus = "REPLIED"
	OutreachNegotiating OutreachStatus = "NEGOTIATING"
	OutreachConfirmed   OutreachStatus = "CONFIRMED"
	OutreachDeclined    OutreachStatus = "DECLINED"
	OutreachNoResponse  OutreachStatus = "NO_RESPONSE"
)

// PriorityTier is the outreach priority bucket, TIER_1 highest.
type PriorityTier string

const (
	Tier1 PriorityTier = "TIER_1"
	Tier2 PriorityTier = "TIER_2"
	Tier3 PriorityTier = "TIER_3"
)

// ContactMethod says how a creator should be reached.
type ContactMethod string

const (
	ContactEmail ContactMethod = "EMAIL"
	ContactDM    ContactMethod = "DM"
	ContactBoth  ContactMethod = "BOTH"
)

// Profile is one discovered creator. Columns mirror the hosted profiles table:
// the three selected reels are flattened into numbered columns, and every field
// produced by a later classification stage stays nullable until that stage has
// run.
type Profile struct {
	Username         string  `gorm:"primaryKey;column:username" json:"username"`
	Followers        int     `gorm:"column:followers" json:"followers"`
	Bio              string  `gorm:"column:bio" json:"bio"`
	Source           string  `gorm:"column:source" json:"source"`
	SourceType       string  `gorm:"column:source_type" json:"source_type"`
	Verified         bool    `gorm:"column:verified" json:"verified"`
	BusinessCategory string  `gorm:"column:business_category" json:"business_category"`
	EngagementRate   float64 `gorm:"column:engagement_rate" json:"engagement_rate"`
	AvgLikes         int     `gorm:"column:avg_likes" json:"avg_likes"`
	AvgComments      int     `gorm:"column:avg_comments" json:"avg_comments"`
	AvgDuration      int     `gorm:"column:avg_duration" json:"avg_duration"`
	TotalReelsFound  int     `gorm:"column:total_reels_found" json:"total_reels_found"`

	Reel1URL         string  `gorm:"column:reel_1_url" json:"reel_1_url"`
	Reel1PostURL     string  `gorm:"column:reel_1_post_url" json:"reel_1_post_url"`
	Reel1Likes       int     `gorm:"column:reel_1_likes" json:"reel_1_likes"`
	Reel1Comments    int     `gorm:"column:reel_1_comments" json:"reel_1_comments"`
	Reel1Duration    int     `gorm:"column:reel_1_duration" json:"reel_1_duration"`
	Reel1Caption     string  `gorm:"column:reel_1_caption" json:"reel_1_caption"`
	Reel1StoragePath *string `gorm:"column:reel_1_storage_path" json:"reel_1_storage_path"`
	Reel2URL         string  `gorm:"column:reel_2_url" json:"reel_2_url"`
	Reel2PostURL     string  `gorm:"column:reel_2_post_url" json:"reel_2_post_url"`
	Reel2Likes       int     `gorm:"column:reel_2_likes" json:"reel_2_likes"`
	Reel2Comments    int     `gorm:"column:reel_2_comments" json:"reel_2_comments"`
	Reel2Duration    int     `gorm:"column:reel_2_duration" json:"reel_2_duration"`
	Reel2Caption     string  `gorm:"column:reel_2_caption" json:"reel_2_caption"`
	Reel2StoragePath *string `gorm:"column:reel_2_storage_path" json:"reel_2_storage_path"`
	Reel3URL         string  `gorm:"column:reel_3_url" json:"reel_3_url"`
	Reel3PostURL     string  `gorm:"column:reel_3_post_url" json:"reel_3_post_url"`
	Reel3Likes       int     `gorm:"column:reel_3_likes" json:"reel_3_likes"`
	Reel3Comments    int     `gorm:"column:reel_3_comments" json:"reel_3_comments"`
	Reel3Duration    int     `gorm:"column:reel_3_duration" json:"reel_3_duration"`
	Reel3Caption     string  `gorm:"column:reel_3_caption" json:"reel_3_caption"`
	Reel3StoragePath *string `gorm:"column:reel_3_storage_path" json:"reel_3_storage_path"`

	NicheRelevance     int            `gorm:"column:niche_relevance" json:"niche_relevance"`
	ProfileScore       int            `gorm:"column:profile_score" json:"profile_score"`
	CourseTeacherScore *int           `gorm:"column:course_teacher_score" json:"course_teacher_score"`
	Recommendation     Recommendation `gorm:"column:recommendation" json:"recommendation"`
	Reasoning          string         `gorm:"column:reasoning" json:"reasoning"`
	SuggestedType      *ProfileType   `gorm:"column:suggested_type" json:"suggested_type"`
	ProfileType        *ProfileType   `gorm:"column:profile_type" json:"profile_type"`
	Status             ProfileStatus  `gorm:"column:status" json:"status"`

	// Video analysis fields, populated only after the video stage.
	TalksInVideos       *bool   `gorm:"column:talks_in_videos" json:"talks_in_videos"`
	SpeaksEnglish       *bool   `gorm:"column:speaks_english" json:"speaks_english"`
	OverallUGCScore     *int    `gorm:"column:overall_ugc_score" json:"overall_ugc_score"`
	VoicePotential      *int    `gorm:"column:voice_potential" json:"voice_potential"`
	TeachingPotential   *int    `gorm:"column:teaching_potential" json:"teaching_potential"`
	ProductionQuality   *int    `gorm:"column:production_quality" json:"production_quality"`
	BrandFit            *int    `gorm:"column:brand_fit" json:"brand_fit"`
	ContentStyle        *string `gorm:"column:content_style" json:"content_style"`
	UGCReasoning        *string `gorm:"column:ugc_reasoning" json:"ugc_reasoning"`
	VideoRecommendation *string `gorm:"column:video_recommendation" json:"video_recommendation"`
	NextSteps           *string `gorm:"column:next_steps" json:"next_steps"`
	AudioDescription    *string `gorm:"column:audio_description" json:"audio_description"`
	SpeechQuote         *string `gorm:"column:speech_quote" json:"speech_quote"`
	VideosWithSpeech    *int    `gorm:"column:videos_with_speech" json:"videos_with_speech"`

	VideosDownloaded bool      `gorm:"column:videos_downloaded" json:"videos_downloaded"`
	AnalyzedAt       time.Time `gorm:"column:analyzed_at" json:"analyzed_at"`
}

func (Profile) TableName() string { return "profiles" }

// EffectiveType returns the human-confirmed type, falling back to the AI
// suggestion and finally to UGC_CREATOR.
func (p *Profile) EffectiveType() ProfileType {
	if p.ProfileType != nil && *p.ProfileType != "" {
		return *p.ProfileType
	}
	if p.SuggestedType != nil && *p.SuggestedType != "" {
		return *p.SuggestedType
	}
	return TypeUGCCreator
}

// StoragePaths returns the non-empty reel storage paths in reel order.
func (p *Profile) StoragePaths() []string {
	var paths []string
	for _, sp := range []*string{p.Reel1StoragePath, p.Reel2StoragePath, p.Reel3StoragePath} {
		if sp != nil && *sp != "" {
			paths = append(paths, *sp)
		}
	}
	return paths
}

const (
	DecisionApproved = "APPROVED"
	DecisionDenied   = "DENIED"
)

// HumanReview is the reviewer's decision on one profile. At most one active row
// per username; decision changes update the row in place.
type HumanReview struct {
	ProfileUsername string       `gorm:"primaryKey;column:profile_username" json:"profile_username"`
	Decision        string       `gorm:"column:decision" json:"decision"`
	HumanReasoning  string       `gorm:"column:human_reasoning" json:"human_reasoning"`
	ProfileType     *ProfileType `gorm:"column:profile_type" json:"profile_type"`
	ReviewedBy      string       `gorm:"column:reviewed_by" json:"reviewed_by"`
	ReviewedAt      time.Time    `gorm:"column:reviewed_at;autoCreateTime" json:"reviewed_at"`
}

func (HumanReview) TableName() string { return "human_reviews" }

// OutreachRecord is one approved profile's outreach lifecycle. It is destroyed
// and regenerated wholesale on reclassification, never merged.
type OutreachRecord struct {
	ProfileUsername     string         `gorm:"primaryKey;column:profile_username" json:"profile_username"`
	PriorityTier        PriorityTier   `gorm:"column:priority_tier" json:"priority_tier"`
	ContactMethod       ContactMethod  `gorm:"column:contact_method" json:"contact_method"`
	ContactEmail        *string        `gorm:"column:contact_email" json:"contact_email"`
	Status              OutreachStatus `gorm:"column:status" json:"status"`
	ProfileType         ProfileType    `gorm:"column:profile_type" json:"profile_type"`
	MessageSent         string         `gorm:"column:message_sent" json:"message_sent"`
	EmailSubject        *string        `gorm:"column:email_subject" json:"email_subject"`
	EmailBody           *string        `gorm:"column:email_body" json:"email_body"`
	TeacherDMMessage    *string        `gorm:"column:teacher_dm_message" json:"teacher_dm_message"`
	TeacherEmailSubject *string        `gorm:"column:teacher_email_subject" json:"teacher_email_subject"`
	TeacherEmailBody    *string        `gorm:"column:teacher_email_body" json:"teacher_email_body"`
	LanguageNote        *string        `gorm:"column:language_note" json:"language_note"`
	PersonalizationHook *string        `gorm:"column:personalization_hook" json:"personalization_hook"`
	ContactedAt         *time.Time     `gorm:"column:contacted_at" json:"contacted_at"`
	FollowUp1At         *time.Time     `gorm:"column:follow_up_1_at" json:"follow_up_1_at"`
	FollowUp2At         *time.Time     `gorm:"column:follow_up_2_at" json:"follow_up_2_at"`
	RepliedAt           *time.Time     `gorm:"column:replied_at" json:"replied_at"`
	ReplySummary        *string        `gorm:"column:reply_summary" json:"reply_summary"`
	ReplySentiment      *string        `gorm:"column:reply_sentiment" json:"reply_sentiment"`
	UserNotes           *string        `gorm:"column:user_notes" json:"user_notes"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (OutreachRecord) TableName() string { return "outreach" }

// AiLogEntry is the append-only audit record of one model call. The pipelines
// only ever insert these.
type AiLogEntry struct {
	ID              int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	ProfileUsername string          `gorm:"column:profile_username" json:"profile_username"`
	WorkflowName    string          `gorm:"column:workflow_name" json:"workflow_name"`
	ModelUsed       string          `gorm:"column:model_used" json:"model_used"`
	PromptSent      string          `gorm:"column:prompt_sent" json:"prompt_sent"`
	InputData       json.RawMessage `gorm:"column:input_data;type:jsonb" json:"input_data"`
	OutputRaw       string          `gorm:"column:output_raw" json:"output_raw"`
	OutputParsed    json.RawMessage `gorm:"column:output_parsed;type:jsonb" json:"output_parsed"`
	TokensUsed      int             `gorm:"column:tokens_used" json:"tokens_used"`
	PromptVersion   int             `gorm:"column:prompt_version" json:"prompt_version"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AiLogEntry) TableName() string { return "ai_logs" }

// RawPost is one post as returned by the scrape provider. The payload is
// noisy; only the fields the filter needs are declared.
type RawPost struct {
	Type          string  `json:"type"`
	ProductType   string  `json:"productType"`
	ShortCode     string  `json:"shortCode"`
	URL           string  `json:"url"`
	Caption       string  `json:"caption"`
	LikesCount    int     `json:"likesCount"`
	CommentsCount int     `json:"commentsCount"`
	VideoDuration float64 `json:"videoDuration"`
	VideoURL      string  `json:"videoUrl"`
	OwnerUsername string  `json:"ownerUsername"`
}

// PostURL returns the canonical post URL, deriving one from the shortcode when
// the scraper omitted it.
func (p *RawPost) PostURL() string {
	if p.URL != "" {
		return p.URL
	}
	if p.ShortCode != "" {
		return "https://www.instagram.com/reel/" + p.ShortCode + "/"
	}
	return ""
}

// RawProfile is one profile as returned by the scrape provider.
type RawProfile struct {
	Username             string    `json:"username"`
	FollowersCount       int       `json:"followersCount"`
	Biography            string    `json:"biography"`
	Verified             bool      `json:"verified"`
	BusinessCategoryName string    `json:"businessCategoryName"`
	LatestPosts          []RawPost `json:"latestPosts"`
}

// ProfileSource attributes a discovered username to the competitor account it
// was found through.
type ProfileSource struct {
	Source     string `json:"source"`
	SourceType string `json:"sourceType"`
}
