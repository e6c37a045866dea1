// Package classify owns every text-model workflow: discovery scoring, the
// teacher-dimension rescore, and outreach message generation. Each call is
// recorded in the append-only audit log with the prompt version that produced
// it.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/anthropic"
	"github.com/21draw/ugc-finder/internal/models"
	"github.com/21draw/ugc-finder/internal/store"
)

// Workflow names as they appear in the audit log.
const (
	WorkflowDiscovery = "Discovery-Classification"
	WorkflowRescore   = "Rescore-Profile"
	WorkflowOutreach  = "Outreach-Classification"
	WorkflowVideo     = "Gemini-Video-Analysis"
)

// maxLoggedPrompt caps prompt_sent in audit rows.
const maxLoggedPrompt = 2000

// Classifier runs text-model workflows against the store.
type Classifier struct {
	claude      *anthropic.Client
	store       store.StoreInterface
	concurrency int
	launchDelay time.Duration
}

// NewClassifier creates the classification service. Concurrency bounds the
// discovery batch; rescore and outreach are sequential by design.
func NewClassifier(claude *anthropic.Client, st store.StoreInterface, concurrency int, launchDelay time.Duration) *Classifier {
	return &Classifier{
		claude:      claude,
		store:       st,
		concurrency: concurrency,
		launchDelay: launchDelay,
	}
}

// ScoreProfile runs discovery scoring on one enriched profile, mutating it
// with the model's verdict. A malformed reply is an error; the caller skips
// the profile and flags it instead of inventing scores.
func (c *Classifier) ScoreProfile(ctx context.Context, p *models.Profile) (*ScoreResult, error) {
	prompt := BuildDiscoveryPrompt(p)
	reply, err := c.claude.Complete(ctx, prompt, 1024)
	if err != nil {
		return nil, fmt.Errorf("scoring %s: %w", p.Username, err)
	}

	result, err := ParseScore(reply.Text)
	if err != nil {
		return nil, fmt.Errorf("scoring %s: %w", p.Username, err)
	}

	p.NicheRelevance = result.NicheRelevance
	p.ProfileScore = result.ProfileScore
	p.Recommendation = models.Recommendation(result.Recommendation)
	p.Reasoning = result.Reasoning
	p.Status = models.StatusPendingReview
	p.AnalyzedAt = time.Now().UTC()

	c.logCall(ctx, p.Username, WorkflowDiscovery, prompt, reply.Text, result, reply.TotalTokens(), DiscoveryPromptVersion,
		map[string]interface{}{"username": p.Username, "followers": p.Followers})
	return result, nil
}

// ScoreBatch scores profiles concurrently within the configured bound. onDone
// is called once per profile from the worker goroutine; callers serialize
// their own state.
func (c *Classifier) ScoreBatch(ctx context.Context, profiles []*models.Profile, onDone func(p *models.Profile, err error)) error {
	return forEach(ctx, c.concurrency, c.launchDelay, len(profiles), func(i int) {
		_, err := c.ScoreProfile(ctx, profiles[i])
		onDone(profiles[i], err)
	})
}

// Rescore re-evaluates an already-scored profile with the teacher dimension
// and persists only the new fields; original scores are preserved.
func (c *Classifier) Rescore(ctx context.Context, p *models.Profile) (*ScoreResult, error) {
	prompt := BuildRescorePrompt(p)
	reply, err := c.claude.Complete(ctx, prompt, 1024)
	if err != nil {
		return nil, fmt.Errorf("rescoring %s: %w", p.Username, err)
	}

	result, err := ParseScore(reply.Text)
	if err != nil {
		return nil, fmt.Errorf("rescoring %s: %w", p.Username, err)
	}

	suggested := result.SuggestedType
	if suggested == "" {
		suggested = string(models.TypeUGCCreator)
	}
	err = c.store.UpdateProfile(ctx, p.Username, map[string]interface{}{
		"course_teacher_score": result.CourseTeacherScore,
		"suggested_type":       suggested,
	})
	if err != nil {
		return nil, fmt.Errorf("saving rescore for %s: %w", p.Username, err)
	}

	c.logCall(ctx, p.Username, WorkflowRescore,
		fmt.Sprintf("Rescore: %s (%d followers)", p.Username, p.Followers),
		reply.Text, result, reply.TotalTokens(), RescorePromptVersion,
		map[string]interface{}{"username": p.Username, "followers": p.Followers, "original_score": p.ProfileScore})
	return result, nil
}

// GenerateOutreach produces the outreach record for an approved profile. The
// record is returned in QUEUED state for the caller to insert.
func (c *Classifier) GenerateOutreach(ctx context.Context, p *models.Profile) (*models.OutreachRecord, error) {
	prompt := BuildOutreachPrompt(p)
	reply, err := c.claude.Complete(ctx, prompt, 1500)
	if err != nil {
		return nil, fmt.Errorf("generating outreach for %s: %w", p.Username, err)
	}

	result, err := ParseOutreach(reply.Text)
	if err != nil {
		return nil, fmt.Errorf("generating outreach for %s: %w", p.Username, err)
	}

	record := &models.OutreachRecord{
		ProfileUsername:     p.Username,
		PriorityTier:        models.PriorityTier(result.PriorityTier),
		ContactMethod:       models.ContactMethod(result.ContactMethod),
		ContactEmail:        result.ContactEmail,
		Status:              models.OutreachQueued,
		ProfileType:         p.EffectiveType(),
		MessageSent:         result.DMMessage,
		EmailSubject:        result.EmailSubject,
		EmailBody:           result.EmailBody,
		TeacherDMMessage:    result.TeacherDMMessage,
		TeacherEmailSubject: result.TeacherEmailSubject,
		TeacherEmailBody:    result.TeacherEmailBody,
		LanguageNote:        result.LanguageNote,
		PersonalizationHook: result.PersonalizationHook,
	}

	c.logCall(ctx, p.Username, WorkflowOutreach, prompt, reply.Text, result, reply.TotalTokens(), OutreachPromptVersion,
		map[string]interface{}{"username": p.Username, "followers": p.Followers, "profile_type": p.EffectiveType()})
	return record, nil
}

// LogVideoCall records a video-analysis call in the audit log. The video
// pipeline owns the model call itself; only the logging lives here so every
// workflow logs through one path.
func (c *Classifier) LogVideoCall(ctx context.Context, username, model, prompt, raw string, parsed interface{}, tokens, videos int) {
	entry := &models.AiLogEntry{
		ProfileUsername: username,
		WorkflowName:    WorkflowVideo,
		ModelUsed:       model,
		PromptSent:      truncate(prompt, maxLoggedPrompt),
		OutputRaw:       raw,
		TokensUsed:      tokens,
		PromptVersion:   VideoPromptVersion,
	}
	entry.InputData, _ = json.Marshal(map[string]interface{}{"username": username, "videos": videos})
	if parsed != nil {
		entry.OutputParsed, _ = json.Marshal(parsed)
	}
	if err := c.store.InsertAiLog(ctx, entry); err != nil {
		logrus.Warnf("could not write audit log for %s: %v", username, err)
	}
}

func (c *Classifier) logCall(ctx context.Context, username, workflow, prompt, raw string, parsed interface{}, tokens, version int, input map[string]interface{}) {
	entry := &models.AiLogEntry{
		ProfileUsername: username,
		WorkflowName:    workflow,
		ModelUsed:       c.claude.Model(),
		PromptSent:      truncate(prompt, maxLoggedPrompt),
		OutputRaw:       raw,
		TokensUsed:      tokens,
		PromptVersion:   version,
	}
	entry.InputData, _ = json.Marshal(input)
	if parsed != nil {
		entry.OutputParsed, _ = json.Marshal(parsed)
	}
	if err := c.store.InsertAiLog(ctx, entry); err != nil {
		logrus.Warnf("could not write audit log for %s: %v", username, err)
	}
}
