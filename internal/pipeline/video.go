package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/21draw/ugc-finder/internal/classify"
	gem "github.com/21draw/ugc-finder/internal/gemini"
	"github.com/21draw/ugc-finder/internal/httpx"
	"github.com/21draw/ugc-finder/internal/models"
	"github.com/21draw/ugc-finder/internal/storage"
	"github.com/21draw/ugc-finder/internal/store"
)

const (
	// videoMaxRetries bounds the JSON-reminder retry loop per profile.
	videoMaxRetries = 2
	// profileDelay paces sequential profiles; the video model's free tier
	// does not tolerate back-to-back profiles.
	profileDelay = 3 * time.Second
)

// VideoAnalysis runs the video model over every approved profile with stored
// reels, strictly one profile at a time.
type VideoAnalysis struct {
	gemini     *gem.Client
	classifier *classify.Classifier
	store      store.StoreInterface
	storage    storage.StorageInterface
	http       *httpx.Client
}

// NewVideoAnalysis creates the video analysis pipeline.
func NewVideoAnalysis(gc *gem.Client, classifier *classify.Classifier, st store.StoreInterface, sg storage.StorageInterface, http *httpx.Client) *VideoAnalysis {
	return &VideoAnalysis{gemini: gc, classifier: classifier, store: st, storage: sg, http: http}
}

// Run analyzes pending profiles. Each profile is terminal after one pass:
// VIDEO_ANALYZED on success, ANALYSIS_FAILED on hallucination or error, or
// skipped when no videos exist.
func (v *VideoAnalysis) Run(ctx context.Context, limit int) (Summary, error) {
	var summary Summary

	profiles, err := v.store.ListProfilesForVideoAnalysis(ctx, limit)
	if err != nil {
		return summary, err
	}
	logrus.Infof("Found %d profiles needing video analysis", len(profiles))
	if len(profiles) == 0 {
		logrus.Info("Nothing to analyze")
		return summary, nil
	}

	for i := range profiles {
		p := &profiles[i]
		logrus.Infof("[%d/%d] %s", i+1, len(profiles), p.Username)

		skippedReason, err := v.analyzeProfile(ctx, p)
		switch {
		case err != nil:
			logrus.Warnf("  ERROR: %v", err)
			summary.Errors++
			v.markFailed(ctx, p.Username, err)
		case skippedReason != "":
			logrus.Infof("  SKIPPED: %s", skippedReason)
			summary.Skipped++
		default:
			summary.Processed++
		}

		if i < len(profiles)-1 {
			select {
			case <-time.After(profileDelay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}

	logrus.Infof("Done. Analyzed: %d, Skipped: %d, Errors: %d", summary.Processed, summary.Skipped, summary.Errors)
	return summary, nil
}

// analyzeProfile uploads the profile's stored reels, runs the model with the
// JSON retry loop, validates against hallucination, and persists the verdict.
// A non-empty skip reason means nothing was analyzed and nothing changed.
func (v *VideoAnalysis) analyzeProfile(ctx context.Context, p *models.Profile) (string, error) {
	paths := p.StoragePaths()
	if len(paths) == 0 {
		return "no storage paths", nil
	}

	var files []*genai.File
	defer func() {
		for _, f := range files {
			v.gemini.DeleteFile(ctx, f)
		}
	}()

	for _, path := range paths {
		data, err := v.downloadReel(ctx, path)
		if err != nil {
			logrus.Warnf("  %s: %v", path, err)
			continue
		}
		logrus.Infof("  Uploading %s (%.1fMB)", path, float64(len(data))/1024/1024)
		file, err := v.gemini.UploadVideo(ctx, data)
		if err != nil {
			logrus.Warnf("  %s: %v", path, err)
			continue
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return "all video uploads failed", nil
	}

	prompt := classify.BuildVideoPrompt(p, len(files))
	result, raw, tokens, err := v.generateWithRetries(ctx, prompt, files)
	if err != nil {
		return "", err
	}

	valid, reason := classify.ValidateVideo(result)
	status := models.StatusVideoAnalyzed
	if !valid {
		status = models.StatusAnalysisFailed
		logrus.Warnf("  WARNING: %s", reason)
	}

	err = v.store.UpdateProfile(ctx, p.Username, map[string]interface{}{
		"status":               status,
		"talks_in_videos":      result.TalksInVideos,
		"speaks_english":       result.SpeaksEnglish,
		"overall_ugc_score":    result.OverallUGCScore,
		"content_style":        result.VideoSummary,
		"voice_potential":      result.VoicePotential,
		"teaching_potential":   result.TeachingPotential,
		"production_quality":   result.ContentQuality,
		"brand_fit":            result.BrandFit,
		"ugc_reasoning":        result.UGCReasoning,
		"video_recommendation": result.Recommendation,
		"next_steps":           result.NextSteps,
		"audio_description":    result.AudioDescription,
		"speech_quote":         result.SpeechQuote,
		"videos_with_speech":   result.VideosWithSpeech,
	})
	if err != nil {
		return "", err
	}

	v.classifier.LogVideoCall(ctx, p.Username, v.gemini.Model(), prompt, raw, result, tokens, len(files))
	logrus.Infof("  %s | Score: %d/10 | Speaks: %t | %s", status, result.OverallUGCScore, result.SpeaksEnglish, result.Recommendation)
	return "", nil
}

// generateWithRetries retries malformed replies with an appended JSON
// reminder, backing off 5s then 10s.
func (v *VideoAnalysis) generateWithRetries(ctx context.Context, prompt string, files []*genai.File) (*classify.VideoResult, string, int, error) {
	var lastErr error

	for attempt := 0; attempt <= videoMaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * 5 * time.Second
			logrus.Infof("  Retry %d/%d after %v", attempt, videoMaxRetries, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, "", 0, ctx.Err()
			}
		}

		text := prompt
		if attempt > 0 {
			text += classify.JSONReminder
		}

		reply, err := v.gemini.Generate(ctx, text, files)
		if err != nil {
			lastErr = err
			continue
		}

		result, err := classify.ParseVideo(reply.Text)
		if err != nil {
			logrus.Infof("  Malformed reply, will retry: %v", err)
			lastErr = err
			continue
		}
		return result, reply.Text, reply.TokensUsed, nil
	}

	return nil, "", 0, fmt.Errorf("all retries exhausted: %w", lastErr)
}

func (v *VideoAnalysis) downloadReel(ctx context.Context, path string) ([]byte, error) {
	resp, err := v.http.Get(ctx, v.storage.PublicURL(path))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("downloading %s: status %d", path, resp.StatusCode())
	}
	return resp.Body(), nil
}

func (v *VideoAnalysis) markFailed(ctx context.Context, username string, cause error) {
	if err := v.store.UpdateProfile(ctx, username, map[string]interface{}{
		"status": models.StatusAnalysisFailed,
	}); err != nil {
		logrus.Warnf("  could not mark %s failed: %v", username, err)
	}
	v.classifier.LogVideoCall(ctx, username, "FAILED", "", cause.Error(), nil, 0, 0)
}
