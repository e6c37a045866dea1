package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/anthropic"
	"github.com/21draw/ugc-finder/internal/classify"
	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/gemini"
	"github.com/21draw/ugc-finder/internal/httpx"
	"github.com/21draw/ugc-finder/internal/pipeline"
	"github.com/21draw/ugc-finder/internal/storage"
	"github.com/21draw/ugc-finder/internal/store"
)

func main() {
	limit := flag.Int("limit", 0, "max profiles to analyze (0 = all)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	for _, check := range []error{cfg.RequireGemini(), cfg.RequireDatabase(), cfg.RequireStorage()} {
		if check != nil {
			logrus.Fatalf("Configuration error: %v", check)
		}
	}

	logrus.Infof("=== Video Analysis === model: %s", cfg.GeminiModel)

	ctx := context.Background()

	st, err := store.Connect(cfg.DatabaseDSN, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logrus.Fatalf("Failed to create video model client: %v", err)
	}

	// Downloads can be large; give the CDN client a generous timeout.
	cdn := httpx.New(httpx.Policy{MaxRetries: 3, BaseDelay: 2 * time.Second, Timeout: 5 * time.Minute})
	bucket := storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket, cdn)

	// The classifier is only used for audit logging here; the video model
	// does the scoring.
	claude := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, httpx.New(httpx.DefaultPolicy()))
	classifier := classify.NewClassifier(claude, st, cfg.ClaudeConcurrency, cfg.ClaudeLaunchDelay)

	summary, err := pipeline.NewVideoAnalysis(geminiClient, classifier, st, bucket, cdn).Run(ctx, *limit)
	if err != nil {
		logrus.Fatalf("Video analysis failed: %v", err)
	}
	logrus.Infof("Video analysis complete: %d analyzed, %d skipped, %d errors",
		summary.Processed, summary.Skipped, summary.Errors)
}
