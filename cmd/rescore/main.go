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
	"github.com/21draw/ugc-finder/internal/httpx"
	"github.com/21draw/ugc-finder/internal/pipeline"
	"github.com/21draw/ugc-finder/internal/store"
)

func main() {
	limit := flag.Int("limit", 0, "max profiles to re-score (0 = all)")
	dryRun := flag.Bool("dry-run", false, "report without calling the model")
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

	for _, check := range []error{cfg.RequireAnthropic(), cfg.RequireDatabase()} {
		if check != nil {
			logrus.Fatalf("Configuration error: %v", check)
		}
	}

	if *dryRun {
		logrus.Info("=== DRY RUN, no changes will be made ===")
	}
	logrus.Infof("Model: %s, prompt version: %d", cfg.ClaudeModel, classify.RescorePromptVersion)

	st, err := store.Connect(cfg.DatabaseDSN, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	claude := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, httpx.New(httpx.Policy{
		MaxRetries: cfg.ClaudeMaxRetries,
		BaseDelay:  cfg.ClaudeBaseDelay,
		Timeout:    60 * time.Second,
	}))
	classifier := classify.NewClassifier(claude, st, cfg.ClaudeConcurrency, cfg.ClaudeLaunchDelay)

	summary, err := pipeline.NewRescore(classifier, st).Run(context.Background(), *limit, *dryRun)
	if err != nil {
		logrus.Fatalf("Rescore failed: %v", err)
	}
	logrus.Infof("Rescore complete: %d re-scored, %d errors", summary.Processed, summary.Errors)
}
