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
	limit := flag.Int("limit", 0, "max profiles to classify (0 = all)")
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

	logrus.Infof("=== Outreach Classification === model: %s, prompt version: %d",
		cfg.ClaudeModel, classify.OutreachPromptVersion)

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

	summary, err := pipeline.NewOutreachGen(classifier, st).Run(context.Background(), *limit, *dryRun)
	if err != nil {
		logrus.Fatalf("Outreach classification failed: %v", err)
	}
	logrus.Infof("Outreach classification complete: %d generated, %d skipped, %d errors",
		summary.Processed, summary.Skipped, summary.Errors)
}
