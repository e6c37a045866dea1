package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/anthropic"
	"github.com/21draw/ugc-finder/internal/apify"
	"github.com/21draw/ugc-finder/internal/classify"
	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/httpx"
	"github.com/21draw/ugc-finder/internal/pipeline"
	"github.com/21draw/ugc-finder/internal/store"
)

func main() {
	date := flag.String("date", time.Now().Format("2006-01-02"), "scrape run date to recover (YYYY-MM-DD)")
	limit := flag.Int("limit", 0, "max profiles to score (0 = all)")
	dryRun := flag.Bool("dry-run", false, "stop after filtering, change nothing")
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

	for _, check := range []error{cfg.RequireApify(), cfg.RequireAnthropic(), cfg.RequireDatabase()} {
		if check != nil {
			logrus.Fatalf("Configuration error: %v", check)
		}
	}

	logrus.Infof("=== UGC Finder Recovery === date: %s", *date)

	st, err := store.Connect(cfg.DatabaseDSN, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	apifyClient := apify.NewClient(cfg.ApifyToken, httpx.New(httpx.DefaultPolicy()))
	claude := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, httpx.New(httpx.Policy{
		MaxRetries: cfg.ClaudeMaxRetries,
		BaseDelay:  cfg.ClaudeBaseDelay,
		Timeout:    60 * time.Second,
	}))
	classifier := classify.NewClassifier(claude, st, cfg.ClaudeConcurrency, cfg.ClaudeLaunchDelay)

	recovery := pipeline.NewRecovery(cfg, apifyClient, classifier, st)
	summary, err := recovery.Run(context.Background(), *date, *limit, *dryRun)
	if err != nil {
		logrus.Fatalf("Recovery failed: %v", err)
	}
	logrus.Infof("Recovery complete: %d inserted, %d skipped, %d errors",
		summary.Processed, summary.Skipped, summary.Errors)
}
