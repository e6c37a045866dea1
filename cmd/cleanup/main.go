package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/httpx"
	"github.com/21draw/ugc-finder/internal/pipeline"
	"github.com/21draw/ugc-finder/internal/storage"
	"github.com/21draw/ugc-finder/internal/store"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be deleted, change nothing")
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

	for _, check := range []error{cfg.RequireDatabase(), cfg.RequireStorage()} {
		if check != nil {
			logrus.Fatalf("Configuration error: %v", check)
		}
	}

	if *dryRun {
		logrus.Info("=== DRY RUN, no changes will be made ===")
	}
	logrus.Info("=== Storage Cleanup ===")

	st, err := store.Connect(cfg.DatabaseDSN, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	client := httpx.New(httpx.Policy{MaxRetries: 3, BaseDelay: 2 * time.Second, Timeout: 60 * time.Second})
	bucket := storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket, client)

	summary, err := pipeline.NewCleanup(st, bucket).Run(context.Background(), *dryRun)
	if err != nil {
		logrus.Fatalf("Cleanup failed: %v", err)
	}
	logrus.Infof("Cleanup complete: %d cleaned, %d skipped, %d errors",
		summary.Processed, summary.Skipped, summary.Errors)
}
