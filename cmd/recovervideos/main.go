package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/apify"
	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/httpx"
	"github.com/21draw/ugc-finder/internal/pipeline"
	"github.com/21draw/ugc-finder/internal/storage"
	"github.com/21draw/ugc-finder/internal/store"
)

func main() {
	limit := flag.Int("limit", 0, "max profiles to recover (0 = all)")
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

	for _, check := range []error{cfg.RequireApify(), cfg.RequireDatabase(), cfg.RequireStorage()} {
		if check != nil {
			logrus.Fatalf("Configuration error: %v", check)
		}
	}

	logrus.Info("=== Video Recovery ===")

	st, err := store.Connect(cfg.DatabaseDSN, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	apifyClient := apify.NewClient(cfg.ApifyToken, httpx.New(httpx.Policy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		Timeout:    5 * time.Minute,
	}))
	storageClient := httpx.New(httpx.Policy{MaxRetries: 3, BaseDelay: 2 * time.Second, Timeout: 5 * time.Minute})
	bucket := storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket, storageClient)

	summary, err := pipeline.NewVideoRecovery(cfg, apifyClient, st, bucket).Run(context.Background(), *limit)
	if err != nil {
		logrus.Fatalf("Video recovery failed: %v", err)
	}
	logrus.Infof("Video recovery complete: %d recovered, %d errors", summary.Processed, summary.Errors)
}
