package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/anthropic"
	"github.com/21draw/ugc-finder/internal/classify"
	"github.com/21draw/ugc-finder/internal/config"
	"github.com/21draw/ugc-finder/internal/httpx"
	"github.com/21draw/ugc-finder/internal/notifications"
	"github.com/21draw/ugc-finder/internal/outreach"
	"github.com/21draw/ugc-finder/internal/scheduler"
	"github.com/21draw/ugc-finder/internal/server"
	"github.com/21draw/ugc-finder/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
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
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting UGC Finder worker")

	for _, check := range []error{cfg.RequireAnthropic(), cfg.RequireDatabase()} {
		if check != nil {
			logrus.Fatalf("Configuration error: %v", check)
		}
	}

	st, err := store.Connect(cfg.DatabaseDSN, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	// The classifier backs the reclassify endpoint.
	claude := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, httpx.New(httpx.Policy{
		MaxRetries: cfg.ClaudeMaxRetries,
		BaseDelay:  cfg.ClaudeBaseDelay,
		Timeout:    60 * time.Second,
	}))
	classifier := classify.NewClassifier(claude, st, cfg.ClaudeConcurrency, cfg.ClaudeLaunchDelay)

	notifier := notifications.NewService(cfg)
	if !notifier.IsConfigured() {
		logrus.Warn("SMTP not configured, outreach emails and digests are disabled")
	}

	outreachService := outreach.NewService(st, classifier)

	schedulerService := scheduler.NewService(cfg, outreachService, notifier)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	apiServer := server.New(st, outreachService, notifier, schedulerService.RunDigest)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
