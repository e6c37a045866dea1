package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the pipelines and the worker.
type Config struct {
	// Worker server configuration
	Port  string
	Debug bool

	// Supabase configuration
	DatabaseDSN        string // Postgres connection string for the hosted tables
	SupabaseURL        string
	SupabaseServiceKey string
	StorageBucket      string

	// Provider credentials
	ApifyToken      string
	AnthropicAPIKey string
	GeminiAPIKey    string

	// Scrape-job actors
	TaggedPostsActor   string
	ProfileScraperActor string

	// Models
	ClaudeModel string
	GeminiModel string

	// Discovery filter band
	MinFollowers int
	MaxFollowers int

	// Classification concurrency and pacing
	ClaudeConcurrency int
	ClaudeMaxRetries  int
	ClaudeBaseDelay   time.Duration
	ClaudeLaunchDelay time.Duration
	ApifyRequestDelay time.Duration

	// Follow-up digest
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	DigestSchedule    string // "daily" or "weekly"

	// Checkpoint/snapshot directory
	DataDir string
}

// Load reads configuration from environment variables. Credential presence is
// validated per pipeline via the Require helpers, since no single binary needs
// every provider.
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabaseDSN:        getEnv("SUPABASE_DB_DSN", ""),
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", "reel-videos"),

		ApifyToken:      getEnv("APIFY_API_TOKEN", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),

		TaggedPostsActor:    getEnv("TAGGED_POSTS_ACTOR", "apify~instagram-scraper"),
		ProfileScraperActor: getEnv("PROFILE_SCRAPER_ACTOR", "dSCLg0C3YEZ83HzYX"),

		ClaudeModel: getEnv("CLAUDE_MODEL", "claude-sonnet-4-5-20250929"),
		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		MinFollowers: getIntEnv("MIN_FOLLOWERS", 2000),
		MaxFollowers: getIntEnv("MAX_FOLLOWERS", 150000),

		ClaudeConcurrency: getIntEnv("CLAUDE_CONCURRENCY", 3),
		ClaudeMaxRetries:  getIntEnv("CLAUDE_MAX_RETRIES", 3),
		ClaudeBaseDelay:   getDurationEnv("CLAUDE_BASE_DELAY", 5*time.Second),
		ClaudeLaunchDelay: getDurationEnv("CLAUDE_LAUNCH_DELAY", 500*time.Millisecond),
		ApifyRequestDelay: getDurationEnv("APIFY_REQUEST_DELAY", 200*time.Millisecond),

		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		DigestSchedule:    getEnv("DIGEST_SCHEDULE", "weekly"),

		DataDir: getEnv("DATA_DIR", "data"),
	}

	if cfg.MinFollowers < 0 || cfg.MaxFollowers < cfg.MinFollowers {
		return nil, fmt.Errorf("invalid follower band [%d, %d]", cfg.MinFollowers, cfg.MaxFollowers)
	}
	if cfg.DigestSchedule != "daily" && cfg.DigestSchedule != "weekly" {
		return nil, fmt.Errorf("DIGEST_SCHEDULE must be 'daily' or 'weekly'")
	}

	return cfg, nil
}

// RequireDatabase fails fast when the Postgres DSN is missing.
func (c *Config) RequireDatabase() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("SUPABASE_DB_DSN is required")
	}
	return nil
}

// RequireStorage fails fast when Supabase storage credentials are missing.
func (c *Config) RequireStorage() error {
	if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
	}
	return nil
}

// RequireApify fails fast when the scrape-job token is missing.
func (c *Config) RequireApify() error {
	if c.ApifyToken == "" {
		return fmt.Errorf("APIFY_API_TOKEN is required")
	}
	return nil
}

// RequireAnthropic fails fast when the text-model key is missing.
func (c *Config) RequireAnthropic() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	return nil
}

// RequireGemini fails fast when the video-model key is missing.
func (c *Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// EmailConfigured reports whether the SMTP sender can be used. Absent email
// configuration is a capability check, not an error.
func (c *Config) EmailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
