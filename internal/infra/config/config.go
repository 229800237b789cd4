package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	DatabaseURL string
	LogLevel    string
	Environment string

	// HTTP trigger surface
	ListenAddr string
	CronSecret string // empty disables the auth check (local development only)

	// In-process cron trigger; disable when an external trigger drives the
	// HTTP endpoints instead.
	RunScheduler         bool
	CronSpecTokenReset   string
	CronSpecPublish      string
	CronSpecInteractions string

	// Generation collaborators
	ImageAPIURL string
	ImageAPIKey string
	TextAPIURL  string
	TextAPIKey  string

	// Batch bounds and sampling
	PublishBatchSize     int
	InteractionBatchSize int
	InteractionMultiplier float64

	// Optional operator notification channel
	TelegramToken   string
	AdminTelegramID int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	cfg.ListenAddr = getEnv("LISTEN_ADDR", ":8080")
	cfg.CronSecret = os.Getenv("CRON_SECRET")

	cfg.RunScheduler, err = strconv.ParseBool(getEnv("RUN_SCHEDULER", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_SCHEDULER: %w", err)
	}
	cfg.CronSpecTokenReset = getEnv("CRON_SPEC_TOKEN_RESET", "0 0 * * *")     // daily at midnight
	cfg.CronSpecPublish = getEnv("CRON_SPEC_PUBLISH", "10 * * * *")           // hourly
	cfg.CronSpecInteractions = getEnv("CRON_SPEC_INTERACTIONS", "*/5 * * * *") // every 5 minutes

	cfg.ImageAPIURL = getEnv("IMAGE_API_URL", "https://api.imagegen.example.com/v1/images")
	cfg.ImageAPIKey = os.Getenv("IMAGE_API_KEY")
	cfg.TextAPIURL = getEnv("TEXT_API_URL", "https://api.textgen.example.com/v1/messages")
	cfg.TextAPIKey = os.Getenv("TEXT_API_KEY")

	cfg.PublishBatchSize, err = parseIntEnv("PUBLISH_BATCH_SIZE", 3)
	if err != nil {
		return nil, err
	}
	cfg.InteractionBatchSize, err = parseIntEnv("INTERACTION_BATCH_SIZE", 5)
	if err != nil {
		return nil, err
	}

	multiplierStr := getEnv("INTERACTION_MULTIPLIER", "0.1")
	cfg.InteractionMultiplier, err = strconv.ParseFloat(multiplierStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid INTERACTION_MULTIPLIER: %w", err)
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
