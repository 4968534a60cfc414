package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings, read from environment variables.
// In development a .env file is loaded first.
type Config struct {
	Port        int
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProcessorWebhookSecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	ReminderHour int
}

// Load reads configuration from the environment. DATABASE_URL and
// PROCESSOR_WEBHOOK_SECRET are required, everything else has a
// development default.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// Best effort; absence of a .env file is fine.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Port:                   envInt("PORT", 8080),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		RedisAddr:              envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envInt("REDIS_DB", 0),
		ProcessorWebhookSecret: os.Getenv("PROCESSOR_WEBHOOK_SECRET"),
		SMTPHost:               envString("SMTP_HOST", "localhost"),
		SMTPPort:               envInt("SMTP_PORT", 587),
		SMTPUsername:           os.Getenv("SMTP_USERNAME"),
		SMTPPassword:           os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:               envString("SMTP_FROM", "billing@trainfit.app"),
		MinioEndpoint:          envString("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:         envString("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:         envString("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:            os.Getenv("MINIO_USE_SSL") == "true",
		MinioBucket:            envString("MINIO_BUCKET", "trainfit-receipts"),
		ReminderHour:           envInt("REMINDER_HOUR", 9),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.ProcessorWebhookSecret == "" {
		return nil, fmt.Errorf("PROCESSOR_WEBHOOK_SECRET environment variable is required")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
