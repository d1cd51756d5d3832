package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port     string `env:"PORT" envDefault:"8080"`
	Mode     string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	APIKey   string `env:"API_KEY"`

	// Database configuration
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"donation-api.db"`

	// Redis configuration
	RedisURL          string        `env:"REDIS_URL"`
	DirectoryCacheTTL time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"5m"`

	// Transaction configuration
	IDPrefix        string `env:"ID_PREFIX" envDefault:"ETX"`
	DefaultPageSize int    `env:"DEFAULT_PAGE_SIZE" envDefault:"10"`
	MaxPageSize     int    `env:"MAX_PAGE_SIZE" envDefault:"100"`

	// Idempotency-Key retention for transaction creation
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Webhook notification configuration
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	// Brevo email configuration
	BrevoAPIKey    string `env:"BREVO_API_KEY"`
	BrevoFromEmail string `env:"BREVO_FROM_EMAIL"`
	BrevoFromName  string `env:"BREVO_FROM_NAME" envDefault:"Donation Platform"`
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	cfg, err := Load()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load parses configuration from the environment without touching AppConfig.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DefaultPageSize <= 0 {
		return nil, fmt.Errorf("DEFAULT_PAGE_SIZE must be positive")
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, fmt.Errorf("MAX_PAGE_SIZE must be at least DEFAULT_PAGE_SIZE")
	}
	return cfg, nil
}
