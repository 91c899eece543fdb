package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverBolt     = "bolt"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Environment string
	LogLevel    string

	StorageDriver string
	DatabaseURL   string
	BoltPath      string

	HTTPAddr              string
	AdminUserID           string // member ID the admin acts as
	AdminAPIToken         string // bearer token for the HTTP API; empty disables the API routes
	PaymentCallbackSecret string

	TelegramToken   string // empty disables the Telegram surface
	AdminTelegramID int64

	CronSpecExpiryCheck string
	TimeZone            string
	Location            *time.Location
	Currency            string
}

// TelegramEnabled reports whether the bot should be started.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))

	cfg.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres))
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case StorageDriverBolt:
		cfg.BoltPath = getEnv("BOLT_PATH", "data/chama.db")
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want %q or %q", cfg.StorageDriver, StorageDriverPostgres, StorageDriverBolt)
	}

	cfg.AdminUserID = strings.TrimSpace(os.Getenv("ADMIN_USER_ID"))
	if cfg.AdminUserID == "" {
		return nil, fmt.Errorf("ADMIN_USER_ID is not set")
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.AdminAPIToken = os.Getenv("ADMIN_API_TOKEN")
	cfg.PaymentCallbackSecret = os.Getenv("PAYMENT_CALLBACK_SECRET")
	if cfg.IsProduction() && cfg.PaymentCallbackSecret == "" {
		return nil, fmt.Errorf("PAYMENT_CALLBACK_SECRET is required in production")
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	if cfg.TelegramEnabled() && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is required when TELEGRAM_TOKEN is set")
	}

	cfg.CronSpecExpiryCheck = getEnv("CRON_SPEC_EXPIRY_CHECK", "*/15 * * * *") // Default: every 15 minutes
	if _, err = cron.ParseStandard(cfg.CronSpecExpiryCheck); err != nil {
		return nil, fmt.Errorf("invalid CRON_SPEC_EXPIRY_CHECK: %w", err)
	}

	cfg.TimeZone = getEnv("TIMEZONE", "Africa/Nairobi")
	cfg.Location, err = time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.Currency = strings.ToUpper(getEnv("CURRENCY", "KES"))

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
