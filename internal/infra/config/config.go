package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database

	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/domain/subscription"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseDriver     string
	DatabaseURL        string
	HTTPAddr           string
	LogLevel           string
	Environment        string
	AMQPURL            string // empty disables the broker; events are only logged
	AMQPEventsExchange string
	AMQPBillingQueue   string
	TelegramToken      string // empty disables the bot
	CronSpecDigest     string
	GracePeriodDays    int
	DefaultCadence     []int
	QuotaFile          string
	Quotas             subscription.QuotaTable
	Location           *time.Location // calendar used for "today"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseDriver = strings.ToLower(getEnv("DATABASE_DRIVER", "postgres"))
	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite3" {
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q: expected postgres or sqlite3", cfg.DatabaseDriver)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	cfg.AMQPURL = os.Getenv("AMQP_URL")
	cfg.AMQPEventsExchange = getEnv("AMQP_EVENTS_EXCHANGE", "outreach.events")
	cfg.AMQPBillingQueue = getEnv("AMQP_BILLING_QUEUE", "billing.payment_succeeded")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	cfg.CronSpecDigest = getEnv("CRON_SPEC_DIGEST", "0 8 * * *")
	if _, err = cron.ParseStandard(cfg.CronSpecDigest); err != nil {
		return nil, fmt.Errorf("invalid CRON_SPEC_DIGEST: %w", err)
	}

	cfg.GracePeriodDays, err = strconv.Atoi(getEnv("GRACE_PERIOD_DAYS", strconv.Itoa(subscription.DefaultGraceDays)))
	if err != nil {
		return nil, fmt.Errorf("invalid GRACE_PERIOD_DAYS: %w", err)
	}
	if cfg.GracePeriodDays < 0 {
		return nil, fmt.Errorf("invalid GRACE_PERIOD_DAYS: must not be negative")
	}

	cfg.DefaultCadence, err = ParseOffsets(getEnv("DEFAULT_CADENCE", "7,14,21"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_CADENCE: %w", err)
	}

	cfg.QuotaFile = os.Getenv("QUOTA_FILE")
	if cfg.QuotaFile == "" {
		cfg.Quotas = subscription.DefaultQuotaTable()
	} else if cfg.Quotas, err = LoadQuotaFile(cfg.QuotaFile); err != nil {
		return nil, err
	}

	cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return cfg, nil
}

// ParseOffsets parses a comma separated cadence such as "3,7,14".
func ParseOffsets(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	offsets := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("offset %q is not a number", p)
		}
		offsets = append(offsets, n)
	}
	if err := outreach.ValidateOffsets(offsets); err != nil {
		return nil, err
	}
	return offsets, nil
}
