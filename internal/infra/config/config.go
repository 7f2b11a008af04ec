package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL          string
	LogLevel             string
	Environment          string
	InboxDir             string
	CronSpecDailyDigest  string
	DigestConcurrency    int
	SMTPServer           string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	EmailFrom            string
	TelegramToken        string // empty disables the bot
	AdminTelegramID      int64
	OpsTelegramID        int64
	AIInsightsEnabled    bool
	MaskExtraEmailFields []string
}

// MailEnabled reports whether enough SMTP settings are present to deliver digests.
func (c *AppConfig) MailEnabled() bool {
	return c.SMTPServer != "" && c.EmailFrom != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override existing env variables; a missing file is fine.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.InboxDir = os.Getenv("INBOX_DIR")
	if cfg.InboxDir == "" {
		cfg.InboxDir = "./inbox"
	}

	cfg.CronSpecDailyDigest = os.Getenv("CRON_SPEC_DAILY_DIGEST")
	if cfg.CronSpecDailyDigest == "" {
		cfg.CronSpecDailyDigest = "0 7 * * 1-5" // Default: 7:00 AM on weekdays
	}

	if cfg.DigestConcurrency, err = intFromEnv("DIGEST_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.DigestConcurrency < 1 {
		return nil, fmt.Errorf("invalid DIGEST_CONCURRENCY: must be positive, got %d", cfg.DigestConcurrency)
	}

	cfg.SMTPServer = os.Getenv("SMTP_SERVER")
	if cfg.SMTPPort, err = intFromEnv("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	// App passwords are often pasted with the spaces they are displayed with.
	cfg.SMTPPassword = strings.ReplaceAll(os.Getenv("SMTP_PASSWORD"), " ", "")
	cfg.EmailFrom = os.Getenv("EMAIL_FROM")
	if cfg.EmailFrom == "" {
		cfg.EmailFrom = cfg.SMTPUsername
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.AdminTelegramID, err = int64FromEnv("ADMIN_TELEGRAM_ID"); err != nil {
		return nil, err
	}
	if cfg.OpsTelegramID, err = int64FromEnv("OPS_TELEGRAM_ID"); err != nil {
		return nil, err
	}
	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}

	cfg.AIInsightsEnabled = true
	if raw := os.Getenv("AI_INSIGHTS_ENABLED"); raw != "" {
		if cfg.AIInsightsEnabled, err = strconv.ParseBool(raw); err != nil {
			return nil, fmt.Errorf("invalid AI_INSIGHTS_ENABLED: %w", err)
		}
	}

	for _, field := range strings.Split(os.Getenv("MASK_EXTRA_EMAIL_FIELDS"), ",") {
		if field = strings.TrimSpace(field); field != "" {
			cfg.MaskExtraEmailFields = append(cfg.MaskExtraEmailFields, field)
		}
	}

	return cfg, nil
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func int64FromEnv(key string) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
