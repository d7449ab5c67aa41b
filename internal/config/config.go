package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the API server.
type Config struct {
	HTTPAddr       string
	DatabaseURL    string
	DBDriver       string
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	RememberTTL    time.Duration
	ResetCodeTTL   time.Duration
	AllowedOrigins []string
	Mail           MailConfig
	TelegramToken  string
	OverdueSweep   time.Duration
	CodePurgeTime  string
}

// MailConfig selects and configures the email transport.
type MailConfig struct {
	From         string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	ResendAPIKey string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg, err := LoadStorage()
	if err != nil {
		return cfg, err
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadStorage is Load without the checks that only the API server needs.
// Maintenance commands use it.
func LoadStorage() (Config, error) {
	cfg := Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8000"),
		DatabaseURL:   getEnv("DATABASE_URL", "taskhub.db"),
		DBDriver:      getEnv("DB_DRIVER", "sqlite"),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		CodePurgeTime: getEnv("CODE_PURGE_TIME", "03:30"),
		Mail: MailConfig{
			From:         getEnv("MAIL_FROM", "taskhub <noreply@localhost>"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASS", ""),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	var err error
	if cfg.AccessTTL, err = durationEnv("ACCESS_TOKEN_TTL", 60*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.RefreshTTL, err = durationEnv("REFRESH_TOKEN_TTL", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.RememberTTL, err = durationEnv("REMEMBER_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.ResetCodeTTL, err = durationEnv("RESET_CODE_TTL", 10*time.Minute); err != nil {
		return cfg, err
	}
	cfg.OverdueSweep = parseInterval(strings.TrimSpace(os.Getenv("OVERDUE_SWEEP_INTERVAL_HOURS")))

	switch cfg.DBDriver {
	case "sqlite", "sqlite-pure":
	default:
		return cfg, fmt.Errorf("DB_DRIVER %q is not supported", cfg.DBDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

// parseInterval turns a whole number of hours into a duration; anything else disables the job.
func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0
	}
	return time.Duration(hours) * time.Hour
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
