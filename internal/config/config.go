package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	DB struct {
		DSN string
	}
	SMS struct {
		ProviderURL string
		Token       string
	}
	Dispatch struct {
		Delay       time.Duration
		SendTimeout time.Duration
		Retention   time.Duration
	}
	Alerts struct {
		Retention     time.Duration
		SweepSchedule string
		RuleRefresh   string
		StateFile     string
		Emails        []string
		Chats         []string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
	}
	Telegram struct {
		BotToken  string
		RateLimit int
	}
	API struct {
		Port          string
		BasePath      string
		MonitoringURL string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (Config, error) {
	var cfg Config

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "batch_analytics")
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", "batch-dispatch-service")

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// SMS provider
	cfg.SMS.ProviderURL = os.Getenv("SMS_PROVIDER_URL")
	cfg.SMS.Token = os.Getenv("SMS_PROVIDER_TOKEN")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")

	// Telegram settings
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if rl, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_LIMIT")); err == nil {
		cfg.Telegram.RateLimit = rl
	}

	// API settings
	cfg.API.Port = getEnv("API_PORT", ":8080")
	cfg.API.BasePath = getEnv("API_BASE_PATH", "/api/v0")
	cfg.API.MonitoringURL = getEnv("MONITORING_URL", "/admin/monitoring")

	// Logging
	cfg.Logging.Dir = getEnv("LOG_DIR", "logs")
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	// Alerts
	cfg.Alerts.SweepSchedule = getEnv("ALERT_SWEEP_SCHEDULE", "@every 1h")
	cfg.Alerts.RuleRefresh = getEnv("ALERT_RULES_REFRESH", "@every 5m")
	cfg.Alerts.StateFile = getEnv("ALERT_STATE_FILE", "data/batch-alerts.json")
	cfg.Alerts.Emails = splitList(os.Getenv("ALERT_EMAILS"))
	cfg.Alerts.Chats = splitList(os.Getenv("ALERT_CHAT_DESTINATIONS"))

	// Durations
	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"DISPATCH_DELAY", time.Second, &cfg.Dispatch.Delay},
		{"DISPATCH_SEND_TIMEOUT", 10 * time.Second, &cfg.Dispatch.SendTimeout},
		{"BATCH_RETENTION", 24 * time.Hour, &cfg.Dispatch.Retention},
		{"ALERT_RETENTION", 24 * time.Hour, &cfg.Alerts.Retention},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	// Validate required settings
	missing := []string{}
	if cfg.SMS.ProviderURL == "" {
		missing = append(missing, "SMS_PROVIDER_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Telegram.RateLimit <= 0 {
		cfg.Telegram.RateLimit = 20
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
