package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	DB      DatabaseConfig
	Redis   RedisConfig
	Scraper ScraperConfig
	Worker  WorkerConfig
	Notify  NotifyConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ScraperConfig contains browser and politeness settings for the extractor.
type ScraperConfig struct {
	Headless       bool
	ExecutablePath string
	ProxyURLs      []string
	UserAgents     []string
	NavTimeout     time.Duration
	DelayMin       time.Duration
	DelayMax       time.Duration
}

// WorkerConfig contains scheduling parameters for background workers and the
// extraction orchestrator.
type WorkerConfig struct {
	ScrapeInterval     time.Duration
	StalenessWindow    time.Duration
	MaxConcurrent      int
	MaxAttempts        int
	RetryBackoffBase   time.Duration
	NotifyInterval     time.Duration
	NotifyMaxAttempts  int
	DealExpiryInterval time.Duration
}

// NotifyConfig contains credentials for the notification sinks.
type NotifyConfig struct {
	TelegramToken  string
	TelegramChatID int64
	SlackWebhook   string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	FromName       string
	FromEmail      string
}

// defaultUserAgent is used when USER_AGENTS is not configured.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Scraper
	cfg.Scraper = ScraperConfig{
		Headless:       getEnv("SCRAPER_HEADLESS", "true") == "true",
		ExecutablePath: getEnv("SCRAPER_EXECUTABLE_PATH", ""),
		ProxyURLs:      splitEnvList("PROXY_URLS"),
		UserAgents:     splitEnvList("USER_AGENTS"),
	}
	if len(cfg.Scraper.UserAgents) == 0 {
		cfg.Scraper.UserAgents = []string{defaultUserAgent}
	}

	// Notification sinks
	cfg.Notify = NotifyConfig{
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: int64(getEnvInt("TELEGRAM_CHAT_ID", 0)),
		SlackWebhook:   getEnv("SLACK_WEBHOOK_URL", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPass:       getEnv("SMTP_PASS", ""),
		FromName:       getEnv("FROM_NAME", "Planwatch"),
		FromEmail:      getEnv("FROM_EMAIL", "noreply@localhost"),
	}

	// Durations
	var err error
	if cfg.Scraper.NavTimeout, err = parseDurationEnv("SCRAPER_NAV_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_NAV_TIMEOUT: %w", err)
	}
	if cfg.Scraper.DelayMin, err = parseDurationEnv("SCRAPING_DELAY_MIN", "1s"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPING_DELAY_MIN: %w", err)
	}
	if cfg.Scraper.DelayMax, err = parseDurationEnv("SCRAPING_DELAY_MAX", "3s"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPING_DELAY_MAX: %w", err)
	}
	if cfg.Scraper.DelayMax < cfg.Scraper.DelayMin {
		cfg.Scraper.DelayMax = cfg.Scraper.DelayMin
	}
	if cfg.Worker.ScrapeInterval, err = parseDurationEnv("SCRAPE_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPE_INTERVAL: %w", err)
	}
	if cfg.Worker.StalenessWindow, err = parseDurationEnv("STALENESS_WINDOW", "24h"); err != nil {
		return nil, fmt.Errorf("invalid STALENESS_WINDOW: %w", err)
	}
	if cfg.Worker.RetryBackoffBase, err = parseDurationEnv("RETRY_BACKOFF_BASE", "5s"); err != nil {
		return nil, fmt.Errorf("invalid RETRY_BACKOFF_BASE: %w", err)
	}
	if cfg.Worker.NotifyInterval, err = parseDurationEnv("NOTIFY_INTERVAL", "1m"); err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_INTERVAL: %w", err)
	}
	if cfg.Worker.DealExpiryInterval, err = parseDurationEnv("DEAL_EXPIRY_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid DEAL_EXPIRY_INTERVAL: %w", err)
	}
	cfg.Worker.MaxConcurrent = getEnvInt("MAX_CONCURRENT_SCRAPES", 5)
	cfg.Worker.MaxAttempts = getEnvInt("SCRAPE_MAX_ATTEMPTS", 3)
	cfg.Worker.NotifyMaxAttempts = getEnvInt("NOTIFY_MAX_ATTEMPTS", 5)

	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	if cfg.Worker.MaxConcurrent <= 0 {
		return nil, errors.New("MAX_CONCURRENT_SCRAPES must be positive")
	}
	if cfg.Worker.MaxAttempts <= 0 {
		return nil, errors.New("SCRAPE_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// splitEnvList reads a comma-separated environment variable into a slice,
// dropping empty entries.
func splitEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
