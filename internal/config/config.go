// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"project4869/internal/model"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	defaultDSN        = "file:data/project4869.db?cache=shared"
	defaultSourceURL  = "https://www.sbsub.com/data/"
	defaultRSSURL     = "https://www.sbsub.com/data/rss/"
	defaultRSSCron    = "0 * * * *"
	defaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultHTTPPort   = "4869"
	defaultLogPath    = "logs/project4869.log"
	defaultWorkers    = 4
	defaultBatchSize  = 100
	defaultReqTimeout = 30 * time.Second
)

// Config представляет конфигурацию приложения
type Config struct {
	// Database
	DatabaseURL string

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string
	LogPath   string

	// HTTP API
	HTTPPort     string
	APIAccessKey string

	// Sources
	SourceURL      string
	RSSURL         string
	UserAgent      string
	RequestTimeout time.Duration
	ProfilePath    string

	// Schedule
	RSSCron    string
	ScrapeCron string

	// Pipeline
	Workers        int
	BatchSize      int
	SubtitlePolicy model.SubtitlePolicy

	// Telegram
	BotToken     string
	NotifyChatID int64
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл если он существует
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:    getEnv("DB_DSN", defaultDSN),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		LogOutput:      getEnv("LOG_OUTPUT", "both"),
		LogPath:        getEnv("LOG_PATH", defaultLogPath),
		HTTPPort:       getEnv("HTTP_PORT", defaultHTTPPort),
		APIAccessKey:   getEnv("API_ACCESS_KEY", ""),
		SourceURL:      getEnv("SOURCE_URL", defaultSourceURL),
		RSSURL:         getEnv("RSS_URL", defaultRSSURL),
		UserAgent:      getEnv("USER_AGENT", defaultUserAgent),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", defaultReqTimeout),
		ProfilePath:    getEnv("PROFILE_PATH", ""),
		RSSCron:        getEnv("RSS_CRON", defaultRSSCron),
		ScrapeCron:     getEnv("SCRAPE_CRON", ""),
		Workers:        getEnvInt("WORKERS", defaultWorkers),
		BatchSize:      getEnvInt("BATCH_SIZE", defaultBatchSize),
		SubtitlePolicy: model.SubtitlePolicy(strings.ToLower(getEnv("SUBTITLE_POLICY", string(model.SubtitleVerbatim)))),
		BotToken:       getEnv("BOT_TOKEN", ""),
		NotifyChatID:   getEnvInt64("NOTIFY_CHAT_ID", 0),
	}

	// Валидация обязательных полей
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}

	if !c.SubtitlePolicy.IsValid() {
		return fmt.Errorf("SUBTITLE_POLICY must be verbatim or canonical, got %q", c.SubtitlePolicy)
	}

	if port, err := strconv.Atoi(c.HTTPPort); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("HTTP_PORT must be a valid port, got %q", c.HTTPPort)
	}

	if _, err := cron.ParseStandard(c.RSSCron); err != nil {
		return fmt.Errorf("RSS_CRON is invalid: %w", err)
	}

	if c.ScrapeCron != "" {
		if _, err := cron.ParseStandard(c.ScrapeCron); err != nil {
			return fmt.Errorf("SCRAPE_CRON is invalid: %w", err)
		}
	}

	if c.BotToken != "" && c.NotifyChatID == 0 {
		return fmt.Errorf("NOTIFY_CHAT_ID is required when BOT_TOKEN is set")
	}

	return nil
}

// NotificationsEnabled проверяет, настроены ли уведомления в Telegram
func (c *Config) NotificationsEnabled() bool {
	return c.BotToken != "" && c.NotifyChatID != 0
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 получает переменную окружения как int64
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как time.Duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
