// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RunMode selects between a one-shot run and the repeating loop.
type RunMode string

// Supported run modes.
const (
	ModeSingle    RunMode = "single"
	ModeScheduled RunMode = "scheduled"
)

// Config holds the application configuration. It is read once at
// startup and treated as immutable for the process lifetime.
type Config struct {
	Email    string
	Password string
	Pages    []string

	OpenRouterAPIKey string
	OpenRouterModel  string
	PromptsPath      string

	BrowserURL string
	Headless   bool

	MaxPostsPerPage int
	EnableComments  bool

	RunMode     RunMode
	RunInterval time.Duration
	MaxRetries  int
	RetryDelay  time.Duration

	DailyPostLimit    int
	DailyCommentLimit int

	MinDelay time.Duration
	MaxDelay time.Duration

	DatabasePath string
	LogLevel     string

	TelegramBotToken string
	TelegramChatID   int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Email:            os.Getenv("FB_EMAIL"),
		Password:         os.Getenv("FB_PASSWORD"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", "deepseek/deepseek-chat-v3-0324:free"),
		PromptsPath:      getEnv("PROMPTS_PATH", "./prompts.json"),
		BrowserURL:       getEnv("BROWSER_URL", "http://localhost:4444"),
		DatabasePath:     getEnv("DATABASE_PATH", "./data/bot.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.Email == "" || cfg.Password == "" {
		return nil, fmt.Errorf("FB_EMAIL and FB_PASSWORD are required")
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}

	for _, p := range strings.Split(os.Getenv("FACEBOOK_PAGES"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Pages = append(cfg.Pages, p)
		}
	}
	if len(cfg.Pages) == 0 {
		return nil, fmt.Errorf("FACEBOOK_PAGES is required")
	}

	mode := RunMode(getEnv("RUN_MODE", string(ModeScheduled)))
	if mode != ModeSingle && mode != ModeScheduled {
		return nil, fmt.Errorf("invalid RUN_MODE %q (want single or scheduled)", mode)
	}
	cfg.RunMode = mode

	var err error
	if cfg.MaxPostsPerPage, err = getInt("MAX_POSTS_PER_PAGE", 5); err != nil {
		return nil, err
	}
	if cfg.MaxPostsPerPage < 1 {
		return nil, fmt.Errorf("MAX_POSTS_PER_PAGE must be at least 1, got %d", cfg.MaxPostsPerPage)
	}
	if cfg.DailyPostLimit, err = getInt("DAILY_POST_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.DailyCommentLimit, err = getInt("DAILY_COMMENT_LIMIT", 50); err != nil {
		return nil, err
	}
	if cfg.DailyPostLimit < 0 || cfg.DailyCommentLimit < 0 {
		return nil, fmt.Errorf("daily limits must not be negative")
	}
	if cfg.MaxRetries, err = getInt("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", cfg.MaxRetries)
	}

	interval, err := getInt("RUN_INTERVAL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	if interval < 1 {
		return nil, fmt.Errorf("RUN_INTERVAL_MINUTES must be at least 1, got %d", interval)
	}
	cfg.RunInterval = time.Duration(interval) * time.Minute

	retryDelay, err := getInt("RETRY_DELAY_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	if retryDelay < 0 {
		return nil, fmt.Errorf("RETRY_DELAY_SECONDS must not be negative, got %d", retryDelay)
	}
	cfg.RetryDelay = time.Duration(retryDelay) * time.Second

	minDelay, err := getFloat("MIN_DELAY_SECONDS", 1)
	if err != nil {
		return nil, err
	}
	maxDelay, err := getFloat("MAX_DELAY_SECONDS", 3)
	if err != nil {
		return nil, err
	}
	if minDelay < 0 {
		return nil, fmt.Errorf("MIN_DELAY_SECONDS must not be negative, got %v", minDelay)
	}
	if maxDelay < minDelay {
		return nil, fmt.Errorf("MAX_DELAY_SECONDS %v is below MIN_DELAY_SECONDS %v", maxDelay, minDelay)
	}
	cfg.MinDelay = time.Duration(minDelay * float64(time.Second))
	cfg.MaxDelay = time.Duration(maxDelay * float64(time.Second))

	if cfg.EnableComments, err = getBool("ENABLE_COMMENTS", true); err != nil {
		return nil, err
	}
	if cfg.Headless, err = getBool("HEADLESS_MODE", false); err != nil {
		return nil, err
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		cfg.TelegramChatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
	}

	return cfg, nil
}

// NotifierEnabled reports whether the optional Telegram notifier is
// fully configured.
func (c *Config) NotifierEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
