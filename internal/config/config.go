// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Delivery
	TelegramToken  string
	TelegramChatID string

	// AI providers. Gemini is primary; OpenAI is the optional fallback.
	// An empty Gemini key disables enrichment entirely (the batch still
	// gets filtered, ranked, stored and sent).
	GeminiAPIKey string
	OpenAIAPIKey string

	// Persistence. Empty DATABASE_URL switches the sent ledger to the JSON
	// file and skips the article store.
	DatabaseURL    string
	LedgerFilePath string
	LedgerTTL      time.Duration

	// Batch shape
	FeedsConfigPath string
	MaxPerSource    int
	MaxArticleAge   time.Duration
	MaxSummarize    int
	DigestLimit     int

	// Filtering
	SimilarityThreshold float64
	MinContentLength    int

	// Scraping
	ScrapeThreshold int // fetch full text when feed text is shorter than this many runes

	// HTTP behavior
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		FeedsConfigPath:     "configs/feeds.yaml",
		LedgerFilePath:      "sent_digest.json",
		LedgerTTL:           48 * time.Hour,
		MaxPerSource:        10,
		MaxArticleAge:       24 * time.Hour,
		MaxSummarize:        20,
		DigestLimit:         20,
		SimilarityThreshold: 0.75,
		MinContentLength:    100,
		ScrapeThreshold:     200,
		RequestTimeout:      30 * time.Second,
		RetryAttempts:       3,
		RetryDelay:          5 * time.Second,
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if v := os.Getenv("FEEDS_CONFIG_PATH"); v != "" {
		cfg.FeedsConfigPath = v
	}
	if v := os.Getenv("LEDGER_FILE_PATH"); v != "" {
		cfg.LedgerFilePath = v
	}
	if v := os.Getenv("DEBUG"); v == "true" {
		cfg.Debug = true
	}

	var err error
	if cfg.LedgerTTL, err = durationHours("LEDGER_TTL_HOURS", cfg.LedgerTTL); err != nil {
		return nil, err
	}
	if cfg.MaxArticleAge, err = durationHours("MAX_ARTICLE_AGE_HOURS", cfg.MaxArticleAge); err != nil {
		return nil, err
	}
	if cfg.MaxPerSource, err = intVar("MAX_PER_SOURCE", cfg.MaxPerSource); err != nil {
		return nil, err
	}
	if cfg.MaxSummarize, err = intVar("MAX_SUMMARIZE", cfg.MaxSummarize); err != nil {
		return nil, err
	}
	if cfg.DigestLimit, err = intVar("DIGEST_LIMIT", cfg.DigestLimit); err != nil {
		return nil, err
	}
	if cfg.MinContentLength, err = intVar("MIN_CONTENT_LENGTH", cfg.MinContentLength); err != nil {
		return nil, err
	}
	if cfg.ScrapeThreshold, err = intVar("SCRAPE_THRESHOLD", cfg.ScrapeThreshold); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = intVar("RETRY_ATTEMPTS", cfg.RetryAttempts); err != nil {
		return nil, err
	}

	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("SIMILARITY_THRESHOLD %q is not a number: %w", v, err)
		}
		cfg.SimilarityThreshold = f
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings that would silently change behavior. The
// similarity threshold in particular is checked here rather than clamped,
// since it directly controls what gets dropped as a duplicate.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD %v outside (0,1]", c.SimilarityThreshold)
	}
	if c.MinContentLength <= 0 {
		return fmt.Errorf("MIN_CONTENT_LENGTH must be positive, got %d", c.MinContentLength)
	}
	if c.MaxPerSource <= 0 {
		return fmt.Errorf("MAX_PER_SOURCE must be positive, got %d", c.MaxPerSource)
	}
	if c.DigestLimit <= 0 {
		return fmt.Errorf("DIGEST_LIMIT must be positive, got %d", c.DigestLimit)
	}
	if c.MaxSummarize < 0 {
		return fmt.Errorf("MAX_SUMMARIZE must not be negative, got %d", c.MaxSummarize)
	}
	return nil
}

func intVar(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer: %w", key, v, err)
	}
	return n, nil
}

func durationHours(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s %q must be a positive integer of hours", key, v)
	}
	return time.Duration(n) * time.Hour, nil
}
