// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultSearchFeedURL is the search feed template queried per keyword.
// {query} is replaced with the URL-escaped keyword.
const DefaultSearchFeedURL = "https://www.ebay.de/sch/i.html?_nkw={query}&_sop=10&LH_BIN=1&_rss=1"

// Config holds the application configuration. Loaded once at startup and
// treated as immutable afterwards.
type Config struct {
	TelegramBotToken string
	TelegramChatID   int64
	DatabasePath     string
	LogLevel         string
	SearchFeedURL    string
	PollInterval     time.Duration
	RetentionDays    int
	PruneEveryCycles int
	FetchWorkers     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	rawChat := os.Getenv("TELEGRAM_CHAT_ID")
	if rawChat == "" {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	chatID, err := strconv.ParseInt(rawChat, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", rawChat, err)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/watcher.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	feedURL := os.Getenv("SEARCH_FEED_URL")
	if feedURL == "" {
		feedURL = DefaultSearchFeedURL
	}

	pollSeconds, err := intEnv("POLL_INTERVAL_SECONDS", 120, 10)
	if err != nil {
		return nil, err
	}
	retentionDays, err := intEnv("RETENTION_DAYS", 14, 1)
	if err != nil {
		return nil, err
	}
	pruneEvery, err := intEnv("PRUNE_EVERY_CYCLES", 12, 1)
	if err != nil {
		return nil, err
	}
	workers, err := intEnv("FETCH_WORKERS", 4, 1)
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken: token,
		TelegramChatID:   chatID,
		DatabasePath:     dbPath,
		LogLevel:         logLevel,
		SearchFeedURL:    feedURL,
		PollInterval:     time.Duration(pollSeconds) * time.Second,
		RetentionDays:    retentionDays,
		PruneEveryCycles: pruneEvery,
		FetchWorkers:     workers,
	}, nil
}

// RetentionHorizon returns the configured seen-entry retention as a duration.
func (c *Config) RetentionHorizon() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func intEnv(key string, def, min int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < min {
		return 0, fmt.Errorf("%s must be at least %d, got %d", key, min, v)
	}
	return v, nil
}
