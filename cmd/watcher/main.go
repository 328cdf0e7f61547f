package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ebay_watcher/internal/config"
	"ebay_watcher/internal/engine"
	"ebay_watcher/internal/notify"
	"ebay_watcher/internal/scheduler"
	"ebay_watcher/internal/source"
	"ebay_watcher/internal/status"
	"ebay_watcher/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Error("create notifier", "error", err)
		os.Exit(1)
	}

	src := source.New(http.DefaultClient, cfg.SearchFeedURL)
	pub := status.NewPublisher()

	eng := engine.New(store, src, notifier, pub, log)
	eng.SetWorkers(cfg.FetchWorkers)
	eng.SetRetention(cfg.RetentionHorizon())
	eng.SetPruneEvery(cfg.PruneEveryCycles)

	sched := scheduler.New(eng, cfg.PollInterval, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting watcher", "poll_interval", cfg.PollInterval)

	sched.Run(ctx)

	log.Info("watcher stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
