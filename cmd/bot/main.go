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

	"github.com/joho/godotenv"

	"clickbait_bot/internal/analyzer"
	"clickbait_bot/internal/article"
	"clickbait_bot/internal/browser"
	"clickbait_bot/internal/config"
	"clickbait_bot/internal/notify"
	"clickbait_bot/internal/orchestrator"
	"clickbait_bot/internal/pipeline"
	"clickbait_bot/internal/quota"
	"clickbait_bot/internal/scheduler"
	"clickbait_bot/internal/storage"
)

func main() {
	_ = godotenv.Load()

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

	prompts, err := analyzer.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		log.Error("load prompts", "path", cfg.PromptsPath, "error", err)
		os.Exit(1)
	}

	tracker := quota.New(store, quota.Limits{
		PostsProcessed: cfg.DailyPostLimit,
		CommentsPosted: cfg.DailyCommentLimit,
	}, nil)

	an := analyzer.New(http.DefaultClient, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, prompts)
	articles := article.NewScraper(http.DefaultClient)
	driver := browser.NewRemote(cfg.BrowserURL, http.DefaultClient, cfg.Headless)

	pipe := pipeline.New(store, tracker, an, articles, cfg.EnableComments, log)
	orch := orchestrator.New(driver, pipe, orchestrator.Config{
		Pages:           cfg.Pages,
		MaxPostsPerPage: cfg.MaxPostsPerPage,
		MinDelay:        cfg.MinDelay,
		MaxDelay:        cfg.MaxDelay,
		Credentials:     browser.Credentials{Email: cfg.Email, Password: cfg.Password},
	}, log)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.NotifierEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Error("create notifier", "error", err)
			os.Exit(1)
		}
		notifier = tg
	}

	sched := scheduler.New(orch, notifier, log, cfg.RunInterval, cfg.MaxRetries, cfg.RetryDelay)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting",
		"mode", cfg.RunMode,
		"pages", strings.Join(cfg.Pages, ","),
		"max_posts_per_page", cfg.MaxPostsPerPage,
		"comments_enabled", cfg.EnableComments,
	)

	switch cfg.RunMode {
	case config.ModeSingle:
		if err := sched.RunSingle(ctx); err != nil {
			log.Error("run failed", "error", err)
			os.Exit(1)
		}
	case config.ModeScheduled:
		sched.Run(ctx)
	}

	log.Info("stopped")
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
