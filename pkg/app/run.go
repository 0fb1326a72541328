// Package app wires the bot's components together and runs them until
// shutdown. It is shared by the CLI's start command and the service
// runner.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/javoxirone/bilagon-ai-bot/internal/bot"
	"github.com/javoxirone/bilagon-ai-bot/internal/config"
	"github.com/javoxirone/bilagon-ai-bot/internal/gateway"
	"github.com/javoxirone/bilagon-ai-bot/internal/janitor"
	"github.com/javoxirone/bilagon-ai-bot/internal/openai"
	"github.com/javoxirone/bilagon-ai-bot/internal/store"
	"github.com/javoxirone/bilagon-ai-bot/internal/stream"
	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
	"github.com/javoxirone/bilagon-ai-bot/internal/telemetry"
)

// longPollTimeout is the getUpdates long-poll window in seconds.
const longPollTimeout = 30

// allowedUpdates limits which update kinds Telegram delivers.
var allowedUpdates = []string{"message", "callback_query"}

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string
}

// Run loads configuration, starts all components, and blocks until a
// shutdown signal is received.
func Run(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting", "version", params.Version, "config", cfgPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, shutdownTrace, err := telemetry.Setup(ctx, cfg.Telemetry, "bilagon", params.Version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTrace(flushCtx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tg := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL)
	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram handshake failed: %w", err)
	}
	logger.Info("telegram connected", "bot", me.Username)

	ai := openai.New(cfg.OpenAI, logger.With("component", "openai"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	controller := stream.NewController(stream.ControllerOptions{
		Transport: stream.NewTelegramTransport(tg),
		Logger:    logger.With("component", "stream"),
		Metrics:   stream.NewMetrics(registry),
		Threshold: cfg.Stream.DivideThreshold,
		Cadence:   cfg.Stream.FlushCadence,
	})

	botMetrics := bot.NewMetrics(registry)
	handler, err := bot.NewHandler(bot.HandlerConfig{
		API:          tg,
		Provider:     ai,
		Transcriber:  ai,
		Turns:        db,
		Users:        db,
		Controller:   controller,
		Metrics:      botMetrics,
		Tracer:       tracer,
		HistoryLimit: cfg.Bot.HistoryLimit,
	})
	if err != nil {
		return err
	}

	router, err := bot.NewRouter(bot.RouterConfig{
		Handler:     handler,
		WorkerCount: cfg.Bot.Workers,
		InboxSize:   cfg.Bot.InboxSize,
		Logger:      logger.With("component", "router"),
		Metrics:     botMetrics,
	})
	if err != nil {
		return err
	}
	router.Start(ctx)
	defer router.Stop()

	gw := gateway.New(cfg.Gateway, router, registry, logger.With("component", "gateway"))
	if err := gw.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := gw.Stop(stopCtx); err != nil {
			logger.Warn("gateway stop failed", "error", err)
		}
	}()

	sched := janitor.NewScheduler(logger.With("component", "janitor"))
	if err := sched.RegisterJob(&janitor.PruneJob{
		Turns:     db,
		Retention: cfg.Janitor.Retention,
		Cron:      cfg.Janitor.PruneSchedule,
		Logger:    logger,
	}); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer func() { _ = sched.Stop(context.Background()) }()

	if err := runTransport(ctx, cfg, tg, router, logger); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// runTransport drives the configured update source until ctx ends.
func runTransport(ctx context.Context, cfg *config.Config, tg *telegram.Client, router *bot.Router, logger *slog.Logger) error {
	switch cfg.Telegram.Mode {
	case "webhook":
		err := tg.SetWebhook(ctx, telegram.SetWebhookRequest{
			URL:            cfg.Telegram.WebhookURL,
			SecretToken:    cfg.Gateway.WebhookSecret,
			AllowedUpdates: allowedUpdates,
		})
		if err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		logger.Info("webhook registered", "url", cfg.Telegram.WebhookURL)
		<-ctx.Done()
		return nil

	default:
		// Polling mode. A lingering webhook blocks getUpdates, so clear
		// it first.
		if err := tg.DeleteWebhook(ctx); err != nil {
			logger.Warn("webhook cleanup failed", "error", err)
		}
		poller := telegram.NewPoller(tg, router.Submit, logger.With("component", "poller"), longPollTimeout, allowedUpdates)
		poller.Run(ctx)
		return nil
	}
}

// NewLogger builds the process logger from config.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/bilagon/bilagon.yaml →
// ~/.config/bilagon/bilagon.yaml → ./bilagon.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "bilagon", "bilagon.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "bilagon", "bilagon.yaml"))
	}

	candidates = append(candidates, "bilagon.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}
