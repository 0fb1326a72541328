// Package config handles YAML configuration loading, environment
// variable expansion, and validation.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/gateway"
	"github.com/javoxirone/bilagon-ai-bot/internal/openai"
	"github.com/javoxirone/bilagon-ai-bot/internal/stream"
	"github.com/javoxirone/bilagon-ai-bot/internal/telemetry"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Telegram  TelegramConfig   `yaml:"telegram"`
	OpenAI    openai.Config    `yaml:"openai"`
	Store     StoreConfig      `yaml:"store"`
	Stream    StreamConfig     `yaml:"stream"`
	Bot       BotConfig        `yaml:"bot"`
	Gateway   gateway.Config   `yaml:"gateway"`
	Janitor   JanitorConfig    `yaml:"janitor"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Log       LogConfig        `yaml:"log"`
}

// TelegramConfig holds the Bot API connection settings.
type TelegramConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`

	// Mode selects how updates arrive: "polling" or "webhook".
	Mode string `yaml:"mode"`

	// WebhookURL is the public URL registered with setWebhook. Required
	// in webhook mode.
	WebhookURL string `yaml:"webhook_url"`
}

func (c *TelegramConfig) defaults() {
	if c.Mode == "" {
		c.Mode = "polling"
	}
}

func (c *TelegramConfig) validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("telegram: token is required"))
	}
	switch c.Mode {
	case "polling":
	case "webhook":
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("telegram: webhook_url is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("telegram: unsupported mode %q (polling or webhook)", c.Mode))
	}
	return errors.Join(errs...)
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

func (c *StoreConfig) defaults() {
	if c.Path == "" {
		c.Path = "data/bilagon.db"
	}
}

// StreamConfig tunes the streaming renderer.
type StreamConfig struct {
	// DivideThreshold is the per-message character cap.
	DivideThreshold int `yaml:"divide_threshold"`

	// FlushCadence is the number of deltas between preview edits.
	FlushCadence int `yaml:"flush_cadence"`
}

func (c *StreamConfig) defaults() {
	if c.DivideThreshold <= 0 {
		c.DivideThreshold = stream.DefaultThreshold
	}
	if c.FlushCadence <= 0 {
		c.FlushCadence = stream.DefaultCadence
	}
}

func (c *StreamConfig) validate() error {
	if c.DivideThreshold > stream.DefaultThreshold {
		return fmt.Errorf("stream: divide_threshold %d exceeds the Bot API message limit %d",
			c.DivideThreshold, stream.DefaultThreshold)
	}
	return nil
}

// BotConfig tunes update dispatch.
type BotConfig struct {
	Workers      int `yaml:"workers"`
	InboxSize    int `yaml:"inbox_size"`
	HistoryLimit int `yaml:"history_limit"`
}

// JanitorConfig controls periodic maintenance.
type JanitorConfig struct {
	// PruneSchedule is a cron expression; empty uses the default.
	PruneSchedule string `yaml:"prune_schedule"`

	// Retention is how long idle conversations are kept.
	Retention time.Duration `yaml:"retention"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

func (c *LogConfig) defaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

func (c *LogConfig) validate() error {
	var errs []error
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log: unknown level %q", c.Level))
	}
	switch c.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Format))
	}
	return errors.Join(errs...)
}
