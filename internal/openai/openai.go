// Package openai implements the LLM provider over an OpenAI-compatible
// Chat Completions API, with SSE streaming and Whisper transcription.
package openai

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/provider"
)

// Compile-time interface guards.
var (
	_ provider.Provider    = (*Client)(nil)
	_ provider.Transcriber = (*Client)(nil)
)

// Config holds the OpenAI backend configuration.
type Config struct {
	APIKey             string   `yaml:"api_key"`
	Model              string   `yaml:"model"`
	TranscriptionModel string   `yaml:"transcription_model"`
	BaseURL            string   `yaml:"base_url"`
	MaxTokens          int      `yaml:"max_tokens"`
	Temperature        *float64 `yaml:"temperature"`
	Timeout            string   `yaml:"timeout"`
}

// Defaults fills zero-valued fields with sensible defaults.
func (c *Config) Defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = "whisper-1"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("openai: api_key is required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("openai: invalid timeout %q: %w", c.Timeout, err)
	}
	return nil
}

func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	config Config
	logger *slog.Logger

	// Separate clients for non-streaming and streaming requests.
	// http.Client.Timeout is a hard deadline for the entire response
	// body, which would kill long-lived SSE streams. The streaming client
	// has no timeout; cancellation is handled via context.
	client       *http.Client
	streamClient *http.Client
}

// New creates a Client from cfg. The logger may be nil.
func New(cfg Config, logger *slog.Logger) *Client {
	cfg.Defaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		config:       cfg,
		logger:       logger,
		client:       &http.Client{Timeout: cfg.parsedTimeout()},
		streamClient: &http.Client{},
	}
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return c.config.Model
}
