// Package gateway exposes the bot's HTTP surface: health, Prometheus
// metrics, and the Telegram webhook endpoint.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

// UpdateSubmitter accepts decoded webhook updates for processing.
// Implemented by bot.Router.
type UpdateSubmitter interface {
	Submit(upd telegram.Update) error
}

// Config holds the gateway's listen settings.
type Config struct {
	Bind            string        `yaml:"bind"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// WebhookPath is where Telegram posts updates. Empty disables the
	// webhook endpoint (polling mode).
	WebhookPath string `yaml:"webhook_path"`

	// WebhookSecret is checked against Telegram's secret token header.
	WebhookSecret string `yaml:"webhook_secret"`
}

// Defaults fills zero values with production defaults.
func (c *Config) Defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", c.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + c.Bind)
	}
	return nil
}

// Server is the HTTP gateway.
type Server struct {
	config   Config
	logger   *slog.Logger
	registry prometheus.Gatherer
	submit   UpdateSubmitter
	server   *http.Server
}

// New creates a gateway Server. registry may be nil to hide /metrics;
// submit may be nil when the webhook endpoint is disabled.
func New(cfg Config, submit UpdateSubmitter, registry prometheus.Gatherer, logger *slog.Logger) *Server {
	cfg.Defaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		config:   cfg,
		logger:   logger,
		registry: registry,
		submit:   submit,
	}
}

// Handler builds the chi mux with all routes wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth())
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	if s.config.WebhookPath != "" && s.submit != nil {
		r.Post(s.config.WebhookPath, s.handleWebhook())
	}

	return r
}

// Start begins serving in the background. The listen error is returned
// synchronously so misconfiguration fails startup.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Bind,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		s.logger.Info("gateway listening", "addr", s.config.Bind)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("gateway shutting down")
	return s.server.Shutdown(shutdownCtx)
}
