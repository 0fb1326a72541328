// Package bot dispatches Telegram updates to handlers. Updates for the
// same chat are processed strictly in order; different chats run in
// parallel on a bounded worker pool.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

const (
	defaultInboxSize = 256

	// DefaultWorkerCount is the number of dispatch workers when the
	// configuration leaves WorkerCount unset.
	DefaultWorkerCount = 10
)

// envelope pairs an update with its routing key for the inbox.
type envelope struct {
	Update telegram.Update
	ChatID int64
}

// Router dispatch errors.
var (
	ErrInboxFull     = errors.New("bot: inbox full")
	ErrRouterStopped = errors.New("bot: router stopped")
)

// RouterConfig holds the configuration for a Router.
type RouterConfig struct {
	Handler     *Handler
	WorkerCount int
	InboxSize   int
	Logger      *slog.Logger
	Metrics     *Metrics
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Router is the central dispatch layer between update sources (poller or
// webhook) and the Handler.
type Router struct {
	config   RouterConfig
	inbox    chan envelope
	inboxMu  sync.RWMutex
	laneLock *LaneLock
	workers  sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg RouterConfig) (*Router, error) {
	cfg = cfg.withDefaults()
	if cfg.Handler == nil {
		return nil, errors.New("bot: handler is required")
	}
	return &Router{
		config:   cfg,
		inbox:    make(chan envelope, cfg.InboxSize),
		laneLock: NewLaneLock(),
		logger:   cfg.Logger,
	}, nil
}

// Start launches the worker pool and begins processing updates.
func (r *Router) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("router: start ignored, router already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	for range r.config.WorkerCount {
		r.workers.Add(1)
		go func() {
			defer r.workers.Done()
			for env := range r.inbox {
				r.process(ctx, env)
			}
		}()
	}
	r.logger.Info("router: started", "workers", r.config.WorkerCount, "inbox_size", r.config.InboxSize)
}

// Submit enqueues an update for processing. If the inbox is full the
// update is dropped with a warning so the update source never stalls.
func (r *Router) Submit(upd telegram.Update) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRouterStopped
	}

	chatID, ok := updateChatID(upd)
	if !ok {
		r.logger.Debug("router: update without chat, ignored", "update_id", upd.UpdateID)
		return nil
	}

	select {
	case r.inbox <- envelope{Update: upd, ChatID: chatID}:
		return nil
	default:
		r.logger.Warn("router: inbox full, update dropped", "chat_id", chatID)
		r.config.Metrics.updateDropped()
		return ErrInboxFull
	}
}

// Stop gracefully shuts down the router: closes inbox, cancels in-flight
// handlers, drains workers.
func (r *Router) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info("router: stopping")

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		if cancel != nil {
			cancel()
		}

		r.workers.Wait()
		r.logger.Info("router: stopped")
	})
}

func (r *Router) process(ctx context.Context, env envelope) {
	r.laneLock.Acquire(env.ChatID)
	defer r.laneLock.Release(env.ChatID)

	logger := r.logger.With("trace_id", uuid.NewString(), "chat_id", env.ChatID)
	if err := r.config.Handler.HandleUpdate(ctx, logger, env.Update); err != nil {
		r.config.Metrics.handlerError()
		logger.Error("router: update failed", "update_id", env.Update.UpdateID, "error", err)
	}
}

// updateChatID extracts the chat an update belongs to. Updates without a
// chat (for example bare poll answers) are not routable.
func updateChatID(upd telegram.Update) (int64, bool) {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID, true
	case upd.EditedMessage != nil:
		return upd.EditedMessage.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}
