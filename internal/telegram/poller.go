package telegram

import (
	"context"
	"log/slog"
	"time"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// UpdateHandler receives one update from the transport layer. Delivery
// errors are logged by the poller; the update is not redelivered.
type UpdateHandler func(Update) error

// Poller receives updates from the Bot API using long polling.
type Poller struct {
	client  *Client
	handler UpdateHandler
	logger  *slog.Logger
	timeout int
	allowed []string
}

// NewPoller creates a Poller. timeout is the long-poll timeout in seconds.
func NewPoller(client *Client, handler UpdateHandler, logger *slog.Logger, timeout int, allowed []string) *Poller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		client:  client,
		handler: handler,
		logger:  logger,
		timeout: timeout,
		allowed: allowed,
	}
}

// Run polls for updates until ctx is cancelled. After five consecutive
// getUpdates failures the loop pauses before resuming, so a dead network
// does not turn into a hot loop.
func (p *Poller) Run(ctx context.Context) {
	var offset int
	var consecutiveErrors int

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := p.client.GetUpdates(ctx, GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.timeout,
			AllowedUpdates: p.allowed,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			p.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)

			if consecutiveErrors >= maxConsecutivePollingErrors {
				p.logger.Warn("polling paused after consecutive errors",
					"pause", errorPauseDuration,
				)
				select {
				case <-ctx.Done():
					return
				case <-time.After(errorPauseDuration):
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0

		for _, update := range updates {
			offset = update.UpdateID + 1
			if err := p.handler(update); err != nil {
				p.logger.Error("failed to deliver update",
					"update_id", update.UpdateID,
					"error", err,
				)
			}
		}
	}
}
