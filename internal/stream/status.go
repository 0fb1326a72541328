package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

// ChatActionSender sends a chat action ("typing", "upload_document", ...)
// to a conversation. Implemented by *telegram.Client.
type ChatActionSender interface {
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// StartTypingLoop launches a goroutine that keeps the "typing" indicator
// alive at the given interval until ctx is cancelled. Telegram expires an
// indicator after about five seconds, so callers typically pass 4s.
func StartTypingLoop(ctx context.Context, sender ChatActionSender, chatID int64, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		_ = sender.SendChatAction(ctx, chatID, "typing")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = sender.SendChatAction(ctx, chatID, "typing")
			}
		}
	}()
}

// WithEditLogging is middleware that logs every applied edit at debug
// level. Useful when diagnosing flood-control behavior in production.
func WithEditLogging(logger *slog.Logger) Middleware {
	return func(next EditFunc) EditFunc {
		return func(ctx context.Context, chatID int64, messageID int, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) EditOutcome {
			start := time.Now()
			outcome := next(ctx, chatID, messageID, text, mode, markup)
			logger.Debug("message edit",
				"chat_id", chatID,
				"message_id", messageID,
				"chars", len(text),
				"status", outcome.Status,
				"elapsed", time.Since(start),
			)
			return outcome
		}
	}
}

// String returns the status name for logs.
func (s EditStatus) String() string {
	switch s {
	case EditApplied:
		return "applied"
	case EditUnchanged:
		return "unchanged"
	case EditFailed:
		return "failed"
	default:
		return "unknown"
	}
}
