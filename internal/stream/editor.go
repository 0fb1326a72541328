package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

// RenderMode selects how the transport renders dispatched text.
type RenderMode int

const (
	// RenderPlain is used for in-progress edits: no markup parsing, so a
	// half-received code fence or bold marker never breaks an edit.
	RenderPlain RenderMode = iota

	// RenderMarkdown is the final rendering mode, applied once the
	// response is complete and its markup is known to be balanced.
	RenderMarkdown
)

// Transport is the outbound messaging capability the renderer needs.
// Implementations must be safe for concurrent use by independent sessions.
type Transport interface {
	// SendMessage posts a new message and returns its identifier.
	SendMessage(ctx context.Context, chatID int64, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) (int, error)

	// EditMessage replaces the text (and markup) of an existing message.
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) error
}

// Sleeper suspends the calling session. Injected so flood-control waits
// are instant in tests.
type Sleeper interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// StdSleeper implements Sleeper with a real timer.
type StdSleeper struct{}

// Sleep blocks for d or until ctx is cancelled.
func (StdSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EditStatus classifies the result of an Apply call.
type EditStatus int

const (
	// EditApplied means the remote message was mutated.
	EditApplied EditStatus = iota

	// EditUnchanged means the platform rejected the edit because the text
	// was identical to the current content. Treated as success.
	EditUnchanged

	// EditFailed means the edit did not take effect. The error is
	// recoverable: the caller logs it and keeps processing the stream.
	EditFailed
)

// EditOutcome is the result of one Apply call. Expected rejections are
// modeled as named variants instead of errors so callers switch on Status
// rather than unwrapping exceptions.
type EditOutcome struct {
	Status EditStatus
	Err    error
}

// Succeeded reports whether the message now holds the applied text.
func (o EditOutcome) Succeeded() bool {
	return o.Status == EditApplied || o.Status == EditUnchanged
}

// EditFunc applies one message edit. The editor's core behavior has this
// shape so middleware can wrap it.
type EditFunc func(ctx context.Context, chatID int64, messageID int, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) EditOutcome

// Middleware wraps an EditFunc with cross-cutting behavior (status
// notifications, metrics, logging).
type Middleware func(next EditFunc) EditFunc

// RateLimitedEditor applies message edits while absorbing the two expected
// failure categories of the Bot API: duplicate-content rejections become
// no-ops, and flood-control rejections wait the advised duration and retry
// exactly once.
type RateLimitedEditor struct {
	apply EditFunc
}

// NewRateLimitedEditor creates an editor over transport. A nil sleeper
// uses real timers. Middleware wraps outermost-first.
func NewRateLimitedEditor(transport Transport, sleeper Sleeper, logger *slog.Logger, mw ...Middleware) *RateLimitedEditor {
	if sleeper == nil {
		sleeper = StdSleeper{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	core := &editorCore{
		transport: transport,
		sleeper:   sleeper,
		logger:    logger,
	}

	fn := EditFunc(core.apply)
	for i := len(mw) - 1; i >= 0; i-- {
		fn = mw[i](fn)
	}
	return &RateLimitedEditor{apply: fn}
}

// Apply edits the message and classifies the result. Exactly one remote
// mutation occurs per successful, non-duplicate call.
func (e *RateLimitedEditor) Apply(ctx context.Context, chatID int64, messageID int, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) EditOutcome {
	return e.apply(ctx, chatID, messageID, text, mode, markup)
}

type editorCore struct {
	transport Transport
	sleeper   Sleeper
	logger    *slog.Logger
}

func (e *editorCore) apply(ctx context.Context, chatID int64, messageID int, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) EditOutcome {
	err := e.transport.EditMessage(ctx, chatID, messageID, text, mode, markup)
	if err == nil {
		return EditOutcome{Status: EditApplied}
	}

	if telegram.IsNotModified(err) {
		return EditOutcome{Status: EditUnchanged}
	}

	if wait := telegram.RetryAfter(err); wait > 0 {
		d := time.Duration(wait) * time.Second
		e.logger.Debug("flood control, suspending edit",
			"chat_id", chatID,
			"message_id", messageID,
			"wait", d,
		)
		if sleepErr := e.sleeper.Sleep(ctx, d); sleepErr != nil {
			return EditOutcome{Status: EditFailed, Err: sleepErr}
		}

		// Retry the same edit once. A second failure of a different kind
		// propagates.
		err = e.transport.EditMessage(ctx, chatID, messageID, text, mode, markup)
		if err == nil {
			return EditOutcome{Status: EditApplied}
		}
		if telegram.IsNotModified(err) {
			return EditOutcome{Status: EditUnchanged}
		}
		return EditOutcome{Status: EditFailed, Err: err}
	}

	return EditOutcome{Status: EditFailed, Err: err}
}
