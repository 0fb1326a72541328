package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/javoxirone/bilagon-ai-bot/internal/provider"
	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

// ControllerOptions configures a Controller. Transport is required; the
// editor and pager default to plain instances over the same transport.
type ControllerOptions struct {
	Transport Transport
	Editor    *RateLimitedEditor
	Pager     *MessagePager
	Logger    *slog.Logger
	Metrics   *Metrics

	// Threshold is the per-message character cap; Cadence the delta count
	// between preview edits. Zero values use the defaults.
	Threshold int
	Cadence   int
	Cursor    string
}

// Controller drives a token stream end to end: placeholder, periodic
// preview edits, page cuts at the length cap, and the final markdown
// render with the follow-up keyboard.
//
// A Controller is stateless across runs and safe for concurrent sessions;
// all per-session state lives on the stack of Run.
type Controller struct {
	transport Transport
	editor    *RateLimitedEditor
	pager     *MessagePager
	logger    *slog.Logger
	metrics   *Metrics

	threshold int
	cadence   int
	cursor    string
}

// NewController creates a Controller from opts.
func NewController(opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	editor := opts.Editor
	if editor == nil {
		editor = NewRateLimitedEditor(opts.Transport, nil, logger)
	}
	pager := opts.Pager
	if pager == nil {
		pager = NewMessagePager(opts.Transport)
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	cadence := opts.Cadence
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	cursor := opts.Cursor
	if cursor == "" {
		cursor = Cursor
	}
	return &Controller{
		transport: opts.Transport,
		editor:    editor,
		pager:     pager,
		logger:    logger,
		metrics:   opts.Metrics,
		threshold: threshold,
		cadence:   cadence,
		cursor:    cursor,
	}
}

// Request describes one streaming response render.
type Request struct {
	ChatID int64

	// Stream is the token stream. A chunk with a non-nil Err aborts the
	// session; channel close ends it normally.
	Stream <-chan provider.StreamChunk

	// Placeholder is the localized "thinking" text sent before the first
	// delta arrives.
	Placeholder string

	// ErrorNotice is the localized text shown if the provider fails
	// before any usable content was produced.
	ErrorNotice string

	// Keyboard is the follow-up control attached to the last slice of the
	// final flush.
	Keyboard *telegram.InlineKeyboardMarkup
}

// Result is the outcome of a completed session.
type Result struct {
	// Text is the complete accumulated response, never truncated.
	Text string

	// Persist reports whether the caller should store Text as an
	// assistant turn. False when the provider failed mid-stream.
	Persist bool

	// Messages is the number of message identities the render used.
	Messages int
}

// Run consumes the stream and renders it into chat messages. It returns
// the full accumulated text even on provider failure, so callers can
// inspect what reached the user; the error is non-nil exactly when
// Result.Persist is false.
func (c *Controller) Run(ctx context.Context, req Request) (Result, error) {
	placeholderID, err := c.transport.SendMessage(ctx, req.ChatID, req.Placeholder, RenderPlain, nil)
	if err != nil {
		return Result{}, fmt.Errorf("stream: send placeholder: %w", err)
	}
	c.metrics.sessionStarted()

	s := &session{
		c:        c,
		chatID:   req.ChatID,
		acc:      NewChunkAccumulator(c.threshold, c.cadence, c.cursor),
		active:   placeholderID,
		messages: 1,
	}

	streamErr := s.pull(ctx, req.Stream)
	full := s.acc.FullResult()

	if streamErr != nil {
		s.abort(ctx, req, full)
		c.metrics.sessionAborted()
		return Result{Text: full, Messages: s.messages},
			fmt.Errorf("stream: provider failed: %w", streamErr)
	}

	if full == "" {
		// Never leave the user on the placeholder: an empty completion
		// still gets a terminal update.
		c.editor.Apply(ctx, req.ChatID, s.active, req.ErrorNotice, RenderPlain, nil)
		return Result{Messages: s.messages}, ErrEmptyResponse
	}

	s.finish(ctx, req)
	return Result{Text: full, Persist: true, Messages: s.messages}, nil
}

// session is the state of one streaming render. Owned by a single
// goroutine; nothing here is shared across sessions.
type session struct {
	c      *Controller
	chatID int64
	acc    *ChunkAccumulator

	// active names the one live editable message. Reassigned only by
	// openPage; a paginated-away message is never edited again, except to
	// re-render its final page at completion.
	active   int
	lastPage string
	messages int

	// needPage is set when the active message holds a full page and the
	// next edit must go to a fresh message.
	needPage bool
}

// pull consumes the token stream, feeding the accumulator and acting on
// each flush decision. Edit failures never abort the loop; only provider
// errors and cancellation do.
func (s *session) pull(ctx context.Context, stream <-chan provider.StreamChunk) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				return nil
			}
			if chunk.Err != nil {
				return chunk.Err
			}
			if chunk.Content == "" {
				continue
			}
			switch s.acc.Append(chunk.Content) {
			case SizeFlush:
				s.flushPages(ctx)
			case CadenceFlush:
				s.flushPreview(ctx)
			}
		}
	}
}

// flushPages commits full pages while the buffer holds them. A single
// oversized delta can produce several pages in one call.
func (s *session) flushPages(ctx context.Context) {
	for s.acc.SizePending() {
		if !s.ensureActive(ctx) {
			return
		}

		emit, remainder := s.acc.DrainForSizeFlush()
		outcome := s.c.editor.Apply(ctx, s.chatID, s.active, emit, RenderPlain, nil)
		if !outcome.Succeeded() {
			// The slice stays pending and is represented again at the
			// next flush decision. Only the edit is skipped, never the data.
			s.acc.Restore(emit)
			s.editFailed(outcome.Err)
			return
		}
		s.lastPage = emit
		s.c.metrics.flushed(SizeFlush)

		if remainder != "" {
			s.openPage(ctx)
		} else {
			s.needPage = true
		}
	}
}

// flushPreview edits the active message with the buffered text plus the
// cursor marker. The buffer is retained; this is decoration, not a commit.
func (s *session) flushPreview(ctx context.Context) {
	if !s.ensureActive(ctx) {
		return
	}

	preview := s.acc.DrainForCadenceFlush()
	outcome := s.c.editor.Apply(ctx, s.chatID, s.active, preview, RenderPlain, nil)
	if outcome.Status == EditFailed {
		s.editFailed(outcome.Err)
		return
	}
	s.c.metrics.flushed(CadenceFlush)
}

// finish runs the final flush: the remainder is sliced at the threshold
// and rendered as markdown, with the follow-up keyboard on the last slice.
func (s *session) finish(ctx context.Context, req Request) {
	remainder := s.acc.DrainRemainder()

	if remainder == "" {
		// The stream ended exactly on a page boundary. Re-render the last
		// page in final form and attach the keyboard there.
		s.c.editor.Apply(ctx, s.chatID, s.active, s.lastPage, RenderMarkdown, req.Keyboard)
		return
	}

	s.commitSlices(ctx, remainder, RenderMarkdown, req.Keyboard)
}

// abort terminates the render after a provider failure. Once content has
// reached the user, the partial text outranks a generic error notice: the
// terminal state of the active message is the partial response itself.
func (s *session) abort(ctx context.Context, req Request, full string) {
	if full == "" {
		s.c.editor.Apply(ctx, s.chatID, s.active, req.ErrorNotice, RenderPlain, nil)
		return
	}

	if remainder := s.acc.DrainRemainder(); remainder != "" {
		s.commitSlices(ctx, remainder, RenderPlain, nil)
	}
}

// commitSlices dispatches remainder in threshold-sized slices, opening a
// followup message before each non-final slice's successor. Only the last
// slice carries the keyboard. A failed edit gets one more attempt on a
// fresh message before the loop moves on, so the visible text stays
// contiguous without risking a stall on a dead transport.
func (s *session) commitSlices(ctx context.Context, remainder string, mode RenderMode, keyboard *telegram.InlineKeyboardMarkup) {
	var retried bool
	for {
		head, tail := cutAt(remainder, s.c.threshold)

		var markup *telegram.InlineKeyboardMarkup
		if tail == "" {
			markup = keyboard
		}

		applied := false
		if s.ensureActive(ctx) {
			outcome := s.c.editor.Apply(ctx, s.chatID, s.active, head, mode, markup)
			if outcome.Succeeded() {
				s.lastPage = head
				s.c.metrics.flushed(SizeFlush)
				applied = true
			} else {
				s.editFailed(outcome.Err)
			}
		}

		if !applied && !retried {
			retried = true
			if s.openPage(ctx) {
				continue
			}
		}
		retried = false

		if tail == "" {
			return
		}
		remainder = tail
		s.openPage(ctx)
	}
}

// ensureActive opens a deferred followup page when the active message
// already holds a full page. Reports whether an editable message exists.
func (s *session) ensureActive(ctx context.Context) bool {
	if !s.needPage {
		return true
	}
	return s.openPage(ctx)
}

// openPage makes a fresh message the active one. On failure the previous
// identity is kept and the page open is retried at the next flush.
func (s *session) openPage(ctx context.Context) bool {
	id, err := s.c.pager.OpenFollowup(ctx, s.chatID, s.c.cursor)
	if err != nil {
		s.needPage = true
		s.c.logger.Warn("open followup message failed",
			"chat_id", s.chatID,
			"error", err,
		)
		return false
	}
	s.active = id
	s.lastPage = ""
	s.needPage = false
	s.messages++
	s.c.metrics.pageOpened()
	return true
}

func (s *session) editFailed(err error) {
	s.c.metrics.editFailed()
	s.c.logger.Warn("message edit failed",
		"chat_id", s.chatID,
		"message_id", s.active,
		"error", err,
	)
}
