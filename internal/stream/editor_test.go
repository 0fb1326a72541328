package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

func TestRateLimitedEditor_Applies(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	editor := NewRateLimitedEditor(transport, &fakeSleeper{}, discardLogger())

	outcome := editor.Apply(context.Background(), 1, 100, "hello", RenderPlain, nil)
	if outcome.Status != EditApplied {
		t.Fatalf("status = %v, want EditApplied", outcome.Status)
	}
	if transport.edits != 1 {
		t.Errorf("edits = %d, want 1", transport.edits)
	}
}

func TestRateLimitedEditor_DuplicateEditIsIdempotent(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	editor := NewRateLimitedEditor(transport, &fakeSleeper{}, discardLogger())

	first := editor.Apply(context.Background(), 1, 100, "same text", RenderPlain, nil)
	second := editor.Apply(context.Background(), 1, 100, "same text", RenderPlain, nil)

	if first.Status != EditApplied {
		t.Fatalf("first status = %v, want EditApplied", first.Status)
	}
	// The duplicate is absorbed as a no-op, never an error, and causes no
	// second remote mutation.
	if second.Status != EditUnchanged {
		t.Fatalf("second status = %v, want EditUnchanged", second.Status)
	}
	if second.Err != nil {
		t.Errorf("second outcome carries error: %v", second.Err)
	}
	mutations := 0
	for _, op := range transport.ops {
		if op.Kind == "edit" {
			mutations++
		}
	}
	if mutations != 1 {
		t.Errorf("remote mutations = %d, want 1", mutations)
	}
}

func TestRateLimitedEditor_FloodControlWaitsAndRetriesOnce(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	transport.editErr[1] = &telegram.APIError{Code: 429, Description: "Too Many Requests", RetryAfter: 7}
	sleeper := &fakeSleeper{}
	editor := NewRateLimitedEditor(transport, sleeper, discardLogger())

	outcome := editor.Apply(context.Background(), 1, 100, "hello", RenderPlain, nil)
	if outcome.Status != EditApplied {
		t.Fatalf("status = %v, want EditApplied (err: %v)", outcome.Status, outcome.Err)
	}
	if len(sleeper.sleeps) != 1 || sleeper.sleeps[0] != 7*time.Second {
		t.Errorf("sleeps = %v, want exactly one 7s wait", sleeper.sleeps)
	}
	if transport.edits != 2 {
		t.Errorf("edit attempts = %d, want 2", transport.edits)
	}
}

func TestRateLimitedEditor_RetryFailurePropagates(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	transport.editErr[1] = &telegram.APIError{Code: 429, Description: "Too Many Requests", RetryAfter: 1}
	transport.editErr[2] = &telegram.APIError{Code: 400, Description: "Bad Request: chat not found"}
	editor := NewRateLimitedEditor(transport, &fakeSleeper{}, discardLogger())

	outcome := editor.Apply(context.Background(), 1, 100, "hello", RenderPlain, nil)
	if outcome.Status != EditFailed {
		t.Fatalf("status = %v, want EditFailed", outcome.Status)
	}
	var apiErr *telegram.APIError
	if !errors.As(outcome.Err, &apiErr) || apiErr.Code != 400 {
		t.Errorf("outcome error = %v, want the retry's 400", outcome.Err)
	}
}

func TestRateLimitedEditor_UnclassifiedErrorRecoverable(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	wantErr := errors.New("connection reset")
	transport.editErr[1] = wantErr
	editor := NewRateLimitedEditor(transport, &fakeSleeper{}, discardLogger())

	outcome := editor.Apply(context.Background(), 1, 100, "hello", RenderPlain, nil)
	if outcome.Status != EditFailed {
		t.Fatalf("status = %v, want EditFailed", outcome.Status)
	}
	if !errors.Is(outcome.Err, wantErr) {
		t.Errorf("outcome error = %v, want %v", outcome.Err, wantErr)
	}
	if transport.edits != 1 {
		t.Errorf("edit attempts = %d, want 1 (no retry for unclassified errors)", transport.edits)
	}
}

func TestRateLimitedEditor_MiddlewareWraps(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()

	var order []string
	mw := func(name string) Middleware {
		return func(next EditFunc) EditFunc {
			return func(ctx context.Context, chatID int64, messageID int, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) EditOutcome {
				order = append(order, name)
				return next(ctx, chatID, messageID, text, mode, markup)
			}
		}
	}

	editor := NewRateLimitedEditor(transport, &fakeSleeper{}, discardLogger(), mw("outer"), mw("inner"))
	editor.Apply(context.Background(), 1, 100, "hello", RenderPlain, nil)

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v, want [outer inner]", order)
	}
}
