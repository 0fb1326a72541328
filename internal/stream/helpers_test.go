package stream

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// transportOp records one call against the fake transport.
type transportOp struct {
	Kind      string // "send" or "edit"
	MessageID int
	Text      string
	Mode      RenderMode
	Keyboard  bool
}

// fakeTransport is an in-memory Transport. Message ids start at 100 and
// increase by one per send. editErr, keyed by 1-based edit call number,
// scripts failures.
type fakeTransport struct {
	mu      sync.Mutex
	nextID  int
	ops     []transportOp
	edits   int
	editErr map[int]error
	sendErr error

	// last holds the most recent text applied to each message id, i.e.
	// what the user currently sees.
	last map[int]string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		nextID:  100,
		editErr: map[int]error{},
		last:    map[int]string{},
	}
}

func (f *fakeTransport) SendMessage(_ context.Context, _ int64, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	id := f.nextID
	f.nextID++
	f.ops = append(f.ops, transportOp{Kind: "send", MessageID: id, Text: text, Mode: mode, Keyboard: markup != nil})
	f.last[id] = text
	return id, nil
}

func (f *fakeTransport) EditMessage(_ context.Context, _ int64, messageID int, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
	if err, ok := f.editErr[f.edits]; ok {
		return err
	}
	if f.last[messageID] == text && markup == nil {
		return &telegram.APIError{Code: 400, Description: "Bad Request: message is not modified"}
	}
	f.ops = append(f.ops, transportOp{Kind: "edit", MessageID: messageID, Text: text, Mode: mode, Keyboard: markup != nil})
	f.last[messageID] = text
	return nil
}

// messageOrder returns the ids of created messages in creation order.
func (f *fakeTransport) messageOrder() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int
	for _, op := range f.ops {
		if op.Kind == "send" {
			ids = append(ids, op.MessageID)
		}
	}
	return ids
}

// fakeSleeper records requested sleeps without waiting.
type fakeSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

var _ Transport = (*fakeTransport)(nil)
