package stream

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/javoxirone/bilagon-ai-bot/internal/provider"
	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

var testKeyboard = &telegram.InlineKeyboardMarkup{
	InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{Text: "New Chat", CallbackData: "new_chat"}},
	},
}

func newTestController(transport *fakeTransport, threshold, cadence int) *Controller {
	return NewController(ControllerOptions{
		Transport: transport,
		Editor:    NewRateLimitedEditor(transport, &fakeSleeper{}, discardLogger()),
		Logger:    discardLogger(),
		Threshold: threshold,
		Cadence:   cadence,
	})
}

func runStream(t *testing.T, c *Controller, chunks ...provider.StreamChunk) (Result, error) {
	t.Helper()
	ch := make(chan provider.StreamChunk, len(chunks))
	for _, chunk := range chunks {
		ch <- chunk
	}
	close(ch)
	return c.Run(context.Background(), Request{
		ChatID:      7,
		Stream:      ch,
		Placeholder: "Loading...",
		ErrorNotice: "Something went wrong!",
		Keyboard:    testKeyboard,
	})
}

func deltas(texts ...string) []provider.StreamChunk {
	chunks := make([]provider.StreamChunk, len(texts))
	for i, s := range texts {
		chunks[i] = provider.StreamChunk{Content: s}
	}
	return chunks
}

// finalState concatenates the last text applied to each message, in
// creation order, with cursor markers stripped.
func finalState(f *fakeTransport) string {
	var b strings.Builder
	for _, id := range f.messageOrder() {
		b.WriteString(strings.TrimSuffix(f.last[id], Cursor))
	}
	return b.String()
}

func TestController_Pagination(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	c := newTestController(transport, 10, 100)

	res, err := runStream(t, c, deltas("abcdefghijklm", "nopqrstuvwxyz")...)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Text != "abcdefghijklmnopqrstuvwxyz" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Messages != 3 {
		t.Fatalf("Messages = %d, want 3", res.Messages)
	}

	ids := transport.messageOrder()
	if len(ids) != 3 {
		t.Fatalf("message identities = %v, want 3", ids)
	}

	var edits []transportOp
	for _, op := range transport.ops {
		if op.Kind == "edit" {
			edits = append(edits, op)
		}
	}
	want := []struct {
		id       int
		text     string
		keyboard bool
	}{
		{ids[0], "abcdefghij", false},
		{ids[1], "klmnopqrst", false},
		{ids[2], "uvwxyz", true},
	}
	if len(edits) != len(want) {
		t.Fatalf("edits = %d, want %d: %+v", len(edits), len(want), edits)
	}
	for i, w := range want {
		if edits[i].MessageID != w.id || edits[i].Text != w.text || edits[i].Keyboard != w.keyboard {
			t.Errorf("edit %d = %+v, want id=%d text=%q keyboard=%v", i, edits[i], w.id, w.text, w.keyboard)
		}
	}
	if edits[2].Mode != RenderMarkdown {
		t.Errorf("final slice mode = %v, want RenderMarkdown", edits[2].Mode)
	}
}

func TestController_ForcedCompletion(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	c := newTestController(transport, DefaultThreshold, 2)

	res, err := runStream(t, c, deltas("Hel", "lo, ", "world!")...)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Text != "Hello, world!" || !res.Persist {
		t.Errorf("result = %+v", res)
	}

	var edits []transportOp
	for _, op := range transport.ops {
		if op.Kind == "edit" {
			edits = append(edits, op)
		}
	}
	if len(edits) != 2 {
		t.Fatalf("edits = %+v, want preview then final", edits)
	}
	if edits[0].Text != "Hello, "+Cursor || edits[0].Mode != RenderPlain {
		t.Errorf("preview edit = %+v", edits[0])
	}
	if edits[1].Text != "Hello, world!" || edits[1].Mode != RenderMarkdown || !edits[1].Keyboard {
		t.Errorf("final edit = %+v", edits[1])
	}
}

func TestController_Fidelity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name               string
		threshold, cadence int
		deltas             []string
	}{
		{"single delta", 10, 3, []string{"abcdefghijklmnopqrstuvwxyz"}},
		{"many small deltas", 10, 3, strings.Split(strings.Repeat("a", 26), "")},
		{"exact boundary", 5, 2, []string{"abcde", "fghij", "klm"}},
		{"multibyte", 6, 2, []string{"привет, ", "дунё! ", "salom"}},
		{"short", 4096, 30, []string{"hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			transport := newFakeTransport()
			c := newTestController(transport, tt.threshold, tt.cadence)

			res, err := runStream(t, c, deltas(tt.deltas...)...)
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}

			want := strings.Join(tt.deltas, "")
			if res.Text != want {
				t.Errorf("Text = %q, want %q", res.Text, want)
			}
			if got := finalState(transport); got != want {
				t.Errorf("user-visible text = %q, want %q", got, want)
			}
			// No applied slice may exceed the threshold. The placeholder
			// send is fixed copy, not sliced content, so only edits count.
			for _, op := range transport.ops {
				if op.Kind != "edit" {
					continue
				}
				if n := len([]rune(strings.TrimSuffix(op.Text, Cursor))); n > tt.threshold {
					t.Errorf("slice of %d runes exceeds threshold %d: %q", n, tt.threshold, op.Text)
				}
			}
		})
	}
}

func TestController_CadenceInvariant(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	c := newTestController(transport, 10, 3)

	if _, err := runStream(t, c, deltas(strings.Split(strings.Repeat("a", 26), "")...)...); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	var previews, pages int
	for _, op := range transport.ops {
		if op.Kind != "edit" {
			continue
		}
		switch {
		case strings.HasSuffix(op.Text, Cursor):
			previews++
		case op.Mode == RenderPlain:
			pages++
		}
	}
	// Each span of 10 one-rune deltas between size flushes yields
	// floor(10/3) = 3 preview edits; the trailing 6 deltas yield 2.
	if previews != 8 {
		t.Errorf("preview edits = %d, want 8", previews)
	}
	if pages != 2 {
		t.Errorf("size-flush commits = %d, want 2", pages)
	}
}

func TestController_AbortWithPartial(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	c := newTestController(transport, DefaultThreshold, DefaultCadence)

	chunks := append(deltas("Partial answer"), provider.StreamChunk{Err: provider.ErrProviderDown})
	res, err := runStream(t, c, chunks...)

	if err == nil || !errors.Is(err, provider.ErrProviderDown) {
		t.Fatalf("Run() error = %v, want provider failure", err)
	}
	// Partial useful output outranks a clean error message: the terminal
	// state is the partial text, and nothing is persisted.
	if res.Persist {
		t.Error("Persist = true, want false after provider failure")
	}
	if res.Text != "Partial answer" {
		t.Errorf("Text = %q", res.Text)
	}
	ids := transport.messageOrder()
	if got := transport.last[ids[0]]; got != "Partial answer" {
		t.Errorf("terminal message state = %q, want %q", got, "Partial answer")
	}
	for _, op := range transport.ops {
		if op.Keyboard {
			t.Errorf("keyboard attached on aborted session: %+v", op)
		}
	}
}

func TestController_ProviderErrorBeforeContent(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	c := newTestController(transport, DefaultThreshold, DefaultCadence)

	res, err := runStream(t, c, provider.StreamChunk{Err: provider.ErrProviderDown})
	if err == nil {
		t.Fatal("Run() error = nil, want provider failure")
	}
	if res.Persist || res.Text != "" {
		t.Errorf("result = %+v", res)
	}
	ids := transport.messageOrder()
	if got := transport.last[ids[0]]; got != "Something went wrong!" {
		t.Errorf("terminal message state = %q, want error notice", got)
	}
}

func TestController_EmptyStreamNeverLeavesPlaceholder(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	c := newTestController(transport, DefaultThreshold, DefaultCadence)

	_, err := runStream(t, c)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("Run() error = %v, want ErrEmptyResponse", err)
	}
	ids := transport.messageOrder()
	if got := transport.last[ids[0]]; got != "Something went wrong!" {
		t.Errorf("terminal message state = %q, want error notice", got)
	}
}

func TestController_FailedEditNeverDropsText(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	// First page commit fails; the slice must stay pending and be
	// committed on the next flush decision.
	transport.editErr[1] = errors.New("connection reset")
	c := newTestController(transport, 10, 100)

	res, err := runStream(t, c, deltas("abcdefghijklm", "nop")...)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := "abcdefghijklmnop"
	if res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
	if got := finalState(transport); got != want {
		t.Errorf("user-visible text = %q, want %q", got, want)
	}
}

func TestController_FinalFlushRetriesFailedSliceOnFreshPage(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	// The terminal edit of the placeholder fails; the slice must be
	// delivered on a fresh message instead of vanishing.
	transport.editErr[1] = errors.New("connection reset")
	c := newTestController(transport, DefaultThreshold, DefaultCadence)

	res, err := runStream(t, c, deltas("Hello, world!")...)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.Persist || res.Text != "Hello, world!" {
		t.Errorf("res = %+v", res)
	}

	ids := transport.messageOrder()
	if len(ids) != 2 {
		t.Fatalf("messages = %v, want placeholder plus retry page", ids)
	}
	if got := transport.last[ids[1]]; got != "Hello, world!" {
		t.Errorf("retry page text = %q", got)
	}

	var withKeyboard int
	for _, op := range transport.ops {
		if op.Kind == "edit" && op.Keyboard {
			withKeyboard++
		}
	}
	if withKeyboard != 1 {
		t.Errorf("edits with keyboard = %d, want 1", withKeyboard)
	}
}

func TestController_ExactBoundaryKeyboardOnLastPage(t *testing.T) {
	t.Parallel()
	transport := newFakeTransport()
	c := newTestController(transport, 5, 100)

	// The stream ends exactly on a page boundary; the keyboard must still
	// land on the last message.
	res, err := runStream(t, c, deltas("abcde", "fghij")...)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Text != "abcdefghij" {
		t.Errorf("Text = %q", res.Text)
	}

	var withKeyboard []transportOp
	for _, op := range transport.ops {
		if op.Kind == "edit" && op.Keyboard {
			withKeyboard = append(withKeyboard, op)
		}
	}
	if len(withKeyboard) != 1 {
		t.Fatalf("edits with keyboard = %+v, want exactly 1", withKeyboard)
	}
	ids := transport.messageOrder()
	if got := withKeyboard[0].MessageID; got != ids[len(ids)-1] {
		t.Errorf("keyboard on message %d, want last message %d", got, ids[len(ids)-1])
	}
}
