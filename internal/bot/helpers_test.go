package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/provider"
	"github.com/javoxirone/bilagon-ai-bot/internal/provider/providertest"
	"github.com/javoxirone/bilagon-ai-bot/internal/store"
	"github.com/javoxirone/bilagon-ai-bot/internal/stream"
	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

const testToken = "test-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// apiCall records one Bot API invocation received by the fake server.
type apiCall struct {
	Method string
	Body   map[string]any
}

// fakeBotAPI is an httptest-backed Telegram Bot API double. Every method
// succeeds; sendMessage allocates message ids starting at 100.
type fakeBotAPI struct {
	srv *httptest.Server

	mu     sync.Mutex
	calls  []apiCall
	nextID int
	files  map[string][]byte
}

func newFakeBotAPI(t *testing.T) *fakeBotAPI {
	t.Helper()
	f := &fakeBotAPI{nextID: 100, files: map[string][]byte{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bot"+testToken+"/{method}", f.handleMethod)
	mux.HandleFunc("GET /file/bot"+testToken+"/", f.handleDownload)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBotAPI) client() *telegram.Client {
	return telegram.NewClient(testToken, f.srv.URL)
}

func (f *fakeBotAPI) addFile(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
}

func (f *fakeBotAPI) handleMethod(w http.ResponseWriter, r *http.Request) {
	method := r.PathValue("method")
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Body: body})
	id := f.nextID
	if method == "sendMessage" {
		f.nextID++
	}
	f.mu.Unlock()

	var result any
	switch method {
	case "sendMessage":
		result = telegram.Message{MessageID: id, Text: asString(body["text"])}
	case "editMessageText":
		result = telegram.Message{MessageID: int(asFloat(body["message_id"])), Text: asString(body["text"])}
	case "getFile":
		fileID := asString(body["file_id"])
		result = telegram.File{FileID: fileID, FilePath: "files/" + fileID}
	default:
		result = true
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeBotAPI) handleDownload(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/file/bot"+testToken+"/")
	f.mu.Lock()
	data, ok := f.files[path]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

// callsTo returns the bodies of every call to the given method.
func (f *fakeBotAPI) callsTo(method string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c.Body)
		}
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	n, _ := v.(float64)
	return n
}

// memStore is an in-memory ConversationStore + UserStore.
type memStore struct {
	mu    sync.Mutex
	turns map[int64][]provider.LLMMessage
	users map[int64]store.User
}

func newMemStore() *memStore {
	return &memStore{
		turns: map[int64][]provider.LLMMessage{},
		users: map[int64]store.User{},
	}
}

func (m *memStore) AppendTurn(_ context.Context, chatID int64, role provider.MessageRole, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[chatID] = append(m.turns[chatID], provider.LLMMessage{Role: role, Content: content})
	return nil
}

func (m *memStore) ListTurns(_ context.Context, chatID int64, limit int) ([]provider.LLMMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.turns[chatID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]provider.LLMMessage(nil), turns...), nil
}

func (m *memStore) Reset(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, chatID)
	return nil
}

func (m *memStore) PruneIdle(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func (m *memStore) Upsert(_ context.Context, u store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.ID]; ok {
		u.Language = existing.Language
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) Language(_ context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok && u.Language != "" {
		return u.Language, nil
	}
	return store.DefaultLanguage, nil
}

func (m *memStore) SetLanguage(_ context.Context, userID int64, lang string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.ID = userID
	u.Language = lang
	m.users[userID] = u
	return nil
}

func (m *memStore) turnCount(chatID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns[chatID])
}

// newTestHandler wires a Handler against the fake API with in-memory
// stores. The returned mock provider starts unset; tests set StreamFunc.
func newTestHandler(t *testing.T, api *fakeBotAPI) (*Handler, *memStore, *providertest.MockProvider) {
	t.Helper()
	mem := newMemStore()
	mock := &providertest.MockProvider{}
	client := api.client()
	ctrl := stream.NewController(stream.ControllerOptions{
		Transport: stream.NewTelegramTransport(client),
		Logger:    discardLogger(),
	})
	h, err := NewHandler(HandlerConfig{
		API:         client,
		Provider:    mock,
		Transcriber: mock,
		Turns:       mem,
		Users:       mem,
		Controller:  ctrl,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, mem, mock
}

func textUpdate(chatID, userID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: 10,
			From:      &telegram.User{ID: userID, FirstName: "Test"},
			Chat:      telegram.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}
