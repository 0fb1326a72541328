package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessageEnvelope(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": Message{MessageID: 7, Text: "hi"},
		})
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL)
	msg, err := c.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "hi"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.MessageID != 7 {
		t.Errorf("message id = %d", msg.MessageID)
	}
	if gotPath != "/bottok/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["chat_id"].(float64) != 1 || gotBody["text"] != "hi" {
		t.Errorf("body = %v", gotBody)
	}
	// Zero-valued optional fields stay off the wire.
	if _, ok := gotBody["parse_mode"]; ok {
		t.Error("empty parse_mode serialized")
	}
}

func TestAPIErrorMapping(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  429,
			"description": "Too Many Requests: retry later",
			"parameters":  map[string]any{"retry_after": 14},
		})
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL)
	_, err := c.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err type = %T", err)
	}
	if apiErr.Code != 429 || apiErr.RetryAfter != 14 {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if RetryAfter(err) != 14 {
		t.Errorf("RetryAfter = %d", RetryAfter(err))
	}
}

func TestIsNotModified(t *testing.T) {
	t.Parallel()

	notMod := &APIError{Code: 400, Description: "Bad Request: message is not modified"}
	if !IsNotModified(notMod) {
		t.Error("not-modified error missed")
	}
	if IsNotModified(&APIError{Code: 400, Description: "Bad Request: message to edit not found"}) {
		t.Error("unrelated 400 classified as not-modified")
	}
	if IsNotModified(errors.New("plain")) {
		t.Error("plain error classified as not-modified")
	}
	if RetryAfter(notMod) != 0 {
		t.Error("RetryAfter nonzero for a 400")
	}
}

func TestErrorsDoNotLeakToken(t *testing.T) {
	t.Parallel()

	c := NewClient("secret-token", "http://127.0.0.1:0")
	_, err := c.GetMe(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("token leaked in error: %v", err)
	}

	_, err = c.DownloadFile(context.Background(), "voice/1.oga")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("token leaked in download error: %v", err)
	}
}

func TestDownloadFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file/bottok/voice/1.oga" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL)
	data, err := c.DownloadFile(context.Background(), "voice/1.oga")
	if err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("data = %q", data)
	}

	if _, err := c.DownloadFile(context.Background(), "missing"); err == nil {
		t.Error("missing file downloaded without error")
	}
}
