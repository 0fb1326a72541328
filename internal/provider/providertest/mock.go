// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/javoxirone/bilagon-ai-bot/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set the Func fields to control behavior. Unset funcs panic on call.
// All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc   func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	StreamFunc     func(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error)
	ModelNameFunc  func() string
	TranscribeFunc func(ctx context.Context, filename string, audio []byte) (string, error)

	mu              sync.Mutex
	CompleteCalls   int
	StreamCalls     int
	TranscribeCalls int
}

// Complete delegates to CompleteFunc and tracks call count.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// Stream delegates to StreamFunc and tracks call count.
func (m *MockProvider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	m.mu.Lock()
	m.StreamCalls++
	m.mu.Unlock()
	return m.StreamFunc(ctx, req)
}

// ModelName delegates to ModelNameFunc.
func (m *MockProvider) ModelName() string {
	return m.ModelNameFunc()
}

// Transcribe delegates to TranscribeFunc and tracks call count.
func (m *MockProvider) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	m.mu.Lock()
	m.TranscribeCalls++
	m.mu.Unlock()
	return m.TranscribeFunc(ctx, filename, audio)
}

// ChunkStream returns a StreamFunc that emits the given chunks in order
// and then closes, honoring context cancellation.
func ChunkStream(chunks ...provider.StreamChunk) func(context.Context, provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	return func(ctx context.Context, _ provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
		ch := make(chan provider.StreamChunk)
		go func() {
			defer close(ch)
			for _, c := range chunks {
				select {
				case ch <- c:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch, nil
	}
}

// Interface guards.
var (
	_ provider.Provider    = (*MockProvider)(nil)
	_ provider.Transcriber = (*MockProvider)(nil)
)
