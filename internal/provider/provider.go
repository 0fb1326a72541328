// Package provider defines the interface between the bot and an LLM backend.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live in separate packages (e.g., internal/openai).
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Stream sends a completion request and returns a channel of chunks.
	// Initial connection errors are returned directly. Mid-stream errors
	// are delivered via StreamChunk.Err.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// Transcriber converts an audio recording into text. Implemented by
// backends that expose a speech-to-text endpoint (e.g., Whisper).
type Transcriber interface {
	// Transcribe returns the spoken text of the given audio payload.
	// filename carries the original extension so the backend can pick
	// a decoder (e.g., "voice.ogg").
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}
