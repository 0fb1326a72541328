// Package store persists conversation history and user preferences.
package store

import (
	"context"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/provider"
)

// DefaultLanguage is assumed for users who never picked one.
const DefaultLanguage = "uz"

// User is a registered bot user.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Language  string
}

// ConversationStore owns the per-chat dialogue history the provider
// context is built from.
type ConversationStore interface {
	// AppendTurn adds one turn to the chat's history.
	AppendTurn(ctx context.Context, chatID int64, role provider.MessageRole, content string) error

	// ListTurns returns the chat's most recent turns in chronological
	// order. limit <= 0 returns everything.
	ListTurns(ctx context.Context, chatID int64, limit int) ([]provider.LLMMessage, error)

	// Reset deletes the chat's history, starting a fresh conversation.
	Reset(ctx context.Context, chatID int64) error

	// PruneIdle removes history for chats with no activity within keep.
	// Returns the number of deleted turns.
	PruneIdle(ctx context.Context, keep time.Duration) (int64, error)
}

// UserStore owns user records and their language preference.
type UserStore interface {
	// Upsert registers the user or refreshes their profile fields.
	// The language preference of an existing user is kept.
	Upsert(ctx context.Context, u User) error

	// Language returns the user's preferred language tag, or
	// DefaultLanguage for unknown users.
	Language(ctx context.Context, userID int64) (string, error)

	// SetLanguage records the user's language preference.
	SetLanguage(ctx context.Context, userID int64, lang string) error
}
