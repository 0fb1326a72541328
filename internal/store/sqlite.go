package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/provider"
)

// SQLiteStore implements ConversationStore and UserStore over one SQLite
// database file.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface guards.
var (
	_ ConversationStore = (*SQLiteStore)(nil)
	_ UserStore         = (*SQLiteStore)(nil)
)

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendTurn adds one turn to the chat's history.
func (s *SQLiteStore) AppendTurn(ctx context.Context, chatID int64, role provider.MessageRole, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (chat_id, seq, role, content)
		VALUES (?, COALESCE((SELECT MAX(seq) FROM turns WHERE chat_id = ?), 0) + 1, ?, ?)`,
		chatID, chatID, string(role), content,
	)
	if err != nil {
		return fmt.Errorf("store: append turn: %w", err)
	}
	return nil
}

// ListTurns returns the chat's most recent turns in chronological order.
func (s *SQLiteStore) ListTurns(ctx context.Context, chatID int64, limit int) ([]provider.LLMMessage, error) {
	query := `
		SELECT role, content FROM turns
		WHERE chat_id = ?
		ORDER BY seq DESC`
	args := []any{chatID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []provider.LLMMessage
	for rows.Next() {
		var role string
		var msg provider.LLMMessage
		if err := rows.Scan(&role, &msg.Content); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		msg.Role = provider.MessageRole(role)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list turns rows: %w", err)
	}

	// Query is newest-first so LIMIT keeps the tail; reverse back to
	// chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Reset deletes the chat's history.
func (s *SQLiteStore) Reset(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM turns WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("store: reset chat: %w", err)
	}
	return nil
}

// PruneIdle removes history for chats that have been silent longer than keep.
func (s *SQLiteStore) PruneIdle(ctx context.Context, keep time.Duration) (int64, error) {
	cutoff := time.Now().Add(-keep).UTC().Format("2006-01-02T15:04:05.000Z")

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM turns WHERE chat_id IN (
			SELECT chat_id FROM turns GROUP BY chat_id HAVING MAX(created_at) < ?
		)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: prune idle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: prune idle count: %w", err)
	}
	return n, nil
}

// Upsert registers the user or refreshes their profile fields, keeping an
// existing language preference.
func (s *SQLiteStore) Upsert(ctx context.Context, u User) error {
	lang := u.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, first_name, last_name, username, language)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name  = excluded.last_name,
			username   = excluded.username`,
		u.ID, u.FirstName, u.LastName, u.Username, lang,
	)
	if err != nil {
		return fmt.Errorf("store: upsert user: %w", err)
	}
	return nil
}

// Language returns the user's preferred language, or DefaultLanguage for
// unknown users.
func (s *SQLiteStore) Language(ctx context.Context, userID int64) (string, error) {
	var lang string
	err := s.db.QueryRowContext(ctx,
		"SELECT language FROM users WHERE user_id = ?", userID,
	).Scan(&lang)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultLanguage, nil
		}
		return "", fmt.Errorf("store: get language: %w", err)
	}
	return lang, nil
}

// SetLanguage records the user's language preference.
func (s *SQLiteStore) SetLanguage(ctx context.Context, userID int64, lang string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, language) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET language = excluded.language`,
		userID, lang,
	)
	if err != nil {
		return fmt.Errorf("store: set language: %w", err)
	}
	return nil
}
