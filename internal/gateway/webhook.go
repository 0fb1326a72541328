package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/javoxirone/bilagon-ai-bot/internal/bot"
	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

// secretTokenHeader is set by Telegram on every webhook delivery when a
// secret token was registered with setWebhook.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxWebhookBody caps update payload reads (1 MiB).
const maxWebhookBody = 1 << 20

// handleWebhook validates the secret token, decodes the update, and
// hands it to the router. Telegram retries on non-2xx, so transient
// inbox pressure maps to 429 while malformed payloads are acknowledged
// to avoid redelivery loops.
func (s *Server) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.WebhookSecret != "" {
			token := r.Header.Get(secretTokenHeader)
			if subtle.ConstantTimeCompare([]byte(s.config.WebhookSecret), []byte(token)) != 1 {
				s.logger.Warn("webhook: secret token mismatch", "remote", r.RemoteAddr)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "read failed", http.StatusBadRequest)
			return
		}

		var upd telegram.Update
		if err := json.Unmarshal(body, &upd); err != nil {
			s.logger.Warn("webhook: invalid update JSON", "error", err)
			w.WriteHeader(http.StatusOK)
			return
		}

		if err := s.submit.Submit(upd); err != nil {
			if errors.Is(err, bot.ErrInboxFull) {
				http.Error(w, "busy", http.StatusTooManyRequests)
				return
			}
			s.logger.Error("webhook: submit failed", "update_id", upd.UpdateID, "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
