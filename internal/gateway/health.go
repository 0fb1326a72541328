package gateway

import (
	"encoding/json"
	"net/http"
)

// handleHealth reports liveness. It carries no dependency checks; the
// process being able to answer is the signal.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
