package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const readyTimeout = 800 * time.Millisecond

type statusResponse struct {
	Accounts int    `json:"accounts"`
	Total    string `json:"total"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// readyz probes the storage backend when it can be pinged. The flat-file
// backend has nothing to ping and is always ready.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	type readyIf interface{ Ready(context.Context) error }
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if rc, ok := s.backend.(readyIf); ok {
		if err := rc.Ready(ctx); err != nil {
			s.log.Warn("readiness probe failed", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	ov, err := s.accounts.Overview(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Accounts: ov.Count, Total: ov.Total.String()})
}

// writeJSON sends v with the given status. Encoding failures can only be logged
// once the header is out.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", "err", err)
	}
}
