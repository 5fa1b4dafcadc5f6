// Package httpapi serves the optional operations listener: Prometheus
// metrics, liveness and readiness probes and a read-only status summary.
// The ledger itself is only ever driven from the terminal.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/teller/internal/metrics"
	"github.com/tinoosan/teller/internal/service/account"
	"github.com/tinoosan/teller/internal/storage"
)

// Server wires the ops handlers and middleware using Chi.
type Server struct {
	accounts account.Service
	backend  storage.Adapter
	metrics  *metrics.Metrics
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the ops router. backend is probed by /readyz when it
// implements Ready(ctx); m may be nil, in which case /metrics is not mounted.
func New(accounts account.Service, backend storage.Adapter, m *metrics.Metrics, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(instrument(m))

	s := &Server{
		accounts: accounts,
		backend:  backend,
		metrics:  m,
		log:      logger,
		rt:       r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func (s *Server) routes() {
	if s.metrics != nil {
		s.rt.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Get("/status", s.status)
}
