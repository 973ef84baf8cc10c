// Package status serves a small operational HTTP API: liveness, database
// health and live navigation sessions.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sessions reports the number of live navigation sessions.
type Sessions interface {
	Len() int
}

// Jobs lists running background jobs.
type Jobs interface {
	List() []string
}

type Server struct {
	addr     string
	db       Pinger
	sessions Sessions
	jobs     Jobs
	started  time.Time
}

func New(addr string, db Pinger, sessions Sessions, jobs Jobs) *Server {
	return &Server{addr: addr, db: db, sessions: sessions, jobs: jobs, started: time.Now()}
}

// Handler builds the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/livez"))

	r.Get("/healthz", s.health)
	r.Get("/sessions", s.sessionsInfo)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) sessionsInfo(w http.ResponseWriter, r *http.Request) {
	var jobs []string
	if s.jobs != nil {
		jobs = s.jobs.List()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.sessions.Len(),
		"jobs":     jobs,
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("Status server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write status response")
	}
}
