// Package server exposes the assistant and the task store over HTTP.
//
// Routes:
//
//	POST   /api/chat                  stateless completion proxy
//	POST   /api/session/messages      full pipeline on the server session
//	GET    /api/tasks                 task forest
//	POST   /api/tasks                 create a root task
//	GET    /api/tasks/{id}            one task with its subtree
//	PATCH  /api/tasks/{id}            update fields
//	DELETE /api/tasks/{id}            delete with subtree
//	POST   /api/tasks/{id}/toggle     flip completion
//	POST   /api/tasks/{id}/subtasks   append a subtask
//	GET    /api/stats                 completion counts
//	GET    /api/calendar?date=...     tasks scheduled on a day
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/nibzard/astrotask/internal/chat"
	"github.com/nibzard/astrotask/internal/session"
)

// Server serves one session and the completion proxy.
type Server struct {
	sess   *session.Session
	client chat.Client
	logger *log.Logger
	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a server around sess. client backs the stateless proxy and
// is usually the same client the session uses.
func New(sess *session.Session, client chat.Client, opts ...Option) (*Server, error) {
	if sess == nil {
		return nil, errors.New("server requires a session")
	}
	if client == nil {
		return nil, errors.New("server requires a chat client")
	}
	s := &Server{
		sess:   sess,
		client: client,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = mux.NewRouter()
	RegisterRoutes(s.router, s)
	s.router.Use(s.logRequests)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr, "session", s.sess.ID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
