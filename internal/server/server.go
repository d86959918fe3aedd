// Package server exposes live editing sessions over HTTP.
//
// Each browser tab creates a session with POST /api/sessions and then drives
// it with small JSON requests. Rendered artifacts are fetched by long-polling
// GET /api/sessions/{id}/render?after=T, which returns as soon as a render
// newer than token T has been applied. GET / serves a minimal editor page
// that does exactly that.
package server

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/mermaidlive/pkg/observability"
	"github.com/matzehuels/mermaidlive/pkg/session"
)

const (
	// DefaultPollTimeout bounds how long a render long-poll waits.
	DefaultPollTimeout = 25 * time.Second

	// DefaultCleanupInterval is how often expired sessions are removed.
	DefaultCleanupInterval = time.Minute

	maxBodySize = 8 << 20
)

//go:embed index.html
var indexHTML []byte

// Config configures a Server.
type Config struct {
	// Store holds the sessions. Required.
	Store *session.Store

	// Session is the template for new sessions.
	Session session.Config

	// Stats, when set, is served at GET /api/stats.
	Stats *observability.Stats

	Logger          *log.Logger
	PollTimeout     time.Duration
	CleanupInterval time.Duration
}

// Server is the HTTP shell around a session store.
type Server struct {
	store   *session.Store
	tmpl    session.Config
	logger  *log.Logger
	poll    time.Duration
	cleanup time.Duration
	stats   *observability.Stats
	router  chi.Router
}

// New creates a server and registers its routes.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{
		store:   cfg.Store,
		tmpl:    cfg.Session,
		logger:  logger,
		poll:    cfg.PollTimeout,
		cleanup: cfg.CleanupInterval,
		stats:   cfg.Stats,
	}
	if s.poll <= 0 {
		s.poll = DefaultPollTimeout
	}
	if s.cleanup <= 0 {
		s.cleanup = DefaultCleanupInterval
	}
	if s.tmpl.Logger == nil {
		s.tmpl.Logger = logger
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	if s.stats != nil {
		r.Get("/api/stats", s.handleStats)
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/load", s.handleLoad)
			r.Put("/standalone", s.handleEditStandalone)
			r.Put("/document", s.handleEditDocument)
			r.Post("/select", s.handleSelect)
			r.Post("/mode", s.handleMode)
			r.Post("/view", s.handleView)
			r.Get("/render", s.handleRender)
			r.Get("/save", s.handleSave)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

// logRequests logs each request at debug level once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and closes every session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.store.Run(cleanupCtx, s.cleanup)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.store.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	// Closing the sessions first releases pending long-polls.
	_ = s.store.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
