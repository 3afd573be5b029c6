// Package server provides the HTTP API for folio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mkrz/folio/internal/config"
	"github.com/mkrz/folio/internal/extract"
	"github.com/mkrz/folio/internal/session"
	"github.com/mkrz/folio/internal/storage"
)

// Server is the HTTP server for the folio API.
type Server struct {
	sessions  *session.Manager
	extractor *extract.Extractor
	store     storage.CursorStore
	library   *storage.Library
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	sessions *session.Manager,
	extractor *extract.Extractor,
	store storage.CursorStore,
	library *storage.Library,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		sessions:  sessions,
		extractor: extractor,
		store:     store,
		library:   library,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the API router. Exposed separately from Start so tests can
// drive handlers through httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/users/{user}/book", s.handleUpload)
	r.Post("/api/v1/users/{user}/nav", s.handleNavigate)
	r.Get("/api/v1/users/{user}/page", s.handlePage)
	r.Delete("/api/v1/users/{user}", s.handleReset)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
