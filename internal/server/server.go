// Package server provides the HTTP API for passage.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/passage/internal/answer"
	"github.com/hyperjump/passage/internal/config"
	"github.com/hyperjump/passage/internal/index"
	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/storage"
)

// Searcher returns ranked passages for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.Hit, error)
}

// Asker answers questions from retrieved passages.
type Asker interface {
	Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error)
	AskStream(ctx context.Context, req models.AskRequest) (*answer.Pending, error)
}

// Server is the HTTP server for the passage API.
type Server struct {
	index     *index.Index
	searcher  Searcher
	asker     Asker
	catalog   storage.Catalog
	diskPaths []string
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithCatalog enables /api/v1/sources and run history in status.
func WithCatalog(c storage.Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

// WithDiskPaths sets the files and directories counted as disk usage in status.
func WithDiskPaths(paths ...string) Option {
	return func(s *Server) {
		s.diskPaths = paths
	}
}

// NewServer creates a server over a loaded index.
func NewServer(
	idx *index.Index,
	searcher Searcher,
	asker Asker,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		index:    idx,
		searcher: searcher,
		asker:    asker,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	timeout := 60 * time.Second
	if s.config != nil && s.config.RequestTimeoutSecs > 0 {
		timeout = time.Duration(s.config.RequestTimeoutSecs) * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/ask", s.handleAsk)
		r.Get("/chunks/{id}", s.handleGetChunk)
		r.Get("/sources", s.handleSources)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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
