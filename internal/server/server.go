// Package server provides the HTTP API for Latent-FS.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/latentfs/internal/cluster"
	"github.com/hyperjump/latentfs/internal/config"
	"github.com/hyperjump/latentfs/internal/storage"
)

// Server is the HTTP server for the Latent-FS API.
type Server struct {
	store   *cluster.Store
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(store *cluster.Store, st storage.Storage, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		store:   store,
		storage: st,
		config:  cfg,
		logger:  logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ingest", s.handleIngest)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/cluster", s.handleCluster)
	r.Post("/api/v1/re-embed", s.handleReEmbed)
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
