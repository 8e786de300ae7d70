package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx)
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	// Services
	searchService   driving.SearchService
	indexingService driving.IndexingService
	eventListener   driving.EventListener
	tokenValidator  driven.TokenValidator

	// Infrastructure
	engine      Pinger // index engine health check
	db          Pinger // PostgreSQL health check (optional)
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	searchService driving.SearchService,
	indexingService driving.IndexingService,
	eventListener driving.EventListener,
	tokenValidator driven.TokenValidator,
	engine Pinger,
	db Pinger, // can be nil
	redisClient Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		searchService:   searchService,
		indexingService: indexingService,
		eventListener:   eventListener,
		tokenValidator:  tokenValidator,
		engine:          engine,
		db:              db,
		redisClient:     redisClient,
	}

	s.setupRoutes()

	var h http.Handler = s.router
	if len(cfg.AllowedOrigins) > 0 {
		h = NewCORSMiddleware(cfg.AllowedOrigins).Handler(h)
	}
	h = NewLoggingMiddleware(logger).Handler(h)
	h = NewRecoveryMiddleware(logger).Handler(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped request handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.tokenValidator)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleOpenAPI)

	// Search (guest when no token is given)
	s.router.Handle("GET /api/v1/search",
		authMiddleware.OptionalAuth(http.HandlerFunc(s.handleSearchRaw)))
	s.router.Handle("POST /api/v1/search",
		authMiddleware.OptionalAuth(http.HandlerFunc(s.handleSearch)))

	// Indexing jobs (admin only)
	s.router.Handle("GET /api/v1/index/jobs", admin(s.handleListJobs))
	s.router.Handle("GET /api/v1/index/jobs/{id}", admin(s.handleGetJob))
	s.router.Handle("POST /api/v1/index/jobs/{id}/cancel", admin(s.handleCancelJob))
	s.router.Handle("POST /api/v1/index", admin(s.handleIndexUnits))
	s.router.Handle("POST /api/v1/index/scope", admin(s.handleIndexScope))
	s.router.Handle("POST /api/v1/index/all", admin(s.handleIndexAll))

	// Index maintenance (admin only)
	s.router.Handle("DELETE /api/v1/index/unit", admin(s.handleDeleteUnit))
	s.router.Handle("DELETE /api/v1/index/scope", admin(s.handleDeleteScope))
	s.router.Handle("DELETE /api/v1/index", admin(s.handleDeleteAll))

	// Host content notifications
	s.router.Handle("POST /api/v1/events", admin(s.handleEvent))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
