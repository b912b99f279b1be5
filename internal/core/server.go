// Package core provides the API chassis for the FletoAds platform.
// It creates a chi router for the HTTP API and enforces cross-cutting
// concerns (security, logging, error handling, rate limiting) before
// requests reach domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fletoads/internal/config"
	"fletoads/internal/types"
)

// Server encapsulates all dependencies for the FletoAds API, allowing for
// easy injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config          *config.Config
	Logger          *slog.Logger
	Validator       *Validator
	SecurityService types.SecurityService
	Authenticator   Authenticator
	RateLimitStore  RateLimitStore
	HealthProbes    []HealthProbe

	// V1RouteRegistrars holds route registration callbacks for the /v1
	// namespace. Populated by the application entry point to avoid import
	// cycles between core and handler packages.
	V1RouteRegistrars []func(chi.Router)

	// closers run during Shutdown, last registered first.
	closers []func() error

	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. The caller is responsible for mounting routes
// (via MountRoutes) after construction; this separation allows tests to
// customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// RegisterCloser adds a cleanup function invoked during Shutdown.
// Closers run in reverse registration order.
func (s *Server) RegisterCloser(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Shutdown performs a graceful termination of server resources, closing
// registered resources (database pool, redis client) in reverse order.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.Logger.Error("error closing server resource", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return fmt.Errorf("closing server resources: %w", firstErr)
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
