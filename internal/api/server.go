package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/adoptimizer/internal/config"
	"github.com/ignite/adoptimizer/internal/service/audit"
)

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, svc *audit.Service, health *HealthChecker, maxUploadBytes int64) *Server {
	audits := NewAuditHandler(svc, maxUploadBytes)
	return &Server{
		config:  cfg,
		handler: SetupRoutes(audits, health, cfg.AllowedOrigins),
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Uploads are parsed in memory; the engine runs inside the request.
		ReadTimeout:       2 * time.Minute,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
