package http

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Server represents an HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a new HTTP server around the configured router.
func NewServer(cfg RouterConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Config.App.Port,
			Handler: router,
		},
		logger: cfg.Logger,
	}
}

// Start starts the HTTP server without blocking.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
