// Package server exposes the quiz over HTTP: the websocket endpoint, health,
// room lookup and join QR codes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scythe504/kartquiz-backend/internal/config"
	"github.com/scythe504/kartquiz-backend/internal/game"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	cfg      config.ServerConfig
	registry *game.Registry
	ws       http.Handler
	checks   map[string]HealthCheck
	logger   *zap.Logger

	httpServer *http.Server
}

// NewServer wires the routes. ws serves websocket upgrades on /ws.
func NewServer(cfg config.ServerConfig, registry *game.Registry, ws http.Handler, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		ws:       ws,
		checks:   make(map[string]HealthCheck),
		logger:   logger,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// AddHealthCheck includes a named dependency in /health.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Stop drains in-flight requests for up to the configured shutdown timeout.
// Hijacked websocket connections are closed by their own pumps.
func (s *Server) Stop() {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown incomplete", zap.Error(err))
	}
}
