package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kmadira/ledgerstream/internal/config"
)

// Server wraps http.Server with the lifecycle the rest of main relies on.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds a Server from the configured timeouts. WriteTimeout applies to
// the whole server; the event stream handler lifts it per request so
// long-lived connections are not cut off.
func New(logger *slog.Logger, cfg config.HTTPConfig, handler http.Handler) *Server {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		logger:     logger,
	}
}

// Start begins listening for HTTP traffic. It blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.httpServer.ReadTimeout,
		"write_timeout", s.httpServer.WriteTimeout,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
// Open event streams never go idle, so they hold Shutdown until the context
// expires; the caller's deadline bounds how long they are allowed to linger.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	err := s.httpServer.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("shutdown deadline reached, closing remaining connections")
		return s.httpServer.Close()
	}
	return err
}
