package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server wraps the listener lifecycle so main stays declarative.
type Server struct {
	log *slog.Logger
	srv *http.Server
}

func NewServer(log *slog.Logger, addr string, handler http.Handler) *Server {
	return &Server{
		log: log,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until Stop is called or the listener fails. A regular
// shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve is Start on a caller-provided listener; tests use it to bind
// port 0.
func (s *Server) Serve(l net.Listener) error {
	s.log.Info("HTTP server listening", "addr", l.Addr().String())
	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests, then closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server stopping")
	return s.srv.Shutdown(ctx)
}
