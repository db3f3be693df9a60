// Package httpserver wraps net/http serving in the lifecycle Service
// contract so the system manager owns startup and graceful shutdown.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aim840912/haode-api/pkg/logger"
)

// Server serves the REST API on a single listener.
type Server struct {
	srv *http.Server
	log *logger.Logger

	errCh chan error
}

func New(addr string, handler http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewDefault("httpserver")
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		log:   log,
		errCh: make(chan error, 1),
	}
}

func (s *Server) Name() string { return "http" }

// Start binds the listener synchronously so port conflicts surface as
// a start error, then serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
	}()
	s.log.WithField("addr", s.srv.Addr).Info("http server listening")
	return nil
}

// Stop drains in-flight requests, bounded by the caller's context.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	select {
	case err := <-s.errCh:
		return err
	default:
		return nil
	}
}

// Err reports a serve failure after a successful Start, if any.
func (s *Server) Err() <-chan error {
	return s.errCh
}
