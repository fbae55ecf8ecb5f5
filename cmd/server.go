package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type server struct {
	cfg config
	app *app
	srv *http.Server
	log *slog.Logger
}

func newServer(ctx context.Context, cfg config) *server {
	a := NewApp(AppOptions{
		Greeting: cfg.Greeting,
		Health:   cfg.Health,
	})

	return &server{
		cfg: cfg,
		app: a,
		srv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           a.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext: func(net.Listener) context.Context {
				return ctx
			},
		},
		log: slog.Default().With("component", "http-server"),
	}
}

// Listen binds the TCP listener. The startup line is only logged once the
// bind succeeded.
func (s *server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	s.log.Info(fmt.Sprintf("Example app listening on port %d!", s.cfg.Port), "port", s.cfg.Port, "addr", ln.Addr().String())

	return ln, nil
}

func (s *server) Serve(ln net.Listener) error {
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving HTTP requests: %w", err)
	}
	return nil
}

// Shutdown reports the instance as draining on /health, waits for the
// configured delay and then stops the HTTP server.
func (s *server) Shutdown() error {
	s.log.Debug("initiating app shutdown")

	s.app.InitiateShutdown()

	if s.cfg.ShutdownDelay > 0 {
		s.log.Debug("delaying server shutdown", "delay", s.cfg.ShutdownDelay)
		time.Sleep(s.cfg.ShutdownDelay)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.log.Debug("shutting down HTTP server")

	if err := s.srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	s.log.Debug("HTTP server is stopped")

	return nil
}
