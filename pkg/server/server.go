package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/chproxy/pkg/proxy"
)

// Options configures the underlying http.Server.
type Options struct {
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *slog.Logger
}

// Server is an HTTP listener with a two-step lifecycle: Listen binds the
// socket so bind failures surface at startup, Serve runs until the context
// is cancelled and then shuts down. Requests still in flight at shutdown are
// aborted through their context rather than drained.
type Server struct {
	name    string
	addr    string
	options Options
	logger  *slog.Logger

	// requestCtx is the parent of every request context; abort cancels it.
	requestCtx context.Context
	abort      context.CancelFunc

	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server named name (used in logs) for handler on addr.
func New(name, addr string, handler http.Handler, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	requestCtx, abort := context.WithCancel(context.Background())

	return &Server{
		name:       name,
		addr:       addr,
		options:    opts,
		logger:     logger.With("component", "server", "server", name),
		requestCtx: requestCtx,
		abort:      abort,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			IdleTimeout:       opts.IdleTimeout,
			BaseContext:       func(net.Listener) context.Context { return requestCtx },
		},
	}
}

// Listen binds the listening socket. It returns a *proxy.TransportError on
// failure.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("%s server is already listening", s.name)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return &proxy.TransportError{Op: "listen", Addr: s.addr, Err: err}
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then shuts down within
// ShutdownTimeout. It calls Listen first if that has not happened yet.
// A cancelled context is not an error.
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("%s server is already running", s.name)
	}
	s.isRunning = true
	ln := s.listener
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- &proxy.TransportError{Op: "accept", Addr: ln.Addr().String(), Err: err}
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		_ = s.Shutdown(context.Background())
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown stops accepting connections, cancels the context of every
// in-flight request and waits up to ShutdownTimeout for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.abort()

		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()

		if !running {
			s.mu.Lock()
			if s.listener != nil {
				_ = s.listener.Close()
			}
			s.mu.Unlock()
			return
		}

		timeout := s.options.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		s.logger.Info("shutting down", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			_ = s.httpServer.Close()
			shutdownErr = fmt.Errorf("%s server shutdown error: %w", s.name, err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
