// Package server runs the HTTP API with signal-driven graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/strategy-canvas/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining and shutdown hooks.
const DefaultShutdownTimeout = 30 * time.Second

// ConfigReloadFunc reloads configuration on SIGHUP.
type ConfigReloadFunc func() error

// ShutdownHook runs after the listener stops, in registration order.
// Hooks flush canvases, close stores and stop the event bus.
type ShutdownHook func(ctx context.Context) error

// Options tunes a GracefulServer. Zero values take the defaults, except
// WriteTimeout where zero means no limit.
type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	TLSConfig       *tls.Config // serve HTTPS when set
	Logger          logging.Logger
}

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error

	mu             sync.RWMutex
	configReloadFn ConfigReloadFunc
	hooks          []ShutdownHook
}

// NewGracefulServer creates a server for handler on addr.
func NewGracefulServer(addr string, handler http.Handler, opts Options) *GracefulServer {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 120 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
			MaxHeaderBytes:    1 << 20,
			TLSConfig:         opts.TLSConfig,
		},
		logger:          logging.OrNop(opts.Logger).With(logging.Component("server")),
		shutdownTimeout: opts.ShutdownTimeout,
		shutdownCh:      make(chan struct{}),
	}
}

// Addr is the configured listen address.
func (gs *GracefulServer) Addr() string {
	return gs.server.Addr
}

// OnShutdown registers a hook run during Shutdown.
func (gs *GracefulServer) OnShutdown(hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, hook)
}

// Run listens on the configured address and serves until ctx is cancelled
// or SIGINT/SIGTERM arrives, then shuts down. SIGHUP reloads config.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	if gs.server.TLSConfig != nil {
		ln = tls.NewListener(ln, gs.server.TLSConfig)
	}

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("starting HTTP server",
			logging.String("addr", ln.Addr().String()),
			logging.Bool("tls", gs.server.TLSConfig != nil))
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	for {
		select {
		case err, ok := <-errCh:
			if ok {
				_ = gs.Shutdown(gs.shutdownTimeout)
				return err
			}
			return gs.Shutdown(gs.shutdownTimeout)
		case <-ctx.Done():
			gs.logger.Info("context done, starting graceful shutdown")
			return gs.Shutdown(gs.shutdownTimeout)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				gs.logger.Info("received SIGHUP, reloading configuration")
				_ = gs.ReloadConfig()
				continue
			}
			gs.logger.Info("received signal, starting graceful shutdown", logging.String("signal", sig.String()))
			return gs.Shutdown(gs.shutdownTimeout)
		case <-gs.shutdownCh:
			return gs.shutdownErr
		}
	}
}

// Shutdown stops accepting connections, drains in-flight requests and runs
// the shutdown hooks. Later calls return the first call's result.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	gs.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.String("timeout", timeout.String()))

		var errs []error
		if err := gs.server.Shutdown(ctx); err != nil {
			gs.logger.Error("http shutdown failed", logging.Error(err))
			errs = append(errs, err)
		}

		gs.mu.RLock()
		hooks := append([]ShutdownHook(nil), gs.hooks...)
		gs.mu.RUnlock()
		for _, hook := range hooks {
			if err := hook(ctx); err != nil {
				gs.logger.Error("shutdown hook failed", logging.Error(err))
				errs = append(errs, err)
			}
		}

		gs.shutdownErr = errors.Join(errs...)
		if gs.shutdownErr == nil {
			gs.logger.Info("server shutdown complete")
		}
		close(gs.shutdownCh)
	})
	<-gs.shutdownCh
	return gs.shutdownErr
}

// IsShuttingDown reports whether Shutdown has finished.
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel closes once shutdown completes.
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetConfigReloadFunc sets the function to call when configuration reload is triggered
func (gs *GracefulServer) SetConfigReloadFunc(fn ConfigReloadFunc) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.configReloadFn = fn
}

// ReloadConfig triggers a configuration reload
func (gs *GracefulServer) ReloadConfig() error {
	gs.mu.RLock()
	reloadFn := gs.configReloadFn
	gs.mu.RUnlock()

	if reloadFn == nil {
		gs.logger.Warn("configuration reload requested, but no reload function configured")
		return nil
	}

	if err := reloadFn(); err != nil {
		gs.logger.Error("configuration reload failed", logging.Error(err))
		return err
	}

	gs.logger.Info("configuration reload complete")
	return nil
}
