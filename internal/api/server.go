package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/CedricEugeni/MoMentor/pkg/config"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// ServerOptions holds the HTTP timeouts
type ServerOptions struct {
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration // 런 생성은 종목 수백 개 히스토리 조회
	IdleTimeout   time.Duration
	ShutdownGrace time.Duration
}

// DefaultServerOptions returns timeouts sized for run generation
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  3 * time.Minute,
		IdleTimeout:   60 * time.Second,
		ShutdownGrace: 30 * time.Second,
	}
}

// Server serves the run API until its context ends
// ⭐ SSOT: API 서버 수명주기는 이 파일에서만
type Server struct {
	httpServer *http.Server
	opts       ServerOptions
	logger     *logger.Logger
	env        string
}

// New creates a server listening on cfg.Port
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return NewWithOptions(":"+cfg.Port, cfg.Env, DefaultServerOptions(), log, router)
}

// NewWithOptions creates a server with explicit address and timeouts
func NewWithOptions(addr, env string, opts ServerOptions, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		opts:   opts,
		logger: log,
		env:    env,
	}
}

// OnShutdown registers fn to run when shutdown starts.
// Hijacked connections (websocket streams) are not closed by net/http, so their owner must be registered here.
func (s *Server) OnShutdown(fn func()) {
	s.httpServer.RegisterOnShutdown(fn)
}

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for at most ShutdownGrace
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.WithFields(map[string]interface{}{
		"addr": ln.Addr().String(),
		"env":  s.env,
	}).Info("Starting API server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownGrace)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	s.logger.Info("API server stopped")
	return nil
}
