// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package server is the HTTP surface of the conversion gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nicholasgasior/markitdown-server/internal/adapter"
	"github.com/nicholasgasior/markitdown-server/internal/auth"
	"github.com/nicholasgasior/markitdown-server/internal/config"
	"github.com/nicholasgasior/markitdown-server/internal/logging"
	"github.com/nicholasgasior/markitdown-server/internal/metrics"
	"github.com/nicholasgasior/markitdown-server/internal/params"
)

const (
	// MaxUploadBytes is the largest accepted upload, inclusive.
	MaxUploadBytes = 200 << 20

	// DefaultVersion is reported by /health when no release version is set.
	DefaultVersion = "0.1.0-dev"

	readHeaderTimeout      = 10 * time.Second
	defaultShutdownTimeout = 15 * time.Second
)

// Config holds everything a Server needs. Converter and Process are
// required.
type Config struct {
	Addr            string
	Version         string
	Process         config.Process
	Converter       adapter.Converter
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	ClientFactory   params.ClientFactory
	ShutdownTimeout time.Duration
}

// Server routes requests to the conversion handlers.
type Server struct {
	addr            string
	version         string
	defaults        config.Effective
	guard           *auth.Guard
	converter       adapter.Converter
	logger          *zap.Logger
	metrics         *metrics.Metrics
	clientFactory   params.ClientFactory
	shutdownTimeout time.Duration
	maxUploadBytes  int64
	router          chi.Router
}

// New builds a server from cfg.
func New(cfg Config) *Server {
	s := &Server{
		addr:            cfg.Addr,
		version:         cfg.Version,
		defaults:        cfg.Process.Defaults,
		guard:           auth.NewGuard(cfg.Process.APIKey),
		converter:       cfg.Converter,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		clientFactory:   cfg.ClientFactory,
		shutdownTimeout: cfg.ShutdownTimeout,
		maxUploadBytes:  MaxUploadBytes,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.clientFactory == nil {
		s.clientFactory = params.DefaultClientFactory
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = defaultShutdownTimeout
	}
	if s.version == "" {
		s.version = DefaultVersion
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		s.accessLog,
		s.recoverer,
	)

	r.Get("/", s.handle(s.root))
	r.Get("/health", s.handle(s.health))
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.guard.Middleware(s.writeError))
		r.Post("/convert", s.handle(s.convertUpload))
		r.Post("/convert_uri", s.handle(s.convertURI))
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	// In-flight requests outlive ctx until Shutdown gives up on them.
	baseCtx := context.WithoutCancel(ctx)
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	s.logger.Info("starting HTTP server",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("auth", s.guard.Enabled()),
	)
	logging.GoSafe(s.logger, "http-server", func() {
		errCh <- srv.Serve(listener)
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) error {
	_ = writeJSON(w, http.StatusOK, map[string]string{"message": "Hello from the MarkItDown Server!"})
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) error {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": s.version})
	return nil
}
