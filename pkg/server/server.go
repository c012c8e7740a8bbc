// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the article pipeline over HTTP.
//
//	POST /generate-article   {"query": "..."}
//	GET  /articles           recent articles (?limit=)
//	GET  /articles/{id}      one article
//	GET  /health
//	GET  /metrics            when metrics are enabled
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/newsmind/pkg/newsroom"
	"github.com/kadirpekel/newsmind/pkg/observability"
	"github.com/kadirpekel/newsmind/pkg/ratelimit"
	"github.com/kadirpekel/newsmind/pkg/store"
)

// Config configures the HTTP server.
type Config struct {
	// Address is host:port to listen on.
	Address string

	Generator newsroom.Generator

	// Articles backs the /articles endpoints; nil disables them.
	Articles store.Store

	Tracer  *observability.Tracer
	Metrics *observability.Metrics

	// RateLimiter bounds /generate-article calls per client IP; nil
	// disables limiting.
	RateLimiter *ratelimit.Limiter

	// Version is reported by /health when set.
	Version string

	// MetricsPath defaults to "/metrics".
	MetricsPath string

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration
}

// Server is the NewsMind HTTP server.
type Server struct {
	cfg    Config
	server *http.Server
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = observability.DefaultMetricsPath
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{cfg: cfg}
	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Article generation runs several model calls; no write timeout.
		IdleTimeout: 2 * time.Minute,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(s.cfg.Tracer, s.cfg.Metrics))
	r.Use(corsMiddleware)

	r.With(ratelimit.Middleware(ratelimit.MiddlewareConfig{
		Limiter:   s.cfg.RateLimiter,
		OnLimited: writeRateLimited,
	})).Post("/generate-article", s.handleGenerateArticle)
	r.Get("/health", s.handleHealth)

	if s.cfg.Articles != nil {
		r.Get("/articles", s.handleListArticles)
		r.Get("/articles/{id}", s.handleGetArticle)
	}

	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, s.cfg.MetricsPath, s.cfg.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found", "No route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not allowed on "+r.URL.Path)
	})

	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "address", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return <-errCh
}
