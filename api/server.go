// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the quote engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirkas-siivous/kirkas/quote"
)

// Options configures a Server.
type Options struct {
	// Session is the template for live sessions and stateless lookups; its
	// Geocoder is required.
	Session quote.SessionOptions

	// SessionTTL is how long an untouched session is kept
	SessionTTL time.Duration

	Logger *slog.Logger
}

// Server serves the quote API.
type Server struct {
	resolver  *quote.Resolver
	suggester *quote.Suggester
	sessions  *SessionStore
	logger    *slog.Logger
	router    *gin.Engine
}

// NewServer creates a Server and its routes.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Session.Logger == nil {
		opts.Session.Logger = opts.Logger
	}

	s := &Server{
		resolver: quote.NewResolver(quote.ResolverOptions{
			Geocoder:  opts.Session.Geocoder,
			Policy:    opts.Session.Policy,
			Countries: opts.Session.Countries,
			Timeout:   opts.Session.Timeout,
			Logger:    opts.Session.Logger,
		}),
		suggester: quote.NewSuggester(quote.SuggesterOptions{
			Geocoder: opts.Session.Geocoder,
			Timeout:  opts.Session.Timeout,
			Logger:   opts.Session.Logger,
		}),
		sessions: NewSessionStore(opts.Session, opts.SessionTTL),
		logger:   opts.Logger,
	}

	s.router = s.routes()

	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/options", s.options)
	api.GET("/estimate", s.estimate)
	api.GET("/address/suggest", s.suggest)
	api.GET("/address/resolve", s.resolve)
	api.POST("/address/locate", s.locate)

	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id", s.getSession)
	api.PATCH("/sessions/:id", s.patchSession)
	api.POST("/sessions/:id/locate", s.locateSession)
	api.GET("/sessions/:id/events", s.sessionEvents)
	api.DELETE("/sessions/:id", s.deleteSession)

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the live session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sessions.Janitor(ctx)

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down")

	err := srv.Shutdown(shutdownCtx)
	s.Close()

	return err
}

// Close releases every session.
func (s *Server) Close() {
	s.sessions.Close()
	s.resolver.Close()
	s.suggester.Close()
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.LogAttrs(c.Request.Context(), slog.LevelInfo, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
