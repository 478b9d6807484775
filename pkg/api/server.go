// Package api exposes the admin HTTP surface: rule management, on-demand
// checks, violation history, templates, subscriptions, and aggregate stats.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	ListenAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

// Server wraps the HTTP server hosting the API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an API server around the given handlers.
func NewServer(cfg ServerConfig, h *Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      NewRouter(h, logger),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger.With("component", "api"),
	}
}

// NewRouter builds the gin router with all routes registered.
func NewRouter(h *Handlers, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/users/:username/limits", h.GetRules)
		v1.PUT("/users/:username/limits", h.SetRule)
		v1.DELETE("/users/:username/limits/:kind", h.DeleteRule)
		v1.GET("/users/:username/check", h.CheckUser)
		v1.GET("/users/:username/violations", h.GetViolations)
		v1.POST("/users/:username/templates/:id", h.ApplyTemplate)
		v1.GET("/users/:username/subscriptions/:kind", h.GetSubscriptions)
		v1.POST("/users/:username/subscriptions", h.SaveSubscription)

		v1.POST("/violations/:id/resolve", h.ResolveViolation)
		v1.GET("/templates", h.GetTemplates)
		v1.GET("/limits/stats", h.GetStats)
	}

	return router
}

// requestLogger logs each request with latency and status.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds())
	}
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("API server listening", "address", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}
