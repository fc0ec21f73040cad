// Package status exposes an optional HTTP endpoint reporting run
// progress, for watching long batches without tailing logs.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/clipfetch/internal/outcome"
)

// Server wraps the embedded HTTP progress endpoint.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the status server around the outcome counters.
func New(port int, sink *outcome.Sink, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      newRouter(sink, logger),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// newRouter configures the Gin router with the health and progress routes.
func newRouter(sink *outcome.Sink, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(loggerMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "clipfetch",
		})
	})

	r.GET("/progress", func(c *gin.Context) {
		counts := sink.Counts()
		c.JSON(http.StatusOK, gin.H{
			"expected":  counts.Expected,
			"recorded":  counts.Recorded,
			"succeeded": counts.Succeeded,
			"failed":    counts.Failed,
		})
	})

	return r
}

// Start serves until Shutdown is called.
func (s *Server) Start() {
	s.logger.Info("Status server listening", slog.String("addr", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Status server failed", slog.Any("error", err))
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("Status server shutdown error", slog.Any("error", err))
	}
}

// loggerMiddleware logs each request in the application logger.
func loggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("HTTP request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
