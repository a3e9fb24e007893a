package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	httperr "github.com/aevon-lab/hookline/internal/core/errors"
	"github.com/aevon-lab/hookline/internal/metrics"
	"github.com/gin-gonic/gin"
)

const (
	healthTimeout          = 2 * time.Second
	defaultShutdownTimeout = 15 * time.Second
)

type Server struct {
	Engine *gin.Engine
	Addr   string

	health          HealthChecker
	shutdownTimeout time.Duration
}

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options tunes the HTTP server.
type Options struct {
	Mode            string // debug | release
	ShutdownTimeout time.Duration
	Metrics         *metrics.Metrics
}

func New(addr string, health HealthChecker, opts Options) *Server {
	if opts.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	r := gin.New()
	r.Use(requestLogger(), recoverInternal())

	s := &Server{
		Engine:          r,
		Addr:            addr,
		health:          health,
		shutdownTimeout: opts.ShutdownTimeout,
	}

	r.GET("/health", s.healthHandler)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	return s
}

// recoverInternal turns a panic into the generic 500 body.
func recoverInternal() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("Recovered from panic",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, httperr.ErrorResponse{Error: httperr.MsgInternalError})
	})
}

// requestLogger logs one line per request. Headers and bodies are never logged.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			slog.Error("Health check failed: database unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
		shutdownErr <- err
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
