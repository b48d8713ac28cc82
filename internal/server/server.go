package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apisetup "q-pipecat/internal/api"
	"q-pipecat/internal/bootstrap"
	"q-pipecat/internal/config"
	"q-pipecat/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// httpDrainTimeout bounds how long in-flight webhooks may run after a shutdown signal
const httpDrainTimeout = 5 * time.Second

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       *bootstrap.Dependencies
	config     *config.Config
	logger     *observability.Logger
}

// New creates a new Server instance
func New(cfg *config.Config, deps *bootstrap.Dependencies, logger *observability.Logger) *Server {
	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
	}
}

// Setup configures the HTTP router with middleware and routes
func (s *Server) Setup() {
	s.router = gin.New()

	// Webhooks arrive from vendor infrastructure, not browsers
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}

	s.router.Use(cors.New(corsConfig))
	s.router.Use(observability.Middleware(s.logger))

	var webhookMiddleware []gin.HandlerFunc
	if s.deps.RateLimiter != nil {
		webhookMiddleware = append(webhookMiddleware, s.deps.RateLimiter.Middleware(s.deps.Responder))
	}

	rootRouter := s.router.Group("/")
	api := apisetup.New(
		rootRouter,
		s.deps.DialinHandler,
		s.deps.Metrics.Handler(),
		webhookMiddleware...,
	)
	api.RegisterRoutes()
}

// Handler exposes the configured router. Setup must be called first.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info(ctx, fmt.Sprintf("Server starting on %s", s.config.Server.Addr()))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "server failed to start", err)
			os.Exit(1)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received, then stops
// accepting webhooks, drains the call agents and releases dependencies.
func (s *Server) WaitForShutdown(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	s.logger.Info(ctx, "Shutting down server...")

	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server, then the agents, then the clients.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpDrainTimeout)
	defer cancel()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
	}

	if err := s.deps.Supervisor.Shutdown(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("agents did not drain: %w", err))
	}

	s.deps.Cleanup()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.logger.Info(ctx, "Server exited gracefully")
	return nil
}
