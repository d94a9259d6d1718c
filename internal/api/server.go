package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/callcoach/callcoach-core/internal/api/handlers"
	"github.com/callcoach/callcoach-core/internal/api/middleware"
	"github.com/callcoach/callcoach-core/internal/chat/scope"
	"github.com/callcoach/callcoach-core/internal/config"
	"github.com/callcoach/callcoach-core/internal/monitoring"
	"github.com/callcoach/callcoach-core/internal/repo"
	"github.com/callcoach/callcoach-core/pkg/cache"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// rate limit: generous enough for a chat UI, tight enough to stop a
// runaway client from hammering the LLM provider.
const (
	rateLimitPerMinute = 120
	rateLimitWindow    = time.Minute
)

// Stores groups the read-side repositories the HTTP layer needs.
type Stores struct {
	Roster     repo.RosterStore
	Calls      repo.CallStore
	Goals      repo.GoalStore
	Objections repo.ObjectionReader
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	cache      cache.Valkey
	pipeline   handlers.ChatPipeline
	scopes     *scope.Resolver
	stores     Stores
	vector     handlers.ReadinessProbe
	indexer    handlers.SearchReindexer
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	valkeyCache cache.Valkey,
	pipeline handlers.ChatPipeline,
	scopes *scope.Resolver,
	stores Stores,
	vector handlers.ReadinessProbe,
	indexer handlers.SearchReindexer,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:   cfg,
		logger:   log,
		cache:    valkeyCache,
		pipeline: pipeline,
		scopes:   scopes,
		stores:   stores,
		vector:   vector,
		indexer:  indexer,
		router:   gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.ErrorMiddleware(s.logger))
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestLoggerMiddleware(s.logger))
	s.router.Use(monitoring.HTTPMetricsMiddleware())

	if s.config.Auth.Enabled {
		s.router.Use(middleware.AuthMiddleware(s.config.Auth, s.cache))
	} else {
		s.router.Use(middleware.DevIdentityMiddleware())
		s.logger.Warn("Authentication is DISABLED by configuration; requests run as a development admin")
	}

	// After auth so the per-user id is available for the counter key.
	s.router.Use(middleware.RateLimiterMiddleware(s.cache, rateLimitPerMinute, rateLimitWindow, s.logger))

	monitoring.SetupPrometheusMetrics(s.router)
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.cache, s.vector, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	v1 := s.router.Group("/api/v1")

	chatHandler := handlers.NewChatHandler(s.pipeline, s.logger)
	v1.POST("/chat", chatHandler.HandleMessage)

	agentsHandler := handlers.NewAgentsHandler(
		s.stores.Roster, s.stores.Calls, s.stores.Goals, s.stores.Objections,
		s.scopes, s.logger,
	)
	v1.GET("/agents/:id/overview", agentsHandler.GetOverview)

	adminHandler := handlers.NewAdminHandler(s.indexer, s.logger)
	v1.POST("/admin/reindex", adminHandler.Reindex)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM-backed answers can be slow
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("callcoach-core REST API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down callcoach-core gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
