// Package server exposes the stratum retrieval layer over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quarrylabs/stratum"
	"github.com/quarrylabs/stratum/pkg/config"
	"github.com/quarrylabs/stratum/pkg/metrics"
	"github.com/quarrylabs/stratum/pkg/registry"
	"github.com/quarrylabs/stratum/pkg/server/handlers"
	"github.com/quarrylabs/stratum/pkg/store"
	"github.com/quarrylabs/stratum/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	router   *gin.Engine
	pool     *stratum.Pool
	registry *registry.Registry
	graph    store.GraphStore
	chunks   store.ChunkStore
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, pool *stratum.Pool, reg *registry.Registry, graph store.GraphStore, chunks store.ChunkStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:   cfg,
		pool:     pool,
		registry: reg,
		graph:    graph,
		chunks:   chunks,
		logger:   logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	// Set gin mode
	gin.SetMode(s.config.Server.Mode)

	// Create router
	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())
	if s.config.Telemetry.Metrics {
		s.router.Use(metrics.Middleware())
	}

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.graph, s.chunks)
	queryHandler := handlers.NewQueryHandler(s.pool, s.logger)
	tenantHandler := handlers.NewTenantHandler(s.registry, s.pool, s.logger)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/healthcheck", healthHandler.HealthCheck) // Legacy endpoint
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck) // Kubernetes liveness probe
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	if s.config.Telemetry.Metrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/query/filter", queryHandler.FilterData)

		tenants := v1.Group("/tenants")
		{
			tenants.POST("", tenantHandler.Create)
			tenants.GET("", tenantHandler.List)
			tenants.GET("/:tenant", tenantHandler.Get)
			tenants.DELETE("/:tenant", tenantHandler.Delete)
			tenants.PUT("/:tenant/default", tenantHandler.SetDefault)
		}

		pool := v1.Group("/pool")
		{
			pool.GET("/stats", queryHandler.PoolStats)
			pool.DELETE("/:tenant", queryHandler.EvictTenant)
		}
	}

	// Legacy route for compatibility with the Python server
	s.router.POST("/filter_data", queryHandler.FilterData)
}

// Router returns the configured router. Setup must be called first.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("Starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping server...")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextMiddleware extracts context information from headers
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		tenantKey := c.GetHeader("X-Tenant-Key")
		if tenantKey != "" {
			ctx = context.WithValue(ctx, types.ContextKeyTenant, tenantKey)
		}

		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
