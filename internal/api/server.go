// Package api exposes the HTTP surface of indexerd: the indexer and post
// endpoints, health and readiness, and Prometheus metrics.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/internal/service"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/logger"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Server bundles the HTTP handlers and their dependencies
type Server struct {
	indexers *service.IndexerService
	posts    *service.PostService
	checks   map[string]HealthCheck
	logger   *zap.Logger
}

// NewServer creates a Server. checks maps dependency names (database, cache,
// storage) to their health probes; all must pass for /health to return 200.
func NewServer(indexers *service.IndexerService, posts *service.PostService, checks map[string]HealthCheck) *Server {
	return &Server{
		indexers: indexers,
		posts:    posts,
		checks:   checks,
		logger:   logger.With(zap.String("component", "api")),
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(RequestLogger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is running!")
	})
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "The requested resource was not found")
	})

	v1 := r.Group("/v1")

	indexers := v1.Group("/indexers")
	indexers.POST("", s.createIndexer)
	indexers.GET("", s.listIndexers)
	indexers.GET("/:id", s.getIndexer)
	indexers.GET("/:id/stats", s.indexerStats)
	indexers.POST("/start/:id", s.startIndexer)
	indexers.POST("/stop/:id", s.stopIndexer)

	posts := v1.Group("/posts")
	posts.POST("", s.createPost)
	posts.GET("", s.listPosts)
	posts.GET("/:id", s.getPost)

	return r
}

// health reports per-dependency status; any failure degrades to 503
func (s *Server) health(c *gin.Context) {
	status := http.StatusOK
	components := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			s.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			components[name] = "ok"
		}
	}

	c.JSON(status, gin.H{"components": components})
}

// writeError maps a typed service error onto an HTTP response
func (s *Server) writeError(c *gin.Context, err error) {
	var status int
	switch errors.TypeOf(err) {
	case errors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case errors.ErrorTypeValidation:
		status = http.StatusBadRequest
	case errors.ErrorTypeConflict:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
