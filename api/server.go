// Package api assembles the HTTP server: routes, middleware, and lifecycle.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/knowledge-agent/api/handlers"
	"github.com/connexus-ai/knowledge-agent/api/middleware"
	"github.com/connexus-ai/knowledge-agent/pkg/chat"
	"github.com/connexus-ai/knowledge-agent/pkg/config"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
	"github.com/connexus-ai/knowledge-agent/pkg/indexer"
	"github.com/connexus-ai/knowledge-agent/pkg/log"
)

const shutdownTimeout = 15 * time.Second

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	logger     interface {
		Info(msg string, args ...any)
	}
}

// Deps are the wired components the routes need.
type Deps struct {
	Agent     *chat.Agent
	Provider  domain.Provider
	Scheduler *indexer.Scheduler
	Pipeline  *indexer.Pipeline
	Store     domain.VectorStore
}

// New builds the router and binds every route.
func New(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLog())

	corsCfg := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	engine.Use(cors.New(corsCfg))
	engine.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	chatHandler := handlers.NewChat(deps.Agent)
	meHandler := handlers.NewMe(deps.Provider)
	indexerHandler := handlers.NewIndexer(deps.Scheduler, deps.Pipeline, deps.Store, cfg.Indexer)

	authed := engine.Group("/api", middleware.Auth())
	authed.POST("/chat", chatHandler.Handle)
	authed.GET("/me", meHandler.Handle)

	admin := authed.Group("/admin/knowledge-indexer")
	admin.POST("/run", indexerHandler.Run)
	admin.POST("/test", indexerHandler.Test)
	admin.GET("/preview", indexerHandler.Preview)
	admin.GET("/stats", indexerHandler.Stats)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log.WithModule("api"),
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests with a bounded grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
