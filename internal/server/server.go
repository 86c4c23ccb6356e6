package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"leadflow/config"
	"leadflow/internal/handler"
	"leadflow/internal/middleware"
	"leadflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Server wires the HTTP surface. Everything stateful lives behind the
// handlers; the server only owns routing and lifecycle.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	logger     *logger.Logger
}

func New(cfg *config.Config, l *logger.Logger, imports *handler.ImportHandler, monitoring *handler.MonitorHandler) *Server {
	if cfg.AppMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.LoggingMiddleware(l))
	engine.Use(middleware.ErrorHandler(l))
	engine.Use(middleware.CORSMiddleware())

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	engine.GET("/health", monitoring.Health)

	v1 := engine.Group("/v1")
	{
		v1.POST("/imports", imports.Create)
		v1.GET("/imports", imports.List)
		v1.POST("/imports/:id/chunks/:index", imports.UploadChunk)
		v1.POST("/imports/:id/process", imports.StartProcessing)
		v1.GET("/imports/:id/progress", imports.Progress)
		v1.GET("/imports/:id/stats", imports.Stats)
		v1.GET("/imports/:id/errors", imports.Errors)
		v1.POST("/imports/:id/cancel", imports.Cancel)

		v1.GET("/monitoring/stats", monitoring.Stats)
		v1.GET("/monitoring/health", monitoring.Health)
	}

	return &Server{
		engine: engine,
		logger: l,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.AppPort),
			Handler:      engine,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func (s *Server) Run() error {
	s.logger.Infof("http server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infof("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
