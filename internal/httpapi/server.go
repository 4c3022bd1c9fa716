package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dormguide/internal/log"
)

// Server is the HTTP front of the service.
type Server struct {
	router *gin.Engine
	addr   string
	server *http.Server
	logger *slog.Logger
}

// NewServer registers all routes on a new gin engine.
func NewServer(h *Handler, addr string) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors())

	api := router.Group("/api/v1")
	{
		api.POST("/ask", h.Ask)
		api.GET("/dorms", h.ListDorms)
		api.GET("/dorms/:id", h.GetDorm)
		api.POST("/index/rebuild", h.RebuildIndex)
		api.GET("/index/status", h.IndexStatus)
		api.GET("/sessions/:id/history", h.SessionHistory)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if addr == "" {
		addr = ":8000"
	}
	return &Server{
		router: router,
		addr:   addr,
		logger: log.NewModuleLogger("http", "server"),
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server starting", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	logger := log.NewModuleLogger("http", "access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
