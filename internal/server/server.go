package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/config"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/usecase"
)

type Server struct {
	cfg       config.Config
	magazines *usecase.MagazineService
	log       *slog.Logger
	engine    *gin.Engine
	startedAt time.Time
}

func New(cfg config.Config, magazines *usecase.MagazineService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		magazines: magazines,
		log:       log,
		engine:    gin.New(),
		startedAt: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.Use(s.requestLog())
	s.engine.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		s.log.Error("panic recovered", "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal Server Error",
		})
	}))
	s.engine.Use(s.cors())

	s.engine.GET("/api/health", s.handleHealth)

	mags := s.engine.Group("/api/magazines")
	mags.GET("", s.handleList)
	mags.POST("/upload", s.handleUpload)
	mags.GET("/share/:shareId", s.handleGetByShareID)
	mags.GET("/:id", s.handleGetByID)
	mags.GET("/:id/status", s.handleStatus)
	mags.PUT("/:id", s.handleUpdate)
	mags.DELETE("/:id", s.handleDelete)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Route not found: " + c.Request.Method + " " + c.Request.URL.Path,
		})
	})
}

func (s *Server) cors() gin.HandlerFunc {
	origin := s.cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Seconds(),
	})
}

func randomID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
