// Package api содержит HTTP API для чтения и управления записями.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"project4869/internal/infrastructure/health"
	"project4869/internal/infrastructure/metrics"
	"project4869/internal/model"
	"project4869/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecordStore хранилище, из которого API читает записи
type RecordStore interface {
	ListAll(ctx context.Context) ([]model.Record, error)
	ListDistinct(ctx context.Context, field string) ([]string, error)
	Clear(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// ScrapeTrigger запускает полный обход в фоне
type ScrapeTrigger interface {
	TriggerFull() error
	Running() bool
}

// JobScheduler управляет расписанием задач
type JobScheduler interface {
	Reschedule(name, spec string) error
	Spec(name string) (string, bool)
	Next(name string) (time.Time, bool)
	Jobs() []service.JobInfo
}

// Dependencies зависимости HTTP API
type Dependencies struct {
	Records      RecordStore
	Scrape       ScrapeTrigger
	Scheduler    JobScheduler
	Health       health.CheckerInterface
	Metrics      metrics.Interface
	LogPath      string
	APIAccessKey string
	Logger       *zap.Logger
}

// NewServer создает gin engine со всеми маршрутами
func NewServer(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(requestLogger(deps.Logger))
	r.Use(gin.Recovery())
	r.Use(cors())

	setupRoutes(r, NewHandler(deps), deps.APIAccessKey, deps.Logger)

	return r
}

// setupRoutes регистрирует маршруты API
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string, logger *zap.Logger) {
	r.GET("/health", handler.Health)
	r.GET("/ready", handler.Ready)
	r.GET("/stats", handler.Stats)
	r.GET("/metrics", handler.Metrics)

	api := r.Group("/api")
	{
		api.GET("/magnets", handler.ListMagnets)
		api.GET("/magnets/filters", handler.Filters)
		api.GET("/magnets/export", handler.Export)
		api.GET("/rss/config", handler.GetRSSConfig)
		api.GET("/system/logs", handler.Logs)
	}

	protected := r.Group("/api")
	if apiAccessKey != "" {
		protected.Use(authMiddleware(apiAccessKey))
		logger.Info("Mutating API endpoints require X-API-Key")
	} else {
		logger.Warn("API_ACCESS_KEY not set, mutating API endpoints are open")
	}
	{
		protected.DELETE("/magnets", handler.ClearMagnets)
		protected.POST("/scrape/full", handler.TriggerFullScrape)
		protected.POST("/rss/config", handler.ConfigureRSS)
	}

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// requestLogger пишет строку лога на каждый запрос
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("HTTP request",
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// cors разрешает запросы со страницы в другом origin
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authMiddleware проверяет ключ из X-API-Key или Authorization: Bearer
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")
		if providedKey == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				providedKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "API key required",
			})
			return
		}

		if providedKey != apiAccessKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			return
		}

		c.Next()
	}
}
