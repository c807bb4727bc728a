package api

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"project4869/internal/export"
	"project4869/internal/model"
	"project4869/internal/service"
	"project4869/internal/storage/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// logTailLines количество последних строк лога в /api/system/logs
const logTailLines = 50

// Handler обработчики HTTP API
type Handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// NewHandler создает обработчики API
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps, logger: deps.Logger}
}

// CronConfig тело запроса POST /api/rss/config
type CronConfig struct {
	CronExpression string `json:"cron_expression" binding:"required"`
}

// ListMagnets возвращает все записи, максимальный номер серии и группы по сериям
func (h *Handler) ListMagnets(c *gin.Context) {
	records, err := h.deps.Records.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Database error", zap.String("operation", "list_records"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []model.Record{}
	}

	groups := repository.GroupRecords(records)

	c.JSON(http.StatusOK, gin.H{
		"data":               records,
		"max_episode":        groups.MaxEpisode,
		"grouped_by_episode": groups.Groups,
	})
}

// Filters возвращает уникальные значения полей для меню фильтров
func (h *Handler) Filters(c *gin.Context) {
	filters := make(map[string][]string)

	for _, field := range repository.DistinctFields() {
		values, err := h.deps.Records.ListDistinct(c.Request.Context(), field)
		if err != nil {
			h.logger.Error("Database error",
				zap.String("operation", "list_distinct"),
				zap.String("field", field),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if values == nil {
			values = []string{}
		}
		filters[field] = values
	}

	c.JSON(http.StatusOK, filters)
}

// Export отдает все записи в виде xlsx файла
func (h *Handler) Export(c *gin.Context) {
	records, err := h.deps.Records.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Database error", zap.String("operation", "export_records"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, records); err != nil {
		h.logger.Error("Failed to export records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("magnets-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// ClearMagnets удаляет все записи
func (h *Handler) ClearMagnets(c *gin.Context) {
	deleted, err := h.deps.Records.Clear(c.Request.Context())
	if err != nil {
		h.logger.Error("Database error", zap.String("operation", "clear_records"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All records deleted",
		"deleted": deleted,
	})
}

// TriggerFullScrape запускает полный обход в фоне
func (h *Handler) TriggerFullScrape(c *gin.Context) {
	if err := h.deps.Scrape.TriggerFull(); err != nil {
		if errors.Is(err, service.ErrScrapeRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Full scrape triggered in background"})
}

// GetRSSConfig возвращает текущее расписание проверки RSS
func (h *Handler) GetRSSConfig(c *gin.Context) {
	spec, ok := h.deps.Scheduler.Spec(service.JobRSSMonitor)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "RSS monitor is not scheduled"})
		return
	}

	next, _ := h.deps.Scheduler.Next(service.JobRSSMonitor)
	c.JSON(http.StatusOK, gin.H{
		"cron_expression": spec,
		"next_run":        next,
	})
}

// ConfigureRSS меняет расписание проверки RSS
func (h *Handler) ConfigureRSS(c *gin.Context) {
	var config CronConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	if err := h.deps.Scheduler.Reschedule(service.JobRSSMonitor, config.CronExpression); err != nil {
		if errors.Is(err, service.ErrUnknownJob) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid cron expression: %v", err)})
		return
	}

	next, _ := h.deps.Scheduler.Next(service.JobRSSMonitor)
	h.logger.Info("RSS schedule updated", zap.String("cron_expression", config.CronExpression))

	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("RSS Schedule updated to: %s", config.CronExpression),
		"next_run": next,
	})
}

// Logs возвращает последние строки файла лога
func (h *Handler) Logs(c *gin.Context) {
	if h.deps.LogPath == "" {
		c.JSON(http.StatusOK, gin.H{"logs": []string{"Log file not found."}})
		return
	}

	lines, err := tailFile(h.deps.LogPath, logTailLines)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusOK, gin.H{"logs": []string{"Log file not found."}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": []string{fmt.Sprintf("Error reading logs: %v", err)}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": lines})
}

// Health отвечает 200, пока процесс жив
func (h *Handler) Health(c *gin.Context) {
	h.deps.Health.HealthHandler(c.Writer, c.Request)
}

// Ready отвечает 503, если один из компонентов недоступен
func (h *Handler) Ready(c *gin.Context) {
	h.deps.Health.ReadyHandler(c.Writer, c.Request)
}

// Stats возвращает сводку метрик, число записей и расписание
func (h *Handler) Stats(c *gin.Context) {
	stats := h.deps.Metrics.GetStats()

	if count, err := h.deps.Records.Count(c.Request.Context()); err == nil {
		stats["record_count"] = count
	} else {
		h.logger.Warn("Failed to count records", zap.Error(err))
	}

	if h.deps.Scrape != nil {
		stats["scrape_running"] = h.deps.Scrape.Running()
	}
	if h.deps.Scheduler != nil {
		stats["jobs"] = h.deps.Scheduler.Jobs()
	}

	c.JSON(http.StatusOK, stats)
}

// Metrics отдает метрики в формате Prometheus
func (h *Handler) Metrics(c *gin.Context) {
	h.deps.Metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// tailFile возвращает последние n строк файла
func tailFile(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ring, nil
}
