// Package metrics реализует систему метрик на базе Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"project4869/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "project4869"

// Metrics представляет систему метрик сервиса
type Metrics struct {
	mu sync.RWMutex

	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	rowsTotal      prometheus.Counter
	recordsTotal   *prometheus.CounterVec
	fallbackTotal  prometheus.Counter
	rssEntries     *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	scrapeRunning  prometheus.Gauge
	nextRunSeconds *prometheus.GaugeVec

	// Сводка для /stats
	totalRuns    int64
	totalRows    int64
	inserted     int64
	replaced     int64
	failed       int64
	rssFound     int64
	rssInserted  int64
	errorCount   int64
	lastRunTime  time.Duration
	lastScrape   time.Time
	scrapeActive bool
	nextRuns     map[string]time.Time
	uptime       time.Time

	logger *zap.Logger
}

var _ Interface = (*Metrics)(nil)

// NewMetrics создает новую систему метрик на собственном реестре
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nextRuns: make(map[string]time.Time),
		uptime:   time.Now(),
		logger:   logger,
	}

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total number of pipeline runs",
	}, []string{"source"})

	m.rowsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "rows_total",
		Help:      "Total number of listing rows collected",
	})

	m.recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "records_total",
		Help:      "Total number of stored records by upsert result",
	}, []string{"result"})

	m.fallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "fallback_total",
		Help:      "Total number of runs that used fallback row selectors",
	})

	m.rssEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rss",
		Name:      "entries_total",
		Help:      "Total number of feed entries by outcome",
	}, []string{"outcome"})

	m.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Total number of errors by stage",
	}, []string{"stage"})

	m.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Pipeline run duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	m.scrapeRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scrape",
		Name:      "running",
		Help:      "Whether a full scrape is running",
	})

	m.nextRunSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "next_run_timestamp_seconds",
		Help:      "Unix time of the next scheduled run",
	}, []string{"job"})

	m.registry.MustRegister(
		m.runsTotal,
		m.rowsTotal,
		m.recordsTotal,
		m.fallbackTotal,
		m.rssEntries,
		m.errorsTotal,
		m.runDuration,
		m.scrapeRunning,
		m.nextRunSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry возвращает реестр Prometheus
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP обработчик для выдачи метрик Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun записывает итог одного прогона конвейера
func (m *Metrics) RecordRun(source string, rows int, batch model.BatchResult, duration time.Duration, fallback bool) {
	m.runsTotal.WithLabelValues(source).Inc()
	m.rowsTotal.Add(float64(rows))
	m.recordsTotal.WithLabelValues(model.UpsertInserted.String()).Add(float64(batch.Inserted))
	m.recordsTotal.WithLabelValues(model.UpsertReplaced.String()).Add(float64(batch.Replaced))
	m.recordsTotal.WithLabelValues("failed").Add(float64(batch.Failed))
	m.runDuration.WithLabelValues(source).Observe(duration.Seconds())
	if fallback {
		m.fallbackTotal.Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRuns++
	m.totalRows += int64(rows)
	m.inserted += int64(batch.Inserted)
	m.replaced += int64(batch.Replaced)
	m.failed += int64(batch.Failed)
	m.lastRunTime = duration
}

// RecordRSSEntries записывает число найденных и добавленных записей RSS
func (m *Metrics) RecordRSSEntries(found, inserted int) {
	m.rssEntries.WithLabelValues("found").Add(float64(found))
	m.rssEntries.WithLabelValues("inserted").Add(float64(inserted))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rssFound += int64(found)
	m.rssInserted += int64(inserted)
}

// RecordError записывает ошибку
func (m *Metrics) RecordError(stage string) {
	m.errorsTotal.WithLabelValues(stage).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorCount++
}

// SetScrapeStatus устанавливает статус полного обхода
func (m *Metrics) SetScrapeStatus(running bool) {
	if running {
		m.scrapeRunning.Set(1)
	} else {
		m.scrapeRunning.Set(0)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.scrapeActive = running
	if !running {
		m.lastScrape = time.Now()
	}
}

// SetNextRun устанавливает время следующего запуска задачи
func (m *Metrics) SetNextRun(job string, next time.Time) {
	if !next.IsZero() {
		m.nextRunSeconds.WithLabelValues(job).Set(float64(next.Unix()))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRuns[job] = next
}

// GetStats возвращает все метрики в виде map
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]string, 0, len(m.nextRuns))
	for job := range m.nextRuns {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)

	nextRuns := make(map[string]interface{}, len(jobs))
	for _, job := range jobs {
		nextRuns[job] = m.formatTime(m.nextRuns[job])
	}

	return map[string]interface{}{
		"pipeline": map[string]interface{}{
			"total_runs":    m.totalRuns,
			"total_rows":    m.totalRows,
			"last_run_time": m.formatDuration(m.lastRunTime),
		},
		"records": map[string]interface{}{
			"inserted": m.inserted,
			"replaced": m.replaced,
			"failed":   m.failed,
		},
		"rss": map[string]interface{}{
			"entries_found":    m.rssFound,
			"entries_inserted": m.rssInserted,
		},
		"errors": map[string]interface{}{
			"error_count": m.errorCount,
		},
		"system": map[string]interface{}{
			"uptime":        m.formatDuration(time.Since(m.uptime)),
			"scrape_active": m.scrapeActive,
			"last_scrape":   m.formatTime(m.lastScrape),
			"next_runs":     nextRuns,
		},
	}
}

// formatTime форматирует время или возвращает "not set"
func (m *Metrics) formatTime(t time.Time) string {
	if t.IsZero() {
		return "not set"
	}
	return t.Format("2006-01-02 15:04")
}

// formatDuration форматирует duration с двумя знаками после запятой
func (m *Metrics) formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
