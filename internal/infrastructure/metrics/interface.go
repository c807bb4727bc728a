package metrics

import (
	"net/http"
	"time"

	"project4869/internal/model"
)

// Interface определяет интерфейс для системы метрик
type Interface interface {
	// RecordRun записывает итог одного прогона конвейера
	RecordRun(source string, rows int, batch model.BatchResult, duration time.Duration, fallback bool)

	// RecordRSSEntries записывает число найденных и добавленных записей RSS
	RecordRSSEntries(found, inserted int)

	// RecordError записывает ошибку этапа
	RecordError(stage string)

	// SetScrapeStatus устанавливает статус полного обхода
	SetScrapeStatus(running bool)

	// SetNextRun устанавливает время следующего запуска задачи
	SetNextRun(job string, next time.Time)

	// Handler возвращает HTTP обработчик для выдачи метрик Prometheus
	Handler() http.Handler

	// GetStats возвращает все метрики в виде map
	GetStats() map[string]interface{}
}
