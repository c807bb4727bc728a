// Package rss содержит монитор RSS ленты релизов.
package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"project4869/internal/assemble"
	"project4869/internal/infrastructure/metrics"
	"project4869/internal/model"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const (
	torrentMIME  = "application/x-bittorrent"
	magnetPrefix = "magnet:"
)

// Store хранилище, в которое монитор добавляет новые записи
type Store interface {
	GetByLink(ctx context.Context, link string) (*model.Record, error)
	Upsert(ctx context.Context, record *model.Record) (model.UpsertResult, error)
}

// Notifier получает новые записи
type Notifier interface {
	NotifyRecords(ctx context.Context, records []model.Record)
}

// Config настройки монитора
type Config struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// Result итог одной проверки ленты
type Result struct {
	Entries  int `json:"entries"`
	NoLink   int `json:"no_link"`
	Existing int `json:"existing"`
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
}

// Monitor проверяет ленту и добавляет записи, ссылок которых еще нет в хранилище
type Monitor struct {
	config    Config
	parser    *gofeed.Parser
	assembler *assemble.Assembler
	store     Store
	metrics   metrics.Interface
	notifier  Notifier
	logger    *zap.Logger
}

// NewMonitor создает новый монитор ленты
func NewMonitor(config Config, assembler *assemble.Assembler, store Store, logger *zap.Logger) *Monitor {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	parser := gofeed.NewParser()
	parser.UserAgent = config.UserAgent
	parser.Client = &http.Client{Timeout: config.Timeout}

	return &Monitor{
		config:    config,
		parser:    parser,
		assembler: assembler,
		store:     store,
		logger:    logger,
	}
}

// WithMetrics включает запись метрик
func (m *Monitor) WithMetrics(metrics metrics.Interface) *Monitor {
	m.metrics = metrics
	return m
}

// WithNotifier включает уведомления о новых записях
func (m *Monitor) WithNotifier(notifier Notifier) *Monitor {
	m.notifier = notifier
	return m
}

// URL возвращает адрес ленты
func (m *Monitor) URL() string {
	return m.config.URL
}

// Check загружает ленту и обрабатывает ее записи
func (m *Monitor) Check(ctx context.Context) (Result, error) {
	m.logger.Info("Fetching RSS feed", zap.String("url", m.config.URL))

	feed, err := m.parser.ParseURLWithContext(m.config.URL, ctx)
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordError("rss")
		}
		return Result{}, fmt.Errorf("failed to parse rss feed: %w", err)
	}

	return m.ProcessFeed(ctx, feed)
}

// CheckString обрабатывает ленту, переданную строкой
func (m *Monitor) CheckString(ctx context.Context, data string) (Result, error) {
	feed, err := m.parser.ParseString(data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse rss feed: %w", err)
	}
	return m.ProcessFeed(ctx, feed)
}

// ProcessFeed добавляет в хранилище записи ленты, ссылок которых там еще нет
func (m *Monitor) ProcessFeed(ctx context.Context, feed *gofeed.Feed) (Result, error) {
	result := Result{Entries: len(feed.Items)}
	m.logger.Info("Found RSS entries", zap.Int("entries", result.Entries))

	var fresh []model.Record
	for _, item := range feed.Items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		link := MagnetLink(item)
		if link == "" {
			result.NoLink++
			continue
		}

		existing, err := m.store.GetByLink(ctx, link)
		if err != nil {
			result.Failed++
			m.logger.Error("Failed to look up record", zap.String("link", link), zap.Error(err))
			continue
		}
		if existing != nil {
			result.Existing++
			continue
		}

		record := m.RecordFromItem(item, link)
		if _, err := m.store.Upsert(ctx, &record); err != nil {
			result.Failed++
			m.logger.Error("Failed to insert record", zap.String("title", item.Title), zap.Error(err))
			continue
		}

		result.Inserted++
		fresh = append(fresh, record)
		m.logger.Info("Added new record", zap.String("title", item.Title))
	}

	if m.metrics != nil {
		m.metrics.RecordRSSEntries(result.Entries, result.Inserted)
	}
	if m.notifier != nil && len(fresh) > 0 {
		m.notifier.NotifyRecords(ctx, fresh)
	}

	m.logger.Info("RSS check finished",
		zap.Int("inserted", result.Inserted),
		zap.Int("existing", result.Existing),
		zap.Int("failed", result.Failed))

	return result, nil
}

// RecordFromItem собирает запись из заголовка записи ленты
func (m *Monitor) RecordFromItem(item *gofeed.Item, link string) model.Record {
	title := strings.TrimSpace(item.Title)

	row := model.Row{
		Header:    title,
		Date:      publishedDate(item),
		Resources: []model.Resource{{Payload: link, Label: title}},
	}

	records := m.assembler.Assemble(row)
	return records[0]
}

// MagnetLink возвращает magnet ссылку записи из link или вложений
func MagnetLink(item *gofeed.Item) string {
	if strings.HasPrefix(item.Link, magnetPrefix) {
		return item.Link
	}

	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		if enclosure.Type == torrentMIME || strings.HasPrefix(enclosure.URL, magnetPrefix) {
			return enclosure.URL
		}
	}

	return ""
}

func publishedDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC().Format(model.DateLayout)
	}
	return item.Published
}
