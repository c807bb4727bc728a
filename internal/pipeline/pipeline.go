// Package pipeline связывает поиск строк, сбор ресурсов, сборку записей и запись в хранилище.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"project4869/internal/assemble"
	"project4869/internal/config"
	"project4869/internal/discover"
	"project4869/internal/infrastructure/metrics"
	"project4869/internal/infrastructure/worker"
	"project4869/internal/model"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultBatchSize размер пакета записи по умолчанию
const DefaultBatchSize = 100

// Store хранилище, в которое конвейер пишет записи
type Store interface {
	UpsertBatch(ctx context.Context, records []model.Record) model.BatchResult
}

// Notifier получает записи, впервые попавшие в хранилище
type Notifier interface {
	NotifyRecords(ctx context.Context, records []model.Record)
}

// Result итог обработки одного снимка страницы
type Result struct {
	Descriptor discover.Descriptor `json:"descriptor"`
	Fallback   bool                `json:"fallback"`
	Rows       int                 `json:"rows"`
	Records    int                 `json:"records"`
	Inserted   int                 `json:"inserted"`
	Replaced   int                 `json:"replaced"`
	Failed     int                 `json:"failed"`
	Duration   time.Duration       `json:"duration"`
}

// Pipeline обрабатывает снимки страниц списка
type Pipeline struct {
	profile   config.Profile
	assembler *assemble.Assembler
	store     Store
	pool      worker.PoolInterface
	metrics   metrics.Interface
	notifier  Notifier
	batchSize int
	logger    *zap.Logger
}

// New создает новый конвейер. store может быть nil, если нужен только Process.
func New(profile config.Profile, assembler *assemble.Assembler, store Store, batchSize int, logger *zap.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Pipeline{
		profile:   profile,
		assembler: assembler,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}
}

// WithPool включает параллельную сборку записей через пул воркеров
func (p *Pipeline) WithPool(pool worker.PoolInterface) *Pipeline {
	p.pool = pool
	return p
}

// WithMetrics включает запись метрик
func (p *Pipeline) WithMetrics(m metrics.Interface) *Pipeline {
	p.metrics = m
	return p
}

// WithNotifier включает уведомления о новых записях
func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

// Process находит строки в снимке и собирает записи без обращения к хранилищу.
// Пустой selector включает автоматический поиск формы строки.
func (p *Pipeline) Process(html, selector string) (Result, []model.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, nil, fmt.Errorf("failed to parse html: %w", err)
	}

	desc := p.describe(doc, selector)

	rows, err := discover.Collect(doc, desc, p.profile)
	if err != nil {
		return Result{}, nil, fmt.Errorf("failed to collect rows: %w", err)
	}

	records := p.assembleRows(rows)

	p.logger.Info("Processed listing snapshot",
		zap.String("selector", desc.Selector),
		zap.Bool("fallback", desc.Fallback),
		zap.Int("rows", len(rows)),
		zap.Int("records", len(records)))

	return Result{
		Descriptor: desc,
		Fallback:   desc.Fallback,
		Rows:       len(rows),
		Records:    len(records),
	}, records, nil
}

// describe выбирает дескриптор строки: заданный, найденный или запасной
func (p *Pipeline) describe(doc *goquery.Document, selector string) discover.Descriptor {
	if selector != "" {
		desc, err := discover.ParseDescriptor(selector)
		if err == nil {
			return desc
		}
		p.logger.Warn("Ignoring invalid row selector", zap.String("selector", selector), zap.Error(err))
	}

	desc, err := discover.Discover(doc, p.profile)
	if err == nil {
		p.logger.Debug("Discovered row descriptor",
			zap.String("selector", desc.Selector),
			zap.Int("level", desc.Level))
		return desc
	}

	if !errors.Is(err, discover.ErrNoDescriptor) {
		p.logger.Warn("Row discovery failed", zap.Error(err))
	}

	desc = discover.FallbackDescriptor(p.profile.FallbackRows)
	p.logger.Info("Using fallback row selectors", zap.String("selector", desc.Selector))
	return desc
}

// assembleRows собирает записи строк, сохраняя порядок документа
func (p *Pipeline) assembleRows(rows []model.Row) []model.Record {
	if p.pool == nil || len(rows) < 2 {
		return p.assembler.AssembleAll(rows)
	}

	slots := make([][]model.Record, len(rows))
	var wg sync.WaitGroup

	for i := range rows {
		i := i
		wg.Add(1)

		job := worker.Job{
			ID:   i,
			Name: "assemble_row",
			Handler: func() error {
				defer wg.Done()
				slots[i] = p.assembler.Assemble(rows[i])
				return nil
			},
		}

		if err := p.pool.SubmitWait(context.Background(), job); err != nil {
			wg.Done()
			p.logger.Debug("Assembling row inline", zap.Int("row", i), zap.Error(err))
			slots[i] = p.assembler.Assemble(rows[i])
		}
	}

	wg.Wait()

	var records []model.Record
	for _, slot := range slots {
		records = append(records, slot...)
	}
	return records
}

// Run обрабатывает снимок и пишет записи в хранилище пакетами по batchSize
func (p *Pipeline) Run(ctx context.Context, html, selector string) (Result, error) {
	if p.store == nil {
		return Result{}, fmt.Errorf("pipeline has no store")
	}

	start := time.Now()

	result, records, err := p.Process(html, selector)
	if err != nil {
		p.recordError("process")
		return result, err
	}

	batch, err := p.flush(ctx, records)

	result.Inserted = batch.Inserted
	result.Replaced = batch.Replaced
	result.Failed = batch.Failed
	result.Duration = time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordRun("scrape", result.Rows, batch, result.Duration, result.Fallback)
	}

	p.notify(ctx, records, batch.InsertedLinks)

	p.logger.Info("Pipeline run completed",
		zap.Int("rows", result.Rows),
		zap.Int("records", result.Records),
		zap.Int("inserted", result.Inserted),
		zap.Int("replaced", result.Replaced),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	if err != nil {
		return result, fmt.Errorf("pipeline run interrupted: %w", err)
	}
	return result, nil
}

// flush пишет записи пакетами в порядке документа
func (p *Pipeline) flush(ctx context.Context, records []model.Record) (model.BatchResult, error) {
	var total model.BatchResult

	for start := 0; start < len(records); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		end := start + p.batchSize
		if end > len(records) {
			end = len(records)
		}

		batch := p.store.UpsertBatch(ctx, records[start:end])
		total.Merge(batch)

		p.logger.Info("Flushed record batch",
			zap.Int("written", end),
			zap.Int("total", len(records)),
			zap.Int("inserted", batch.Inserted),
			zap.Int("replaced", batch.Replaced),
			zap.Int("failed", batch.Failed))
	}

	if total.Failed > 0 {
		p.recordError("store")
	}

	return total, nil
}

func (p *Pipeline) notify(ctx context.Context, records []model.Record, insertedLinks []string) {
	if p.notifier == nil || len(insertedLinks) == 0 {
		return
	}

	inserted := make(map[string]bool, len(insertedLinks))
	for _, link := range insertedLinks {
		inserted[link] = true
	}

	var fresh []model.Record
	for _, record := range records {
		if inserted[record.Link] {
			fresh = append(fresh, record)
			delete(inserted, record.Link)
		}
	}

	p.notifier.NotifyRecords(ctx, fresh)
}

func (p *Pipeline) recordError(stage string) {
	if p.metrics != nil {
		p.metrics.RecordError(stage)
	}
}
