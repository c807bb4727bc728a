package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"project4869/internal/external/rss"
	"project4869/internal/external/scraper"
	"project4869/internal/infrastructure/metrics"
	"project4869/internal/pipeline"

	"go.uber.org/zap"
)

// ErrScrapeRunning возвращается, если полный обход уже выполняется
var ErrScrapeRunning = errors.New("full scrape is already running")

const fullScrapeTimeout = 30 * time.Minute

// ScrapeService запускает сбор записей со страницы списка и из RSS ленты
type ScrapeService struct {
	fetcher   scraper.Fetcher
	pipeline  *pipeline.Pipeline
	monitor   *rss.Monitor
	sourceURL string
	metrics   metrics.Interface
	logger    *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScrapeService создает новый сервис сбора
func NewScrapeService(fetcher scraper.Fetcher, p *pipeline.Pipeline, monitor *rss.Monitor, sourceURL string, logger *zap.Logger) *ScrapeService {
	ctx, cancel := context.WithCancel(context.Background())

	return &ScrapeService{
		fetcher:   fetcher,
		pipeline:  p,
		monitor:   monitor,
		sourceURL: sourceURL,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// WithMetrics включает запись метрик
func (s *ScrapeService) WithMetrics(m metrics.Interface) *ScrapeService {
	s.metrics = m
	return s
}

// SourceURL возвращает адрес страницы списка
func (s *ScrapeService) SourceURL() string {
	return s.sourceURL
}

// ScrapeURL загружает страницу и обрабатывает ее конвейером
func (s *ScrapeService) ScrapeURL(ctx context.Context, url, selector string) (pipeline.Result, error) {
	html, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("fetch")
		}
		return pipeline.Result{}, fmt.Errorf("failed to fetch listing: %w", err)
	}

	return s.ScrapeHTML(ctx, html, selector)
}

// ScrapeHTML обрабатывает готовый снимок страницы
func (s *ScrapeService) ScrapeHTML(ctx context.Context, html, selector string) (pipeline.Result, error) {
	result, err := s.pipeline.Run(ctx, html, selector)
	if err != nil {
		return result, fmt.Errorf("failed to process listing: %w", err)
	}
	return result, nil
}

// RunFull выполняет полный обход страницы списка. Одновременно выполняется не больше одного обхода.
func (s *ScrapeService) RunFull(ctx context.Context) (pipeline.Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return pipeline.Result{}, ErrScrapeRunning
	}
	defer s.finishFull()

	return s.runFull(ctx)
}

// TriggerFull запускает полный обход в фоне
func (s *ScrapeService) TriggerFull() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrScrapeRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finishFull()

		ctx, cancel := context.WithTimeout(s.ctx, fullScrapeTimeout)
		defer cancel()

		if _, err := s.runFull(ctx); err != nil {
			s.logger.Error("Full scrape failed", zap.Error(err))
		}
	}()

	return nil
}

func (s *ScrapeService) runFull(ctx context.Context) (pipeline.Result, error) {
	if s.metrics != nil {
		s.metrics.SetScrapeStatus(true)
	}

	s.logger.Info("Starting full scrape", zap.String("url", s.sourceURL))

	result, err := s.ScrapeURL(ctx, s.sourceURL, "")
	if err != nil {
		return result, err
	}

	s.logger.Info("Full scrape completed",
		zap.Int("rows", result.Rows),
		zap.Int("inserted", result.Inserted),
		zap.Int("replaced", result.Replaced),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *ScrapeService) finishFull() {
	if s.metrics != nil {
		s.metrics.SetScrapeStatus(false)
	}
	s.running.Store(false)
}

// Running сообщает, выполняется ли полный обход
func (s *ScrapeService) Running() bool {
	return s.running.Load()
}

// Monitor выполняет одну проверку RSS ленты
func (s *ScrapeService) Monitor(ctx context.Context) (rss.Result, error) {
	if s.monitor == nil {
		return rss.Result{}, fmt.Errorf("rss monitor is not configured")
	}
	return s.monitor.Check(ctx)
}

// Wait ждет завершения фонового обхода
func (s *ScrapeService) Wait() {
	s.wg.Wait()
}

// Close прерывает фоновый обход и ждет его завершения
func (s *ScrapeService) Close() {
	s.cancel()
	s.wg.Wait()
}
