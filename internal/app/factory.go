// Package app содержит фабрику компонентов приложения.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"project4869/internal/api"
	"project4869/internal/assemble"
	"project4869/internal/config"
	"project4869/internal/external/rss"
	"project4869/internal/external/scraper"
	"project4869/internal/external/telegram"
	"project4869/internal/extract"
	"project4869/internal/infrastructure/health"
	"project4869/internal/infrastructure/metrics"
	"project4869/internal/infrastructure/worker"
	"project4869/internal/pipeline"
	"project4869/internal/service"
	"project4869/internal/storage"

	"go.uber.org/zap"
)

// Version версия сборки, задается через -ldflags
var Version = "dev"

// queuePerWorker длина очереди пула на одного воркера
const queuePerWorker = 16

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config *config.Config
	logger *zap.Logger
}

// Components компоненты сбора, общие для сервера и команд CLI
type Components struct {
	Storage  *storage.Storage
	Pool     *worker.Pool
	Metrics  *metrics.Metrics
	Pipeline *pipeline.Pipeline
	Monitor  *rss.Monitor
	Scrape   *service.ScrapeService
}

// Close останавливает пул и закрывает базу данных
func (c *Components) Close() error {
	c.Scrape.Close()
	c.Pool.Stop()
	return c.Storage.Close()
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(config *config.Config, logger *zap.Logger) *ComponentFactory {
	if logger == nil {
		panic("Logger cannot be nil")
	}
	if config == nil {
		logger.Fatal("Config cannot be nil")
	}

	return &ComponentFactory{
		config: config,
		logger: logger,
	}
}

// CreateDatabase открывает хранилище и применяет миграции
func (f *ComponentFactory) CreateDatabase() (*storage.Storage, error) {
	db, err := storage.Open(f.config.DatabaseURL, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	f.logger.Info("Database connection created successfully", zap.String("dialect", db.Dialect()))
	return db, nil
}

// CreateProfile загружает профиль разметки сайта или возвращает встроенный
func (f *ComponentFactory) CreateProfile() (config.Profile, error) {
	if f.config.ProfilePath == "" {
		return config.DefaultProfile(), nil
	}

	profile, err := config.LoadProfile(f.config.ProfilePath)
	if err != nil {
		return config.Profile{}, fmt.Errorf("failed to load site profile: %w", err)
	}

	f.logger.Info("Site profile loaded", zap.String("path", f.config.ProfilePath))
	return profile, nil
}

// CreateAssembler создает сборщик записей
func (f *ComponentFactory) CreateAssembler() *assemble.Assembler {
	return assemble.NewAssembler(extract.NewExtractor(f.config.SubtitlePolicy))
}

// CreateFetcher создает загрузчик страниц
func (f *ComponentFactory) CreateFetcher() scraper.Fetcher {
	fetcher := scraper.NewFetcher(scraper.Config{
		HTTPClientConfig: scraper.DefaultHTTPClientConfig(),
		UserAgent:        f.config.UserAgent,
		RequestTimeout:   f.config.RequestTimeout,
	}, f.logger)

	f.logger.Info("Fetcher created successfully")
	return fetcher
}

// CreateWorkerPool создает и запускает пул воркеров
func (f *ComponentFactory) CreateWorkerPool() *worker.Pool {
	pool := worker.NewWorkerPool(f.config.Workers, f.config.Workers*queuePerWorker, f.logger)
	pool.Start()
	return pool
}

// CreateNotifier создает уведомления в Telegram. Возвращает nil, если они не настроены.
func (f *ComponentFactory) CreateNotifier() (*telegram.Notifier, error) {
	if !f.config.NotificationsEnabled() {
		f.logger.Info("Telegram notifications are disabled")
		return nil, nil
	}

	notifier, err := telegram.NewNotifier(f.config.BotToken, f.config.NotifyChatID, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
	}

	f.logger.Info("Telegram notifier created successfully", zap.Int64("chat_id", f.config.NotifyChatID))
	return notifier, nil
}

// CreateComponents создает хранилище, конвейер, монитор RSS и сервис сбора
func (f *ComponentFactory) CreateComponents() (*Components, error) {
	profile, err := f.CreateProfile()
	if err != nil {
		return nil, err
	}

	notifier, err := f.CreateNotifier()
	if err != nil {
		return nil, err
	}

	db, err := f.CreateDatabase()
	if err != nil {
		return nil, err
	}

	repo := db.GetRecordRepository()
	m := metrics.NewMetrics(f.logger)
	pool := f.CreateWorkerPool()
	assembler := f.CreateAssembler()

	p := pipeline.New(profile, assembler, repo, f.config.BatchSize, f.logger).
		WithPool(pool).
		WithMetrics(m)

	monitor := rss.NewMonitor(rss.Config{
		URL:       f.config.RSSURL,
		UserAgent: f.config.UserAgent,
		Timeout:   f.config.RequestTimeout,
	}, assembler, repo, f.logger).WithMetrics(m)

	if notifier != nil {
		p.WithNotifier(notifier)
		monitor.WithNotifier(notifier)
	}

	scrape := service.NewScrapeService(f.CreateFetcher(), p, monitor, f.config.SourceURL, f.logger).
		WithMetrics(m)

	return &Components{
		Storage:  db,
		Pool:     pool,
		Metrics:  m,
		Pipeline: p,
		Monitor:  monitor,
		Scrape:   scrape,
	}, nil
}

// CreateScheduler регистрирует проверку RSS и, если задано расписание, полный обход
func (f *ComponentFactory) CreateScheduler(c *Components) (*service.Scheduler, error) {
	scheduler := service.NewScheduler(f.logger).WithMetrics(c.Metrics)

	err := scheduler.AddJob(service.JobRSSMonitor, f.config.RSSCron, func(ctx context.Context) error {
		_, err := c.Scrape.Monitor(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule rss monitor: %w", err)
	}

	if f.config.ScrapeCron != "" {
		err := scheduler.AddJob(service.JobFullScrape, f.config.ScrapeCron, func(ctx context.Context) error {
			_, err := c.Scrape.RunFull(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule full scrape: %w", err)
		}
	}

	return scheduler, nil
}

// CreateHealthChecker создает проверку состояния базы данных и планировщика
func (f *ComponentFactory) CreateHealthChecker(c *Components, scheduler *service.Scheduler) *health.Checker {
	checker := health.NewChecker(Version, f.logger)
	checker.Register("database", c.Storage.Ping)
	checker.Register("scheduler", scheduler.Check)
	return checker
}

// CreateServer создает HTTP сервер API
func (f *ComponentFactory) CreateServer(c *Components, scheduler *service.Scheduler, checker *health.Checker, logPath string) *http.Server {
	router := api.NewServer(api.Dependencies{
		Records:      c.Storage.GetRecordRepository(),
		Scrape:       c.Scrape,
		Scheduler:    scheduler,
		Health:       checker,
		Metrics:      c.Metrics,
		LogPath:      logPath,
		APIAccessKey: f.config.APIAccessKey,
		Logger:       f.logger,
	})

	return &http.Server{
		Addr:              ":" + f.config.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// CreateApp создает приложение со всеми зависимостями
func (f *ComponentFactory) CreateApp(logPath string) (*App, error) {
	components, err := f.CreateComponents()
	if err != nil {
		return nil, err
	}

	scheduler, err := f.CreateScheduler(components)
	if err != nil {
		_ = components.Close()
		return nil, err
	}

	checker := f.CreateHealthChecker(components, scheduler)
	server := f.CreateServer(components, scheduler, checker, logPath)

	f.logger.Info("App created successfully with all dependencies",
		zap.String("version", Version),
		zap.String("http_addr", server.Addr))

	return &App{
		logger:     f.logger,
		components: components,
		scheduler:  scheduler,
		server:     server,
	}, nil
}
