// Package service содержит планировщик задач и сервис сбора записей.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"project4869/internal/infrastructure/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// JobRSSMonitor проверка RSS ленты
	JobRSSMonitor = "rss_monitor"
	// JobFullScrape полный обход страницы списка
	JobFullScrape = "full_scrape"

	defaultJobTimeout = 30 * time.Minute
)

// ErrUnknownJob возвращается для незарегистрированной задачи
var ErrUnknownJob = errors.New("unknown job")

// JobFunc выполняет задачу по расписанию
type JobFunc func(ctx context.Context) error

// JobInfo описывает зарегистрированную задачу
type JobInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"cron_expression"`
	Next time.Time `json:"next_run"`
}

type scheduledJob struct {
	name     string
	spec     string
	schedule cron.Schedule
	entryID  cron.EntryID
	fn       JobFunc
}

// Scheduler управляет выполнением задач по расписанию
type Scheduler struct {
	cron       *cron.Cron
	jobs       map[string]*scheduledJob
	metrics    metrics.Interface
	logger     *zap.Logger
	mu         sync.RWMutex
	running    bool
	jobTimeout time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewScheduler создает новый планировщик
func NewScheduler(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		jobs:       make(map[string]*scheduledJob),
		logger:     logger,
		jobTimeout: defaultJobTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// WithMetrics включает публикацию времени следующего запуска
func (s *Scheduler) WithMetrics(m metrics.Interface) *Scheduler {
	s.metrics = m
	return s
}

// ParseSpec проверяет стандартное cron выражение из пяти полей
func ParseSpec(spec string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return schedule, nil
}

// AddJob регистрирует задачу. Повторная регистрация имени заменяет задачу.
func (s *Scheduler) AddJob(name, spec string, fn JobFunc) error {
	schedule, err := ParseSpec(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.jobs[name]; exists {
		s.cron.Remove(old.entryID)
	}

	job := &scheduledJob{name: name, spec: spec, schedule: schedule, fn: fn}
	job.entryID = s.cron.Schedule(schedule, cron.FuncJob(func() { s.execute(job) }))
	s.jobs[name] = job

	s.logger.Info("Added job to cron",
		zap.String("job", name),
		zap.String("cron_expression", spec))

	s.publishNextLocked(job)
	return nil
}

// Reschedule заменяет расписание зарегистрированной задачи
func (s *Scheduler) Reschedule(name, spec string) error {
	schedule, err := ParseSpec(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	s.cron.Remove(job.entryID)
	job.spec = spec
	job.schedule = schedule
	job.entryID = s.cron.Schedule(schedule, cron.FuncJob(func() { s.execute(job) }))

	s.logger.Info("Rescheduled job",
		zap.String("job", name),
		zap.String("cron_expression", spec))

	s.publishNextLocked(job)
	return nil
}

// Next возвращает время следующего запуска задачи
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[name]
	if !exists {
		return time.Time{}, false
	}
	return s.nextLocked(job), true
}

// Spec возвращает cron выражение задачи
func (s *Scheduler) Spec(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[name]
	if !exists {
		return "", false
	}
	return job.spec, true
}

// Jobs возвращает зарегистрированные задачи, отсортированные по имени
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		infos = append(infos, JobInfo{Name: job.name, Spec: job.spec, Next: s.nextLocked(job)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// RunNow выполняет задачу немедленно в текущей горутине
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(job)
}

// Start запускает планировщик
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.cron.Start()
	s.running = true

	for _, job := range s.jobs {
		s.publishNextLocked(job)
	}

	s.logger.Info("Scheduler started successfully", zap.Int("jobs_count", len(s.jobs)))
	return nil
}

// Stop останавливает планировщик и ждет завершения выполняемых задач
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")

	s.cancel()
	<-s.cron.Stop().Done()

	s.logger.Info("Scheduler stopped")
}

// Running сообщает, запущен ли планировщик
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Check возвращает ошибку, если планировщик не запущен
func (s *Scheduler) Check(_ context.Context) error {
	if !s.Running() {
		return fmt.Errorf("scheduler is not running")
	}
	return nil
}

// execute выполняет задачу по расписанию
func (s *Scheduler) execute(job *scheduledJob) {
	s.logger.Info("Executing scheduled job", zap.String("job", job.name))

	if err := s.run(job); err != nil {
		s.logger.Error("Scheduled job execution failed",
			zap.String("job", job.name),
			zap.Error(err))
	}

	s.mu.RLock()
	s.publishNextLocked(job)
	s.mu.RUnlock()
}

func (s *Scheduler) run(job *scheduledJob) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.fn(ctx)
	s.logger.Info("Job finished",
		zap.String("job", job.name),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("success", err == nil))
	return err
}

// nextLocked возвращает время следующего запуска; до старта считает его по расписанию
func (s *Scheduler) nextLocked(job *scheduledJob) time.Time {
	if s.running {
		if next := s.cron.Entry(job.entryID).Next; !next.IsZero() {
			return next
		}
	}
	return job.schedule.Next(time.Now().UTC())
}

func (s *Scheduler) publishNextLocked(job *scheduledJob) {
	if s.metrics != nil {
		s.metrics.SetNextRun(job.name, s.nextLocked(job))
	}
}
