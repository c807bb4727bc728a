// Package worker реализует пул воркеров для параллельной обработки задач.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ошибки
var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Pool пул воркеров для обработки задач
type Pool struct {
	workers  int
	jobQueue chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *zap.Logger
	stopOnce sync.Once
	stopped  bool
	mu       sync.RWMutex

	statsMu sync.RWMutex
	stats   Metrics
}

// Убеждаемся, что Pool реализует PoolInterface
var _ PoolInterface = (*Pool)(nil)

// Job представляет задачу для обработки
type Job struct {
	ID      int
	Name    string
	Handler func() error
}

// Metrics снимок метрик воркер пула
type Metrics struct {
	ProcessedJobs  int64         `json:"processed_jobs"`
	FailedJobs     int64         `json:"failed_jobs"`
	ProcessingTime time.Duration `json:"processing_time"`
	QueueSize      int           `json:"queue_size"`
}

// NewWorkerPool создает новый пул воркеров
func NewWorkerPool(workers int, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}
}

// Start запускает пул воркеров
func (wp *Pool) Start() {
	wp.logger.Info("Starting worker pool", zap.Int("workers", wp.workers))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop останавливает пул воркеров. Задачи, уже попавшие в очередь, выполняются до выхода.
func (wp *Pool) Stop() {
	wp.logger.Info("Stopping worker pool")
	wp.cancel()

	wp.stopOnce.Do(func() {
		wp.mu.Lock()
		wp.stopped = true
		wp.mu.Unlock()
		close(wp.jobQueue)
	})

	wp.wg.Wait()
	wp.logger.Info("Worker pool stopped")
}

// Size возвращает количество воркеров
func (wp *Pool) Size() int {
	return wp.workers
}

// Submit добавляет задачу в очередь, не дожидаясь свободного места
func (wp *Pool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.jobQueue <- job:
		wp.updateQueueSize()
		return nil
	case <-wp.ctx.Done():
		return ErrPoolStopped
	default:
		return ErrQueueFull
	}
}

// SubmitWait добавляет задачу в очередь, ожидая свободного места
func (wp *Pool) SubmitWait(ctx context.Context, job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.jobQueue <- job:
		wp.updateQueueSize()
		return nil
	case <-wp.ctx.Done():
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *Pool) updateQueueSize() {
	wp.statsMu.Lock()
	wp.stats.QueueSize = len(wp.jobQueue)
	wp.statsMu.Unlock()
}

// worker основной цикл воркера
func (wp *Pool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug("Worker started", zap.Int("worker_id", id))

	for job := range wp.jobQueue {
		wp.updateQueueSize()
		wp.processJob(job, id)
	}

	wp.logger.Debug("Worker stopping", zap.Int("worker_id", id))
}

// processJob обрабатывает задачу
func (wp *Pool) processJob(job Job, workerID int) {
	startTime := time.Now()

	wp.logger.Debug("Processing job",
		zap.Int("worker_id", workerID),
		zap.Int("job_id", job.ID),
		zap.String("job", job.Name))

	if err := job.Handler(); err != nil {
		wp.logger.Error("Job processing failed",
			zap.Int("worker_id", workerID),
			zap.Int("job_id", job.ID),
			zap.String("job", job.Name),
			zap.Error(err))

		wp.statsMu.Lock()
		wp.stats.FailedJobs++
		wp.statsMu.Unlock()
		return
	}

	duration := time.Since(startTime)

	wp.statsMu.Lock()
	wp.stats.ProcessedJobs++
	wp.stats.ProcessingTime += duration
	wp.statsMu.Unlock()

	wp.logger.Debug("Job processed successfully",
		zap.Int("worker_id", workerID),
		zap.Int("job_id", job.ID),
		zap.Duration("duration", duration))
}

// GetMetrics возвращает текущие метрики
func (wp *Pool) GetMetrics() Metrics {
	wp.statsMu.RLock()
	defer wp.statsMu.RUnlock()
	return wp.stats
}

// GetProcessedJobs возвращает количество обработанных задач
func (wp *Pool) GetProcessedJobs() int64 {
	return wp.GetMetrics().ProcessedJobs
}

// GetFailedJobs возвращает количество неудачных задач
func (wp *Pool) GetFailedJobs() int64 {
	return wp.GetMetrics().FailedJobs
}

// GetProcessingTime возвращает общее время обработки
func (wp *Pool) GetProcessingTime() time.Duration {
	return wp.GetMetrics().ProcessingTime
}

// GetQueueSize возвращает текущий размер очереди
func (wp *Pool) GetQueueSize() int {
	return wp.GetMetrics().QueueSize
}
