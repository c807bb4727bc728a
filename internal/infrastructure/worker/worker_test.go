package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWorkerPool(t *testing.T) {
	logger := zap.NewNop()
	pool := NewWorkerPool(2, 10, logger)

	pool.Start()
	defer pool.Stop()

	var results sync.Map
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		jobID := i

		job := Job{
			ID:   jobID,
			Name: "test",
			Handler: func() error {
				defer wg.Done()
				results.Store(jobID, true)
				return nil
			},
		}

		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job %d: %v", jobID, err)
		}
	}

	wg.Wait()

	for i := 0; i < 5; i++ {
		if _, ok := results.Load(i); !ok {
			t.Errorf("Job %d was not processed", i)
		}
	}

	// Счетчик обновляется после возврата обработчика
	deadline := time.Now().Add(time.Second)
	for pool.GetProcessedJobs() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := pool.GetProcessedJobs(); got != 5 {
		t.Errorf("Expected 5 processed jobs, got %d", got)
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	logger := zap.NewNop()
	pool := NewWorkerPool(1, 5, logger)

	pool.Start()
	defer pool.Stop()

	done := make(chan struct{})
	job := Job{
		ID:   1,
		Name: "error_test",
		Handler: func() error {
			defer close(done)
			return errors.New("test error")
		},
	}

	if err := pool.Submit(job); err != nil {
		t.Fatalf("Failed to submit job: %v", err)
	}

	<-done

	deadline := time.Now().Add(time.Second)
	for pool.GetFailedJobs() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := pool.GetMetrics().FailedJobs; got != 1 {
		t.Errorf("Expected 1 failed job, got %d", got)
	}
}

func TestWorkerPoolStopped(t *testing.T) {
	logger := zap.NewNop()
	pool := NewWorkerPool(1, 5, logger)

	pool.Start()
	pool.Stop()

	job := Job{ID: 1, Name: "test", Handler: func() error { return nil }}

	if err := pool.Submit(job); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Expected ErrPoolStopped, got %v", err)
	}
	if err := pool.SubmitWait(context.Background(), job); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Expected ErrPoolStopped, got %v", err)
	}
}

func TestWorkerPoolQueueFull(t *testing.T) {
	logger := zap.NewNop()
	pool := NewWorkerPool(1, 1, logger)

	pool.Start()
	defer pool.Stop()

	jobStarted := make(chan struct{})
	release := make(chan struct{})

	job1 := Job{
		ID:   1,
		Name: "blocking",
		Handler: func() error {
			close(jobStarted)
			<-release
			return nil
		},
	}

	if err := pool.Submit(job1); err != nil {
		t.Fatalf("Failed to submit first job: %v", err)
	}
	<-jobStarted

	noop := Job{ID: 2, Name: "noop", Handler: func() error { return nil }}
	if err := pool.Submit(noop); err != nil {
		t.Fatalf("Failed to submit second job: %v", err)
	}

	if err := pool.Submit(noop); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := pool.SubmitWait(ctx, noop); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}

	close(release)
}

func TestNewWorkerPoolBounds(t *testing.T) {
	pool := NewWorkerPool(0, -1, zap.NewNop())
	if pool.Size() != 1 {
		t.Errorf("Expected 1 worker, got %d", pool.Size())
	}
}
