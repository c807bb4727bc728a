package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"project4869/internal/infrastructure/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"0 * * * *", false},
		{"*/15 * * * *", false},
		{"@hourly", false},
		{"0 * * *", true},
		{"61 * * * *", true},
		{"not a cron", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := ParseSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduler_AddAndReschedule(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob(JobRSSMonitor, "0 * * * *", func(context.Context) error { return nil }))
	assert.Error(t, s.AddJob(JobFullScrape, "bad", func(context.Context) error { return nil }))

	spec, ok := s.Spec(JobRSSMonitor)
	require.True(t, ok)
	assert.Equal(t, "0 * * * *", spec)

	next, ok := s.Next(JobRSSMonitor)
	require.True(t, ok)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 0, next.Minute())

	require.NoError(t, s.Reschedule(JobRSSMonitor, "30 2 * * *"))
	next, _ = s.Next(JobRSSMonitor)
	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 30, next.Minute())

	// Некорректное выражение не меняет расписание
	assert.Error(t, s.Reschedule(JobRSSMonitor, "99 * * * *"))
	spec, _ = s.Spec(JobRSSMonitor)
	assert.Equal(t, "30 2 * * *", spec)

	assert.ErrorIs(t, s.Reschedule("unknown", "0 * * * *"), ErrUnknownJob)

	_, ok = s.Next("unknown")
	assert.False(t, ok)
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	calls := 0
	require.NoError(t, s.AddJob(JobRSSMonitor, "0 * * * *", func(ctx context.Context) error {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	}))
	require.NoError(t, s.AddJob(JobFullScrape, "0 3 * * *", func(context.Context) error {
		return errors.New("fetch failed")
	}))

	assert.NoError(t, s.RunNow(JobRSSMonitor))
	assert.Equal(t, 1, calls)
	assert.Error(t, s.RunNow(JobFullScrape))
	assert.ErrorIs(t, s.RunNow("unknown"), ErrUnknownJob)
}

func TestScheduler_StartStop(t *testing.T) {
	m := metrics.NewMetrics(zap.NewNop())
	s := NewScheduler(zap.NewNop()).WithMetrics(m)

	require.NoError(t, s.AddJob(JobRSSMonitor, "0 * * * *", func(context.Context) error { return nil }))
	require.NoError(t, s.AddJob(JobFullScrape, "0 3 * * *", func(context.Context) error { return nil }))

	assert.Error(t, s.Check(context.Background()))

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	assert.True(t, s.Running())
	assert.NoError(t, s.Check(context.Background()))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobFullScrape, jobs[0].Name)
	assert.Equal(t, JobRSSMonitor, jobs[1].Name)
	assert.False(t, jobs[1].Next.IsZero())

	system := m.GetStats()["system"].(map[string]interface{})
	nextRuns := system["next_runs"].(map[string]interface{})
	assert.NotEqual(t, "not set", nextRuns[JobRSSMonitor])

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestScheduler_ExecutesOnSchedule(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	done := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("tick", "@every 1s", func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}))

	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job was not executed")
	}
}
