package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"project4869/internal/export"
	"project4869/internal/infrastructure/health"
	"project4869/internal/infrastructure/metrics"
	"project4869/internal/model"
	"project4869/internal/service"
	"project4869/internal/storage"
	"project4869/internal/storage/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeTrigger struct {
	calls   int
	running bool
}

func (f *fakeTrigger) TriggerFull() error {
	if f.running {
		return service.ErrScrapeRunning
	}
	f.calls++
	f.running = true
	return nil
}

func (f *fakeTrigger) Running() bool { return f.running }

type testEnv struct {
	router    *gin.Engine
	repo      *repository.RecordRepository
	trigger   *fakeTrigger
	scheduler *service.Scheduler
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	logger := zap.NewNop()

	store, err := storage.Open(filepath.Join(t.TempDir(), "magnets.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	scheduler := service.NewScheduler(logger)
	require.NoError(t, scheduler.AddJob(service.JobRSSMonitor, "*/15 * * * *", func(context.Context) error { return nil }))

	checker := health.NewChecker("test", logger)
	checker.Register("database", store.Ping)

	logPath := filepath.Join(t.TempDir(), "app.log")
	var lines strings.Builder
	for i := 1; i <= 60; i++ {
		fmt.Fprintf(&lines, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(logPath, []byte(lines.String()), 0o644))

	trigger := &fakeTrigger{}
	repo := store.GetRecordRepository()

	router := NewServer(Dependencies{
		Records:      repo,
		Scrape:       trigger,
		Scheduler:    scheduler,
		Health:       checker,
		Metrics:      metrics.NewMetrics(logger),
		LogPath:      logPath,
		APIAccessKey: apiKey,
		Logger:       logger,
	})

	return &testEnv{router: router, repo: repo, trigger: trigger, scheduler: scheduler}
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()

	batch := e.repo.UpsertBatch(context.Background(), []model.Record{
		{Link: "magnet:?xt=1", Episode: "1190", Resolution: model.Resolution1080P, Container: model.ContainerMKV, Subtitle: "简日", PublishDate: "2026-01-25"},
		{Link: "magnet:?xt=2", Episode: "1190", Resolution: model.Resolution720P, Container: model.ContainerMP4, Subtitle: "繁日", PublishDate: "2026-01-25"},
		{Link: "magnet:?xt=3", Episode: "M27", Resolution: model.Resolution4K, Container: model.ContainerMKV, PublishDate: "2026-01-26"},
	})
	require.Equal(t, 3, batch.Inserted)
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestListMagnets(t *testing.T) {
	env := newTestEnv(t, "")
	env.seed(t)

	w := env.do(http.MethodGet, "/api/magnets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data       []model.Record           `json:"data"`
		MaxEpisode int                      `json:"max_episode"`
		Groups     map[string][]model.Record `json:"grouped_by_episode"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Len(t, resp.Data, 3)
	assert.Equal(t, "magnet:?xt=3", resp.Data[0].Link)
	assert.Equal(t, 1190, resp.MaxEpisode)
	assert.Len(t, resp.Groups, 1)
	assert.Len(t, resp.Groups["1190"], 2)
}

func TestListMagnets_Empty(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodGet, "/api/magnets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
	assert.Contains(t, w.Body.String(), `"max_episode":0`)
}

func TestFilters(t *testing.T) {
	env := newTestEnv(t, "")
	env.seed(t)

	w := env.do(http.MethodGet, "/api/magnets/filters", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var filters map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filters))

	assert.Equal(t, []string{"1080P", "4K", "720P"}, filters["resolution"])
	assert.Equal(t, []string{"MKV", "MP4"}, filters["container"])
	assert.Equal(t, []string{}, filters["source_type"])
	assert.Len(t, filters, len(repository.DistinctFields()))
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, "")
	env.seed(t)

	w := env.do(http.MethodGet, "/api/magnets/export", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestClearMagnets_Auth(t *testing.T) {
	env := newTestEnv(t, "secret")
	env.seed(t)

	w := env.do(http.MethodDelete, "/api/magnets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodDelete, "/api/magnets", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	count, err := env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	w = env.do(http.MethodDelete, "/api/magnets", "", map[string]string{"Authorization": "Bearer secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":3`)

	count, err = env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTriggerFullScrape(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPost, "/api/scrape/full", "", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = env.do(http.MethodPost, "/api/scrape/full", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, env.trigger.calls)
}

func TestRSSConfig(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodGet, "/api/rss/config", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cron_expression":"*/15 * * * *"`)

	w = env.do(http.MethodPost, "/api/rss/config", `{"cron_expression": "0 * * * *"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	spec, ok := env.scheduler.Spec(service.JobRSSMonitor)
	require.True(t, ok)
	assert.Equal(t, "0 * * * *", spec)

	tests := []struct {
		name string
		body string
	}{
		{"invalid expression", `{"cron_expression": "every minute"}`},
		{"missing field", `{}`},
		{"malformed json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/rss/config", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	spec, _ = env.scheduler.Spec(service.JobRSSMonitor)
	assert.Equal(t, "0 * * * *", spec)
}

func TestLogs(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodGet, "/api/system/logs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Logs []string `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, logTailLines)
	assert.Equal(t, "line 11", resp.Logs[0])
	assert.Equal(t, "line 60", resp.Logs[len(resp.Logs)-1])
}

func TestTailFile_Missing(t *testing.T) {
	_, err := tailFile(filepath.Join(t.TempDir(), "missing.log"), 10)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), health.StatusHealthy)

	w = env.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), health.StatusReady)
}

func TestStatsAndMetrics(t *testing.T) {
	env := newTestEnv(t, "")
	env.seed(t)

	w := env.do(http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, float64(3), stats["record_count"])
	assert.Equal(t, false, stats["scrape_running"])
	assert.Contains(t, stats, "pipeline")
	assert.Len(t, stats["jobs"], 1)

	w = env.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "project4869_")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, "secret")

	w := env.do(http.MethodOptions, "/api/magnets", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
