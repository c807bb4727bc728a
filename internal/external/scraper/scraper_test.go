package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><div class="item">1190 ` + r.UserAgent() + `</div></body></html>`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetcher_Fetch(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewFetcher(Config{
		HTTPClientConfig: DefaultHTTPClientConfig(),
		UserAgent:        "project4869-test",
	}, zap.NewNop())

	html, err := fetcher.Fetch(context.Background(), server.URL+"/list")
	require.NoError(t, err)
	assert.Contains(t, html, `<div class="item">1190 project4869-test</div>`)
}

func TestFetcher_FetchErrors(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewFetcher(Config{
		HTTPClientConfig: DefaultHTTPClientConfig(),
		RequestTimeout:   200 * time.Millisecond,
	}, zap.NewNop())

	tests := []struct {
		name string
		path string
	}{
		{name: "not found", path: "/missing"},
		{name: "empty body", path: "/empty"},
		{name: "timeout", path: "/slow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fetcher.Fetch(context.Background(), server.URL+tt.path)
			assert.Error(t, err)
		})
	}
}

func TestFetcher_FetchEmptyBody(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewFetcher(Config{HTTPClientConfig: DefaultHTTPClientConfig()}, zap.NewNop())

	_, err := fetcher.Fetch(context.Background(), server.URL+"/empty")
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestFetcher_FetchCancelled(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewFetcher(Config{HTTPClientConfig: DefaultHTTPClientConfig()}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, server.URL+"/list")
	assert.Error(t, err)
}
