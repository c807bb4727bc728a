package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// DefaultUserAgent User-Agent браузера, под который отдается страница списка
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrEmptyResponse возвращается, если сервер ответил пустым телом
var ErrEmptyResponse = errors.New("empty response body")

// fetcherImpl реализует интерфейс Fetcher на базе colly
type fetcherImpl struct {
	config    Config
	logger    *zap.Logger
	transport *http.Transport
}

// NewFetcher создает новый загрузчик. Каждый вызов Fetch делает одну попытку.
func NewFetcher(config Config, logger *zap.Logger) Fetcher {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}

	return &fetcherImpl{
		config:    config,
		logger:    logger,
		transport: newTransport(config.HTTPClientConfig),
	}
}

// newCollector создает collector colly с user agent, таймаутом и контекстом запроса
func (f *fetcherImpl) newCollector(ctx context.Context) *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)

	collector.WithTransport(f.transport)
	collector.SetRequestTimeout(f.config.RequestTimeout)

	collector.OnRequest(func(r *colly.Request) {
		f.logger.Debug("Making request", zap.String("url", r.URL.String()))
	})

	return collector
}

// Fetch загружает страницу и возвращает ее HTML
func (f *fetcherImpl) Fetch(ctx context.Context, url string) (string, error) {
	var (
		body     []byte
		fetchErr error
	)

	collector := f.newCollector(ctx)

	collector.OnResponse(func(r *colly.Response) {
		f.logger.Debug("Received response",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status", r.StatusCode),
			zap.Int("size", len(r.Body)))
		body = r.Body
	})

	collector.OnError(func(r *colly.Response, err error) {
		f.logger.Error("Failed to fetch page",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status", r.StatusCode),
			zap.Error(err))
		fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := collector.Visit(url); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if fetchErr != nil {
			return "", fmt.Errorf("failed to fetch %s: %w", url, fetchErr)
		}
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if fetchErr != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, fetchErr)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("failed to fetch %s: %w", url, ErrEmptyResponse)
	}

	f.logger.Info("Fetched page", zap.String("url", url), zap.Int("size", len(body)))
	return string(body), nil
}
