// Package scraper содержит загрузку снимков страниц списка.
package scraper

import (
	"context"
	"time"
)

// Fetcher загружает HTML страницы по адресу
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config представляет конфигурацию загрузчика
type Config struct {
	HTTPClientConfig HTTPClientConfig
	UserAgent        string
	RequestTimeout   time.Duration
}

// HTTPClientConfig представляет конфигурацию HTTP клиента
type HTTPClientConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	DisableKeepAlives     bool
}

// DefaultHTTPClientConfig возвращает настройки транспорта по умолчанию
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
}
