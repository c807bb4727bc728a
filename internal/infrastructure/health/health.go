// Package health реализует проверки состояния сервиса для /health и /ready.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"

	checkTimeout = 5 * time.Second
)

// CheckFunc проверяет один компонент
type CheckFunc func(ctx context.Context) error

// Status представляет статус здоровья системы
type Status struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// Checker выполняет зарегистрированные проверки компонентов
type Checker struct {
	mu        sync.RWMutex
	checks    map[string]CheckFunc
	logger    *zap.Logger
	version   string
	startTime time.Time
}

var _ CheckerInterface = (*Checker)(nil)

// NewChecker создает новый набор проверок
func NewChecker(version string, logger *zap.Logger) *Checker {
	return &Checker{
		checks:    make(map[string]CheckFunc),
		logger:    logger,
		version:   version,
		startTime: time.Now(),
	}
}

// Register добавляет проверку компонента
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check возвращает состояние всех компонентов
func (c *Checker) Check(ctx context.Context) Status {
	components := c.checkComponents(ctx)

	overallStatus := StatusHealthy
	for _, status := range components {
		if status != StatusHealthy {
			overallStatus = StatusUnhealthy
			break
		}
	}

	return Status{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Uptime:     formatDuration(time.Since(c.startTime)),
		Version:    c.version,
		Components: components,
	}
}

// checkComponents проверяет состояние всех компонентов
func (c *Checker) checkComponents(ctx context.Context) map[string]string {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	sort.Strings(names)

	components := make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name](checkCtx)
		cancel()

		if err != nil {
			components[name] = StatusUnhealthy
			c.logger.Error("Component check failed", zap.String("component", name), zap.Error(err))
			continue
		}
		components[name] = StatusHealthy
	}

	return components
}

// HealthHandler обрабатывает запросы /health. Отвечает 200, пока процесс жив.
func (c *Checker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status := c.Check(r.Context())
	status.Status = StatusHealthy
	c.writeStatus(w, http.StatusOK, status)
}

// ReadyHandler обрабатывает запросы /ready
func (c *Checker) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	status := c.Check(r.Context())

	code := http.StatusOK
	if status.Status == StatusHealthy {
		status.Status = StatusReady
		c.logger.Debug("Health check passed", zap.Any("components", status.Components))
	} else {
		code = http.StatusServiceUnavailable
		c.logger.Warn("Health check failed", zap.Any("components", status.Components))
	}

	c.writeStatus(w, code, status)
}

func (c *Checker) writeStatus(w http.ResponseWriter, code int, status Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(status); err != nil {
		c.logger.Error("Failed to encode health status", zap.Error(err))
	}
}

// formatDuration форматирует время в читаемый формат (например: 8s)
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
