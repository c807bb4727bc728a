package health

import (
	"context"
	"net/http"
)

// CheckerInterface определяет интерфейс для проверки состояния сервиса
type CheckerInterface interface {
	// Register добавляет проверку компонента
	Register(name string, check CheckFunc)

	// Check возвращает состояние всех компонентов
	Check(ctx context.Context) Status

	// HealthHandler обрабатывает запросы /health
	HealthHandler(w http.ResponseWriter, r *http.Request)

	// ReadyHandler обрабатывает запросы /ready
	ReadyHandler(w http.ResponseWriter, r *http.Request)
}
