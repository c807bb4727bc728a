package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"project4869/internal/service"

	"go.uber.org/zap"
)

// shutdownTimeout время на остановку HTTP сервера
const shutdownTimeout = 30 * time.Second

// App представляет сервер: HTTP API и планировщик задач
type App struct {
	logger     *zap.Logger
	components *Components
	scheduler  *service.Scheduler
	server     *http.Server
}

// Components возвращает компоненты сбора
func (a *App) Components() *Components {
	return a.components
}

// Start запускает планировщик и HTTP сервер и блокируется до отмены ctx
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("Starting app")

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("App stopped by context")
		return nil
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}
}

// Stop gracefully останавливает сервер, планировщик и фоновый обход
func (a *App) Stop() error {
	a.logger.Info("Stopping app gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	a.scheduler.Stop()

	if err := a.components.Close(); err != nil {
		a.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	a.logger.Info("App stopped successfully")
	return nil
}
