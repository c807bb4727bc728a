package main

import (
	"sync"

	"project4869/internal/app"
	"project4869/internal/config"
	"project4869/pkg/logger"

	"go.uber.org/zap"
)

type commandContext struct {
	configOnce sync.Once
	config     *config.Config
	logConfig  logger.Config
	logger     *zap.Logger
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}

		logConfig := logger.DefaultConfig()
		logConfig.Level = cfg.LogLevel
		logConfig.Format = cfg.LogFormat
		logConfig.Output = cfg.LogOutput
		logConfig.FilePath = cfg.LogPath

		log, err := logger.New(logConfig)
		if err != nil {
			c.configErr = err
			return
		}

		c.config = cfg
		c.logConfig = logConfig
		c.logger = log
	})
	return c.config, c.configErr
}

// logPath возвращает путь к файлу лога или пустую строку, если лог пишется только в stdout
func (c *commandContext) logPath() string {
	if !c.logConfig.WritesFile() {
		return ""
	}
	return c.logConfig.FilePath
}

func (c *commandContext) factory() *app.ComponentFactory {
	return app.NewComponentFactory(c.config, c.logger)
}

func (c *commandContext) withComponents(fn func(*app.Components) error) error {
	components, err := c.factory().CreateComponents()
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			c.logger.Error("Failed to close components", zap.Error(err))
		}
	}()
	return fn(components)
}

func (c *commandContext) sync() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}
