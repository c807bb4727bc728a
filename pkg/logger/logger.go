// Package logger содержит настройку логгера.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config представляет конфигурацию логгера
type Config struct {
	Level      string
	Format     string // json | console
	Output     string // stdout | file | both
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "both",
		FilePath:   "logs/project4869.log",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// WritesFile проверяет, пишет ли логгер в файл
func (c Config) WritesFile() bool {
	return c.Output == "file" || c.Output == "both"
}

// New создает новый логгер
func New(config Config) (*zap.Logger, error) {
	// Настройка энкодера
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if config.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var cores []zapcore.Core

	// Консольный вывод
	if config.Output == "" || config.Output == "stdout" || config.Output == "both" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}

	// Файловый вывод
	if config.WritesFile() {
		if config.FilePath == "" {
			return nil, fmt.Errorf("log file path is required for output %q", config.Output)
		}
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		rotator := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("unknown log output %q", config.Output)
	}

	// Объединяем выводы
	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// NewNop создает пустой логгер для случаев, когда логирование не нужно
func NewNop() *zap.Logger {
	return zap.NewNop()
}
