// Package storage содержит работу с базой данных.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"project4869/internal/model"
	"project4869/internal/storage/repository"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Storage представляет подключение к базе данных (PostgreSQL или SQLite)
type Storage struct {
	db      *bun.DB
	dialect string
	logger  *zap.Logger
	records *repository.RecordRepository
}

// Open открывает базу данных по DSN и создает схему.
// DSN вида postgres:// открывает PostgreSQL, остальные считаются файлом SQLite.
func Open(dsn string, logger *zap.Logger) (*Storage, error) {
	var (
		db      *bun.DB
		dialect string
		err     error
	)

	if isPostgresDSN(dsn) {
		dialect = DialectPostgres
		db, err = openPostgres(dsn, logger)
	} else {
		dialect = DialectSQLite
		db, err = openSQLite(dsn)
	}
	if err != nil {
		return nil, err
	}

	// Добавляем отладку в режиме разработки
	if logger.Core().Enabled(zap.DebugLevel) {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}

	s := &Storage{
		db:      db,
		dialect: dialect,
		logger:  logger,
		records: repository.NewRecordRepository(db, logger),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Migrate(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("Failed to close database connection", zap.Error(closeErr))
		}
		return nil, err
	}

	logger.Info("Connected to database with Bun ORM", zap.String("dialect", dialect))
	return s, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// openPostgres подключается к PostgreSQL, повторяя попытки пока база поднимается
func openPostgres(dsn string, logger *zap.Logger) (*bun.DB, error) {
	const maxAttempts = 5
	const attemptDelay = 3 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		logger.Info("Attempting to connect to database",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts))

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

		// Настраиваем пул соединений
		sqldb.SetMaxOpenConns(25)
		sqldb.SetMaxIdleConns(10)
		sqldb.SetConnMaxLifetime(5 * time.Minute)
		sqldb.SetConnMaxIdleTime(1 * time.Minute)

		db := bun.NewDB(sqldb, pgdialect.New())

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
		lastErr = db.PingContext(pingCtx)
		pingCancel()

		if lastErr == nil {
			return db, nil
		}

		logger.Warn("Failed to connect to database",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))

		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database connection", zap.Error(err))
		}

		if attempt < maxAttempts {
			time.Sleep(attemptDelay)
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, lastErr)
}

// openSQLite открывает файл SQLite, создавая каталог при необходимости
func openSQLite(dsn string) (*bun.DB, error) {
	if path := sqlitePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := sqldb.Exec(pragma); err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// sqlitePath возвращает путь к файлу базы или пустую строку для базы в памяти
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		if strings.Contains(path[i:], "mode=memory") {
			return ""
		}
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return ""
	}
	return path
}

// Migrate создает таблицы и индексы, если их нет
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*model.Record)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create magnets table: %w", err)
	}

	if _, err := s.db.NewCreateIndex().
		Model((*model.Record)(nil)).
		Index("magnets_episode_idx").
		Column("episode").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create episode index: %w", err)
	}

	return nil
}

// Ping проверяет соединение с базой данных
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close закрывает соединение с базой данных
func (s *Storage) Close() error {
	return s.db.Close()
}

// GetDB возвращает подключение к базе данных
func (s *Storage) GetDB() *bun.DB {
	return s.db
}

// Dialect возвращает имя используемого диалекта
func (s *Storage) Dialect() string {
	return s.dialect
}

// GetRecordRepository возвращает репозиторий записей, один на подключение
func (s *Storage) GetRecordRepository() *repository.RecordRepository {
	return s.records
}
