// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"project4869/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrUnknownField возвращается при запросе уникальных значений неизвестного поля
var ErrUnknownField = errors.New("unknown record field")

// distinctFields поля, для которых строятся меню фильтров
var distinctFields = map[string]bool{
	"episode":      true,
	"resolution":   true,
	"container":    true,
	"subtitle":     true,
	"source_type":  true,
	"publish_date": true,
}

// replacedColumns столбцы, перезаписываемые при повторной записи той же ссылки
var replacedColumns = []string{
	"episode",
	"episode_title",
	"resolution",
	"container",
	"subtitle",
	"source_type",
	"raw_label",
	"publish_date",
	"updated_at",
}

// RecordRepository реализует интерфейс для работы с записями.
// Все записи в базу проходят через одну блокировку.
type RecordRepository struct {
	db     *bun.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// NewRecordRepository создает новый репозиторий записей
func NewRecordRepository(db *bun.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

// DistinctFields возвращает поля, доступные для ListDistinct
func DistinctFields() []string {
	fields := make([]string, 0, len(distinctFields))
	for field := range distinctFields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Upsert вставляет запись или полностью заменяет запись с той же ссылкой
func (r *RecordRepository) Upsert(ctx context.Context, record *model.Record) (model.UpsertResult, error) {
	if err := record.Validate(); err != nil {
		return 0, fmt.Errorf("invalid record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result model.UpsertResult
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*model.Record)(nil)).
			Where("link = ?", record.Link).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check record: %w", err)
		}

		now := time.Now().UTC()
		record.ID = 0
		record.CreatedAt = now
		record.UpdatedAt = now

		query := tx.NewInsert().
			Model(record).
			On("CONFLICT (link) DO UPDATE")
		for _, column := range replacedColumns {
			query = query.Set("? = EXCLUDED.?", bun.Ident(column), bun.Ident(column))
		}

		if _, err := query.Exec(ctx); err != nil {
			return fmt.Errorf("failed to upsert record: %w", err)
		}

		if exists {
			result = model.UpsertReplaced
		} else {
			result = model.UpsertInserted
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return result, nil
}

// UpsertBatch записывает записи по порядку. Ошибка отдельной записи учитывается
// в результате и не прерывает пакет.
func (r *RecordRepository) UpsertBatch(ctx context.Context, records []model.Record) model.BatchResult {
	var batch model.BatchResult

	for i := range records {
		result, err := r.Upsert(ctx, &records[i])
		if err != nil {
			r.logger.Warn("Failed to upsert record",
				zap.String("link", records[i].Link),
				zap.Error(err))
		}
		batch.Add(result, err)
		if err == nil && result == model.UpsertInserted {
			batch.InsertedLinks = append(batch.InsertedLinks, records[i].Link)
		}
	}

	return batch
}

// GetByLink возвращает запись по ссылке или nil, если ее нет
func (r *RecordRepository) GetByLink(ctx context.Context, link string) (*model.Record, error) {
	record := new(model.Record)

	err := r.db.NewSelect().
		Model(record).
		Where("link = ?", link).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query record by link: %w", err)
	}

	return record, nil
}

// ListAll возвращает все записи, последние вставленные первыми
func (r *RecordRepository) ListAll(ctx context.Context) ([]model.Record, error) {
	var records []model.Record

	err := r.db.NewSelect().
		Model(&records).
		Order("id DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	return records, nil
}

// ListRecent возвращает limit последних вставленных записей
func (r *RecordRepository) ListRecent(ctx context.Context, limit int) ([]model.Record, error) {
	var records []model.Record

	err := r.db.NewSelect().
		Model(&records).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to query recent records: %w", err)
	}

	return records, nil
}

// ListDistinct возвращает отсортированные непустые уникальные значения поля
func (r *RecordRepository) ListDistinct(ctx context.Context, field string) ([]string, error) {
	if !distinctFields[field] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	var values []string
	err := r.db.NewSelect().
		Model((*model.Record)(nil)).
		ColumnExpr("DISTINCT ?", bun.Ident(field)).
		Where("? IS NOT NULL", bun.Ident(field)).
		Where("? <> ''", bun.Ident(field)).
		OrderExpr("? ASC", bun.Ident(field)).
		Scan(ctx, &values)

	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s: %w", field, err)
	}

	return values, nil
}

// GroupByEpisode группирует записи по числовому номеру серии больше нуля
func (r *RecordRepository) GroupByEpisode(ctx context.Context) (*model.EpisodeGroups, error) {
	records, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	return GroupRecords(records), nil
}

// GroupRecords группирует уже загруженные записи по числовому номеру серии
func GroupRecords(records []model.Record) *model.EpisodeGroups {
	groups := &model.EpisodeGroups{Groups: make(map[int][]model.Record)}

	for _, record := range records {
		if !isDigits(record.Episode) {
			continue
		}
		episode, err := strconv.Atoi(record.Episode)
		if err != nil || episode <= 0 {
			continue
		}
		groups.Groups[episode] = append(groups.Groups[episode], record)
		if episode > groups.MaxEpisode {
			groups.MaxEpisode = episode
		}
	}

	return groups
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Count возвращает количество записей
func (r *RecordRepository) Count(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().
		Model((*model.Record)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Clear удаляет все записи и возвращает их количество
func (r *RecordRepository) Clear(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.NewDelete().
		Model((*model.Record)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear records: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	r.logger.Info("Cleared records", zap.Int64("count", affected))
	return int(affected), nil
}

var _ model.RecordRepository = (*RecordRepository)(nil)
