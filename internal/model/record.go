// Package model содержит модели данных.
//
// Группа: ENTITIES - Основные сущности
// Содержит: Record, RecordRepository, BatchResult, EpisodeGroups
package model

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Record представляет одну ссылку на релиз с нормализованными метаданными
type Record struct {
	bun.BaseModel `bun:"table:magnets,alias:m"`

	ID           int64      `bun:"id,pk,autoincrement" json:"id"`
	Link         string     `bun:"link,notnull,unique" json:"link"`
	Episode      string     `bun:"episode,nullzero" json:"episode,omitempty"`
	EpisodeTitle string     `bun:"episode_title,nullzero" json:"episode_title,omitempty"`
	Resolution   Resolution `bun:"resolution,nullzero" json:"resolution,omitempty"`
	Container    Container  `bun:"container,notnull" json:"container"`
	Subtitle     string     `bun:"subtitle,nullzero" json:"subtitle,omitempty"`
	SourceType   string     `bun:"source_type,nullzero" json:"source_type,omitempty"`
	RawLabel     string     `bun:"raw_label,nullzero" json:"raw_label,omitempty"`
	PublishDate  string     `bun:"publish_date,notnull" json:"publish_date"`
	CreatedAt    time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// Validate проверяет валидность записи
func (r *Record) Validate() error {
	var errors ValidationErrors

	if err := ValidateRequired("link", r.Link); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if !r.Container.IsValid() {
		errors = append(errors, ValidationError{Field: "container", Message: "must be one of: MKV, MP4, AVI"})
	}

	if r.Resolution != "" && !r.Resolution.IsValid() {
		errors = append(errors, ValidationError{Field: "resolution", Message: "unknown resolution"})
	}

	if err := ValidateISODate("publish_date", r.PublishDate); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// BatchResult содержит итог пакетной записи
type BatchResult struct {
	Inserted int
	Replaced int
	Failed   int
	Errors   []error

	// InsertedLinks ссылки записей, которых до пакета не было в хранилище
	InsertedLinks []string
}

// Total возвращает количество обработанных записей
func (b BatchResult) Total() int {
	return b.Inserted + b.Replaced + b.Failed
}

// Add учитывает результат одной записи
func (b *BatchResult) Add(result UpsertResult, err error) {
	if err != nil {
		b.Failed++
		b.Errors = append(b.Errors, err)
		return
	}
	switch result {
	case UpsertInserted:
		b.Inserted++
	case UpsertReplaced:
		b.Replaced++
	}
}

// Merge объединяет два результата
func (b *BatchResult) Merge(other BatchResult) {
	b.Inserted += other.Inserted
	b.Replaced += other.Replaced
	b.Failed += other.Failed
	b.Errors = append(b.Errors, other.Errors...)
	b.InsertedLinks = append(b.InsertedLinks, other.InsertedLinks...)
}

// EpisodeGroups группирует записи по числовому номеру серии
type EpisodeGroups struct {
	MaxEpisode int              `json:"max_episode"`
	Groups     map[int][]Record `json:"grouped_by_episode"`
}

// RecordRepository определяет интерфейс для работы с записями
type RecordRepository interface {
	Upsert(ctx context.Context, record *Record) (UpsertResult, error)
	UpsertBatch(ctx context.Context, records []Record) BatchResult
	GetByLink(ctx context.Context, link string) (*Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	ListDistinct(ctx context.Context, field string) ([]string, error)
	GroupByEpisode(ctx context.Context) (*EpisodeGroups, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) (int, error)
}
