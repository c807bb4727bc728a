// Package assemble собирает записи о релизах из строк списка.
package assemble

import (
	"strings"
	"time"

	"project4869/internal/extract"
	"project4869/internal/model"
)

// Assembler превращает строку списка в записи, по одной на ресурс
type Assembler struct {
	extractor *extract.Extractor
	// Now источник даты публикации по умолчанию
	Now func() time.Time
}

// NewAssembler создает новый сборщик записей
func NewAssembler(extractor *extract.Extractor) *Assembler {
	return &Assembler{
		extractor: extractor,
		Now:       time.Now,
	}
}

// Assemble собирает записи одной строки. Сборка не завершается ошибкой:
// у каждой записи заполнены link, container и publish_date.
func (a *Assembler) Assemble(row model.Row) []model.Record {
	if len(row.Resources) == 0 {
		return nil
	}

	header := strings.TrimSpace(row.Header)

	episode := a.extractor.Episode(header)
	if episode == "" {
		episode = extract.LeadingEpisodeToken(header)
	}
	title := extract.Normalize(header)
	publishDate := a.publishDate(row.Date)

	records := make([]model.Record, 0, len(row.Resources))
	for _, res := range row.Resources {
		label := strings.TrimSpace(res.Label)
		if label == "" {
			label = model.UnknownLabel
		}

		fields := a.extractor.ExtractWithTrigger(combine(header, label), res.Trigger)

		record := model.Record{
			Link:         res.Payload,
			Episode:      episode,
			EpisodeTitle: title,
			Resolution:   fields.Resolution,
			Container:    fields.Container,
			Subtitle:     fields.Subtitle,
			SourceType:   fields.SourceType,
			RawLabel:     label,
			PublishDate:  publishDate,
		}

		if record.Episode == "" {
			record.Episode = fields.Episode
		}
		if record.Resolution == "" {
			record.Resolution = resolutionFromDigits(label)
		}
		if record.Container == "" {
			record.Container = defaultContainer(label)
		}

		records = append(records, record)
	}

	return records
}

// AssembleAll собирает записи всех строк в порядке документа
func (a *Assembler) AssembleAll(rows []model.Row) []model.Record {
	var records []model.Record
	for _, row := range rows {
		records = append(records, a.Assemble(row)...)
	}
	return records
}

func (a *Assembler) publishDate(rowDate string) string {
	if date, ok := extract.FindDate(rowDate); ok && extract.IsISODate(date) {
		return date
	}
	return a.Now().Format(model.DateLayout)
}

// combine склеивает заголовок строки и подпись ресурса, заголовок первым
func combine(header, label string) string {
	if header == "" {
		return label
	}
	return header + " - " + label
}

// resolutionFromDigits распознает разрешение по числу без суффикса P
func resolutionFromDigits(label string) model.Resolution {
	switch {
	case strings.Contains(label, "1080"):
		return model.Resolution1080P
	case strings.Contains(label, "720"):
		return model.Resolution720P
	default:
		return ""
	}
}

func defaultContainer(label string) model.Container {
	if strings.Contains(strings.ToUpper(label), "MKV") {
		return model.ContainerMKV
	}
	return model.ContainerMP4
}
