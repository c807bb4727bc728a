// Package model содержит константы для моделей.
//
// Группа: BASE - Базовые компоненты
// Содержит: Resolution, Container, SubtitlePolicy, UpsertResult
package model

import "strings"

// Resolution представляет разрешение релиза
type Resolution string

const (
	Resolution480P  Resolution = "480P"
	Resolution720P  Resolution = "720P"
	Resolution1080P Resolution = "1080P"
	Resolution2160P Resolution = "2160P"
	Resolution4K    Resolution = "4K"
)

// String возвращает строковое представление разрешения
func (r Resolution) String() string {
	return string(r)
}

// IsValid проверяет валидность разрешения
func (r Resolution) IsValid() bool {
	switch r {
	case Resolution480P, Resolution720P, Resolution1080P, Resolution2160P, Resolution4K:
		return true
	default:
		return false
	}
}

// ParseResolution приводит строку к Resolution, пустое значение если не распознано
func ParseResolution(s string) Resolution {
	r := Resolution(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return ""
	}
	return r
}

// Container представляет формат контейнера
type Container string

const (
	ContainerMKV Container = "MKV"
	ContainerMP4 Container = "MP4"
	ContainerAVI Container = "AVI"
)

// String возвращает строковое представление контейнера
func (c Container) String() string {
	return string(c)
}

// IsValid проверяет валидность контейнера
func (c Container) IsValid() bool {
	switch c {
	case ContainerMKV, ContainerMP4, ContainerAVI:
		return true
	default:
		return false
	}
}

// ParseContainer приводит строку к Container, пустое значение если не распознано
func ParseContainer(s string) Container {
	c := Container(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return ""
	}
	return c
}

// SubtitlePolicy определяет, в каком виде сохраняется метка субтитров
type SubtitlePolicy string

const (
	// SubtitleVerbatim сохраняет метку в исходной письменности (简日, 繁日, ...)
	SubtitleVerbatim SubtitlePolicy = "verbatim"
	// SubtitleCanonical сохраняет кодированную метку (CHS_JP, CHT_JP, ...)
	SubtitleCanonical SubtitlePolicy = "canonical"
)

// IsValid проверяет валидность политики
func (p SubtitlePolicy) IsValid() bool {
	return p == SubtitleVerbatim || p == SubtitleCanonical
}

// UpsertResult показывает, была ли запись вставлена или заменена
type UpsertResult int

const (
	UpsertInserted UpsertResult = iota + 1
	UpsertReplaced
)

// String возвращает строковое представление результата
func (r UpsertResult) String() string {
	switch r {
	case UpsertInserted:
		return "inserted"
	case UpsertReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// UnknownLabel используется, когда у ресурса не удалось найти подпись
const UnknownLabel = "Unknown"

// DateLayout формат даты публикации
const DateLayout = "2006-01-02"
