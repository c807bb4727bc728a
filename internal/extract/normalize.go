// Package extract содержит нормализацию подписей и извлечение полей релиза.
//
// Все функции пакета тотальные: отсутствие совпадения дает пустое значение,
// ошибок пакет не возвращает.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"project4869/internal/model"

	"golang.org/x/text/width"
)

var (
	// leadingTokenRegex номер серии или фильма в начале заголовка
	leadingTokenRegex = regexp.MustCompile(`^(?:第\d+[集话]|(?i:movie)\s*\d+|M\d+|\d{3,4})(?:[\s\-–:：·]+|$)`)
	// dateRegex дата вида YYYY-MM-DD (также через / или .), возможно в квадратных скобках
	dateRegex        = regexp.MustCompile(`\[?(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\]?`)
	tagWordRegex     = regexp.MustCompile(`(?i)\b(?:WEBRIP|HDTV|BDRIP|BLURAY|DVDISO|DVD)\b`)
	emptyBracketsRe  = regexp.MustCompile(`\[\s*\]|【\s*】|\(\s*\)`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	headerShapeRegex = regexp.MustCompile(`^(?:\d{3,4}|M\d+|Movie)\s`)
	headerTokenRegex = regexp.MustCompile(`^(?:(\d{3,4})|M(\d+)|Movie\s*(\d+))(?:\s|$)`)
	// episodeTokenRegex токен серии в любом месте строки после пробела
	episodeTokenRegex = regexp.MustCompile(`(?:^|\s)(?:\d{3,4}|M\d+|Movie\s*\d+)`)
)

// Normalize убирает из подписи служебные токены: номер серии в начале,
// даты и известные теги источника. Возвращает обрезанный остаток.
func Normalize(raw string) string {
	text := strings.TrimSpace(width.Fold.String(raw))
	if text == "" {
		return ""
	}

	text = leadingTokenRegex.ReplaceAllString(text, "")
	text = dateRegex.ReplaceAllString(text, " ")
	text = tagWordRegex.ReplaceAllString(text, " ")
	text = emptyBracketsRe.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return strings.Trim(text, " -–·|")
}

// HasHeaderShape проверяет, что текст начинается с токена серии:
// 3-4 цифры, M<цифры> или Movie, за которыми следует пробел.
func HasHeaderShape(text string) bool {
	return headerShapeRegex.MatchString(strings.TrimSpace(text))
}

// ContainsEpisodeToken проверяет, есть ли в строке токен серии. Даты не учитываются.
func ContainsEpisodeToken(text string) bool {
	return episodeTokenRegex.MatchString(dateRegex.ReplaceAllString(text, " "))
}

// LeadingEpisodeToken возвращает номер серии из начала заголовка.
// "Movie 27 ..." приводится к "M27".
func LeadingEpisodeToken(header string) string {
	m := headerTokenRegex.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return ""
	}
	switch {
	case m[1] != "":
		return m[1]
	case m[2] != "":
		return "M" + m[2]
	default:
		return "M" + m[3]
	}
}

// FindDate ищет первую корректную дату в тексте и возвращает ее в формате YYYY-MM-DD
func FindDate(text string) (string, bool) {
	for _, m := range dateRegex.FindAllStringSubmatch(width.Fold.String(text), -1) {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])

		iso := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		if _, err := time.Parse(model.DateLayout, iso); err == nil {
			return iso, true
		}
	}
	return "", false
}

// IsISODate проверяет, что строка уже является датой YYYY-MM-DD
func IsISODate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}
