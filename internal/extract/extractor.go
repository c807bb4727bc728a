package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"project4869/internal/model"

	"golang.org/x/text/width"
)

const (
	yearRangeStart = 1990
	yearRangeEnd   = 2100
)

var (
	movieRegex      = regexp.MustCompile(`(?i)(?:^|[^A-Za-z])(?:movie|m|剧场版)[\s_]*(\d{1,2})(?:\D|$)`)
	digitRunRegex   = regexp.MustCompile(`\d+`)
	chapterRegex    = regexp.MustCompile(`第(\d+)[集话]`)
	resolutionRegex = regexp.MustCompile(`(?i)1080P|720P|2160P|4K|480P`)
	containerRegex  = regexp.MustCompile(`(?i)MKV|MP4|AVI`)
	sourceTypeRegex = regexp.MustCompile(`(?i)WEBRIP|HDTV|BDRIP|BLURAY|DVDISO|DVD`)
)

// Extractor извлекает поля релиза из текста подписи
type Extractor struct {
	policy model.SubtitlePolicy
}

// NewExtractor создает новый экстрактор. Неизвестная политика заменяется на verbatim.
func NewExtractor(policy model.SubtitlePolicy) *Extractor {
	if !policy.IsValid() {
		policy = model.SubtitleVerbatim
	}
	return &Extractor{policy: policy}
}

// Policy возвращает политику меток субтитров
func (e *Extractor) Policy() model.SubtitlePolicy {
	return e.policy
}

// Extract применяет все пять правил к тексту
func (e *Extractor) Extract(text string) model.ExtractedFields {
	return e.ExtractWithTrigger(text, "")
}

// ExtractWithTrigger работает как Extract, но если тип источника не найден в тексте,
// использует подпись элемента, раскрывающего группу ресурсов.
func (e *Extractor) ExtractWithTrigger(text, trigger string) model.ExtractedFields {
	folded := width.Fold.String(text)

	fields := model.ExtractedFields{
		Episode:    e.episode(folded),
		Resolution: e.resolution(folded),
		Container:  e.container(folded),
		Subtitle:   e.subtitle(folded),
		SourceType: e.sourceType(folded),
	}

	if fields.SourceType == "" {
		fields.SourceType = triggerLabel(trigger)
	}

	return fields
}

// Episode извлекает номер серии
func (e *Extractor) Episode(text string) string {
	return e.episode(width.Fold.String(text))
}

// Resolution извлекает разрешение
func (e *Extractor) Resolution(text string) model.Resolution {
	return e.resolution(width.Fold.String(text))
}

// Container извлекает формат контейнера
func (e *Extractor) Container(text string) model.Container {
	return e.container(width.Fold.String(text))
}

// Subtitle извлекает метку субтитров согласно политике
func (e *Extractor) Subtitle(text string) string {
	return e.subtitle(width.Fold.String(text))
}

// SourceType извлекает тип источника
func (e *Extractor) SourceType(text string) string {
	return e.sourceType(width.Fold.String(text))
}

// episode пробует по порядку: фильм, 3-4 цифры вне диапазона лет, 第N集/话
func (e *Extractor) episode(text string) string {
	if m := movieRegex.FindStringSubmatch(text); m != nil {
		return "M" + m[1]
	}

	if token := standaloneNumber(text); token != "" {
		return token
	}

	if m := chapterRegex.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	return ""
}

// standaloneNumber ищет первое число из 3-4 цифр, ограниченное скобками,
// пробелами или границами строки, и не похожее на год
func standaloneNumber(text string) string {
	for _, loc := range digitRunRegex.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if n := end - start; n < 3 || n > 4 {
			continue
		}
		if !isOpeningDelimiter(text[:start]) || !isClosingDelimiter(text[end:]) {
			continue
		}

		token := text[start:end]
		value, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		if value >= yearRangeStart && value <= yearRangeEnd {
			continue
		}
		return token
	}
	return ""
}

func isOpeningDelimiter(before string) bool {
	if before == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(before)
	return r == '[' || r == '【' || unicode.IsSpace(r)
}

func isClosingDelimiter(after string) bool {
	if after == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(after)
	return r == ']' || r == '】' || unicode.IsSpace(r)
}

func (e *Extractor) resolution(text string) model.Resolution {
	return model.Resolution(strings.ToUpper(resolutionRegex.FindString(text)))
}

func (e *Extractor) container(text string) model.Container {
	return model.Container(strings.ToUpper(containerRegex.FindString(text)))
}

func (e *Extractor) sourceType(text string) string {
	return strings.ToUpper(sourceTypeRegex.FindString(text))
}

func (e *Extractor) subtitle(text string) string {
	for _, p := range subtitlePatterns {
		if p.re.MatchString(text) {
			if e.policy == model.SubtitleCanonical {
				return p.code
			}
			return p.label
		}
	}
	return ""
}

// triggerLabel приводит подпись кнопки к виду тега источника
func triggerLabel(trigger string) string {
	trigger = strings.TrimSpace(width.Fold.String(trigger))
	if trigger == "" {
		return ""
	}
	return strings.ToUpper(whitespaceRegex.ReplaceAllString(trigger, " "))
}
