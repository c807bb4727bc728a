// Package discover содержит поиск строк списка в DOM и сбор ресурсов внутри них.
//
// Разметка сайта-источника нестабильна, поэтому форма строки не задается заранее,
// а выводится на каждом проходе от первого элемента со ссылкой.
package discover

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"project4869/internal/config"
	"project4869/internal/extract"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// ErrNoDescriptor возвращается, когда ни один предок якоря не похож на строку списка
var ErrNoDescriptor = errors.New("no row descriptor found")

// Descriptor описывает форму строки списка: тег и полный набор классов
type Descriptor struct {
	Selector string
	Tag      string
	Classes  []string
	// Level уровень предка относительно якоря, 0 для заданного или запасного селектора
	Level    int
	Fallback bool
}

// NewDescriptor создает дескриптор из тега и классов
func NewDescriptor(tag string, classes []string) Descriptor {
	var b strings.Builder
	b.WriteString(tag)
	for _, class := range classes {
		b.WriteByte('.')
		b.WriteString(cssEscape(class))
	}
	return Descriptor{Selector: b.String(), Tag: tag, Classes: classes}
}

// ParseDescriptor создает дескриптор из готового селектора
func ParseDescriptor(selector string) (Descriptor, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Descriptor{}, fmt.Errorf("row selector is empty")
	}
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return Descriptor{}, fmt.Errorf("invalid row selector %q: %w", selector, err)
	}
	return Descriptor{Selector: selector}, nil
}

// FallbackDescriptor объединяет запасные селекторы в одну группу
func FallbackDescriptor(selectors []string) Descriptor {
	return Descriptor{Selector: strings.Join(selectors, ", "), Fallback: true}
}

// Discover находит дескриптор строки, поднимаясь от первого элемента со ссылкой
// не более чем на profile.MaxDiscoveryDepth уровней, но не выше config.MaxDiscoveryDepthLimit.
// Строкой считается первый предок, чей видимый текст начинается с токена серии.
func Discover(doc *goquery.Document, profile config.Profile) (Descriptor, error) {
	m, err := compileProfile(profile)
	if err != nil {
		return Descriptor{}, err
	}

	anchor := findAnchor(doc.Selection, m, profile.PayloadPrefix)
	if anchor == nil {
		return Descriptor{}, fmt.Errorf("%w: no payload element", ErrNoDescriptor)
	}

	depth := profile.MaxDiscoveryDepth
	if depth > config.MaxDiscoveryDepthLimit {
		depth = config.MaxDiscoveryDepthLimit
	}

	current := anchor
	for level := 1; level <= depth; level++ {
		parent := current.Parent()
		if parent.Length() == 0 {
			break
		}

		tag := goquery.NodeName(parent)
		if tag == "body" || tag == "html" {
			break
		}

		if extract.HasHeaderShape(VisibleText(parent)) {
			class, _ := parent.Attr("class")
			desc := NewDescriptor(tag, strings.Fields(class))
			desc.Level = level
			return desc, nil
		}

		current = parent
	}

	return Descriptor{}, ErrNoDescriptor
}

// findAnchor возвращает первый элемент с пригодной ссылкой
func findAnchor(root *goquery.Selection, m *matchers, prefix string) *goquery.Selection {
	var anchor *goquery.Selection
	root.FindMatcher(m.payload).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if payloadOf(s, prefix) != "" {
			anchor = s
			return false
		}
		return true
	})
	return anchor
}

// cssEscape экранирует идентификатор класса для использования в селекторе
func cssEscape(ident string) string {
	var b strings.Builder
	for i, r := range ident {
		switch {
		case i == 0 && unicode.IsDigit(r) && r < unicode.MaxASCII:
			fmt.Fprintf(&b, "\\%x ", r)
		case r == '-' || r == '_' || r >= 0x80 ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
