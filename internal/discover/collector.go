package discover

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"project4869/internal/config"
	"project4869/internal/extract"
	"project4869/internal/model"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// triggerAttrs атрибуты, которыми кнопка ссылается на раскрываемый блок
var triggerAttrs = []string{"data-target", "data-bs-target", "href", "aria-controls"}

// matchers скомпилированные селекторы профиля
type matchers struct {
	payload cascadia.Selector
	label   cascadia.Selector
	panel   cascadia.Selector
	date    cascadia.Selector
}

func compileProfile(profile config.Profile) (*matchers, error) {
	var (
		m   matchers
		err error
	)

	if m.payload, err = cascadia.Compile(profile.PayloadSelector); err != nil {
		return nil, fmt.Errorf("invalid payload selector: %w", err)
	}
	if m.label, err = cascadia.Compile(profile.LabelSelector); err != nil {
		return nil, fmt.Errorf("invalid label selector: %w", err)
	}
	if m.panel, err = cascadia.Compile(profile.DetailPanelSelector); err != nil {
		return nil, fmt.Errorf("invalid detail panel selector: %w", err)
	}
	if profile.DateSelector != "" {
		if m.date, err = cascadia.Compile(profile.DateSelector); err != nil {
			return nil, fmt.Errorf("invalid date selector: %w", err)
		}
	}

	return &m, nil
}

// Collect собирает строки по дескриптору; строки без ресурсов пропускаются.
// Элемент со ссылкой относится к ближайшей совпавшей строке, текст которой начинается
// с токена серии. Если такой нет или дескриптор запасной, берется самая внутренняя строка.
func Collect(doc *goquery.Document, desc Descriptor, profile config.Profile) ([]model.Row, error) {
	m, err := compileProfile(profile)
	if err != nil {
		return nil, err
	}

	rowMatcher, err := cascadia.Compile(desc.Selector)
	if err != nil {
		return nil, fmt.Errorf("invalid row selector %q: %w", desc.Selector, err)
	}

	triggers := indexTriggers(doc.Selection)
	owners := newRowOwners(rowMatcher, !desc.Fallback)

	var rows []model.Row
	doc.FindMatcher(rowMatcher).Each(func(_ int, row *goquery.Selection) {
		var resources []model.Resource

		row.FindMatcher(m.payload).Each(func(_ int, leaf *goquery.Selection) {
			if owners.of(leaf) != row.Get(0) {
				return
			}

			payload := payloadOf(leaf, profile.PayloadPrefix)
			if payload == "" {
				return
			}

			resources = append(resources, model.Resource{
				Payload: payload,
				Label:   labelFor(leaf, row, m, profile),
				Trigger: triggerFor(leaf, triggers),
			})
		})

		if len(resources) == 0 {
			return
		}

		text := VisibleText(row)
		rows = append(rows, model.Row{
			Header:    headerOf(text),
			Date:      dateOf(row, text, m),
			Resources: resources,
		})
	})

	return rows, nil
}

// rowOwners определяет строку, которой принадлежит элемент со ссылкой
type rowOwners struct {
	matcher      cascadia.Selector
	preferHeader bool
	headers      map[*html.Node]bool
}

func newRowOwners(matcher cascadia.Selector, preferHeader bool) *rowOwners {
	return &rowOwners{
		matcher:      matcher,
		preferHeader: preferHeader,
		headers:      make(map[*html.Node]bool),
	}
}

// of возвращает узел строки-владельца или nil, если элемент вне строк
func (o *rowOwners) of(leaf *goquery.Selection) *html.Node {
	closest := leaf.ClosestMatcher(o.matcher)
	if closest.Length() == 0 {
		return nil
	}

	owner := closest.Get(0)
	if !o.preferHeader || o.hasHeader(closest) {
		return owner
	}

	closest.ParentsMatcher(o.matcher).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if o.hasHeader(s) {
			owner = s.Get(0)
			return false
		}
		return true
	})
	return owner
}

func (o *rowOwners) hasHeader(s *goquery.Selection) bool {
	node := s.Get(0)
	if shaped, ok := o.headers[node]; ok {
		return shaped
	}
	shaped := extract.HasHeaderShape(VisibleText(s))
	o.headers[node] = shaped
	return shaped
}

// payloadOf возвращает ссылку элемента: value у input, href у остальных
func payloadOf(s *goquery.Selection, prefix string) string {
	var payload string
	if goquery.NodeName(s) == "input" {
		payload, _ = s.Attr("value")
	} else {
		payload, _ = s.Attr("href")
		if payload == "" {
			payload, _ = s.Attr("value")
		}
	}

	payload = strings.TrimSpace(payload)
	if payload == "" || !strings.HasPrefix(payload, prefix) {
		return ""
	}
	return payload
}

// labelFor ищет подпись ресурса по уровням:
// короткий текст родителя, метка у ближайших предков в пределах строки, метка в панели деталей.
func labelFor(leaf, row *goquery.Selection, m *matchers, profile config.Profile) string {
	parent := leaf.Parent()
	if text := inlineText(parent); text != "" && utf8.RuneCountInString(text) < profile.ShortLabelLimit {
		return text
	}

	ancestor := parent
	for level := 0; level < profile.LabelSearchDepth && ancestor.Length() > 0; level++ {
		if text := labelText(ancestor, m); text != "" {
			return text
		}
		if ancestor.Get(0) == row.Get(0) {
			break
		}
		ancestor = ancestor.Parent()
	}

	if panel := leaf.ClosestMatcher(m.panel); panel.Length() > 0 {
		if text := labelText(panel, m); text != "" {
			return text
		}
	}

	return model.UnknownLabel
}

func labelText(scope *goquery.Selection, m *matchers) string {
	label := scope.FindMatcher(m.label).First()
	if label.Length() == 0 {
		return ""
	}
	return inlineText(label)
}

// indexTriggers строит индекс id блока -> текст раскрывающего его элемента
func indexTriggers(root *goquery.Selection) map[string]string {
	index := make(map[string]string)
	root.Find("[data-target], [data-bs-target], [href^='#'], [aria-controls]").Each(func(_ int, s *goquery.Selection) {
		text := controlText(s)
		if text == "" {
			return
		}
		for _, attr := range triggerAttrs {
			value, ok := s.Attr(attr)
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			if attr != "aria-controls" && !strings.HasPrefix(value, "#") {
				continue
			}
			id := strings.TrimPrefix(value, "#")
			if _, exists := index[id]; !exists && id != "" {
				index[id] = text
			}
		}
	})
	return index
}

func controlText(s *goquery.Selection) string {
	if text := inlineText(s); text != "" {
		return text
	}
	for _, attr := range []string{"value", "title", "aria-label"} {
		if value, ok := s.Attr(attr); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// triggerFor возвращает текст элемента, раскрывающего ближайший предок с id
func triggerFor(leaf *goquery.Selection, triggers map[string]string) string {
	if len(triggers) == 0 {
		return ""
	}
	for _, node := range leaf.Parents().Nodes {
		if id := attrOf(node, "id"); id != "" {
			if text, ok := triggers[id]; ok {
				return text
			}
		}
	}
	return ""
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// headerOf возвращает первую непустую строку текста строки списка.
// Если в ней нет токена серии (например, только дата), берется вторая.
func headerOf(text string) string {
	lines := firstLines(text, 2)
	switch {
	case len(lines) == 0:
		return ""
	case len(lines) > 1 && !extract.ContainsEpisodeToken(lines[0]):
		return lines[1]
	default:
		return lines[0]
	}
}

// dateOf ищет дату строки в элементе даты профиля, затем во всем тексте строки
func dateOf(row *goquery.Selection, text string, m *matchers) string {
	if m.date != nil {
		if el := row.FindMatcher(m.date).First(); el.Length() > 0 {
			if date, ok := extract.FindDate(VisibleText(el)); ok {
				return date
			}
			if value, ok := el.Attr("datetime"); ok {
				if date, ok := extract.FindDate(value); ok {
					return date
				}
			}
		}
	}

	if date, ok := extract.FindDate(text); ok {
		return date
	}
	return ""
}
