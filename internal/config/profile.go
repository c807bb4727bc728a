package config

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// MaxDiscoveryDepthLimit наибольшее число уровней подъема от ссылки при поиске строки
const MaxDiscoveryDepthLimit = 10

// Profile описывает разметку сайта-источника: где искать ссылки, подписи и строки списка
type Profile struct {
	PayloadSelector     string   `yaml:"payload_selector"`
	PayloadPrefix       string   `yaml:"payload_prefix"`
	LabelSelector       string   `yaml:"label_selector"`
	DetailPanelSelector string   `yaml:"detail_panel_selector"`
	DateSelector        string   `yaml:"date_selector"`
	FallbackRows        []string `yaml:"fallback_rows"`
	ShortLabelLimit     int      `yaml:"short_label_limit"`
	MaxDiscoveryDepth   int      `yaml:"max_discovery_depth"`
	LabelSearchDepth    int      `yaml:"label_search_depth"`
}

// DefaultProfile возвращает профиль по умолчанию
func DefaultProfile() Profile {
	return Profile{
		PayloadSelector:     "input.reslink, a[href^='magnet:']",
		PayloadPrefix:       "magnet:",
		LabelSelector:       "label.resb",
		DetailPanelSelector: ".modal-body",
		FallbackRows:        []string{"div.item", "tr"},
		ShortLabelLimit:     50,
		MaxDiscoveryDepth:   MaxDiscoveryDepthLimit,
		LabelSearchDepth:    3,
	}
}

// LoadProfile загружает профиль из YAML файла. Пустой путь дает профиль по умолчанию,
// незаданные в файле поля берутся из профиля по умолчанию.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}

	profile, err := ParseProfile(data)
	if err != nil {
		return Profile{}, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	return profile, nil
}

// ParseProfile разбирает YAML профиля и применяет значения по умолчанию
func ParseProfile(data []byte) (Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	profile.setDefaults()

	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}

	return profile, nil
}

// setDefaults заполняет пустые поля значениями по умолчанию
func (p *Profile) setDefaults() {
	defaults := DefaultProfile()

	if p.PayloadSelector == "" {
		p.PayloadSelector = defaults.PayloadSelector
	}
	if p.LabelSelector == "" {
		p.LabelSelector = defaults.LabelSelector
	}
	if p.DetailPanelSelector == "" {
		p.DetailPanelSelector = defaults.DetailPanelSelector
	}
	if len(p.FallbackRows) == 0 {
		p.FallbackRows = defaults.FallbackRows
	}
	if p.ShortLabelLimit == 0 {
		p.ShortLabelLimit = defaults.ShortLabelLimit
	}
	if p.MaxDiscoveryDepth == 0 {
		p.MaxDiscoveryDepth = defaults.MaxDiscoveryDepth
	}
	if p.LabelSearchDepth == 0 {
		p.LabelSearchDepth = defaults.LabelSearchDepth
	}
}

// Validate проверяет профиль: все селекторы должны компилироваться
func (p Profile) Validate() error {
	selectors := map[string]string{
		"payload_selector":      p.PayloadSelector,
		"label_selector":        p.LabelSelector,
		"detail_panel_selector": p.DetailPanelSelector,
	}
	if p.DateSelector != "" {
		selectors["date_selector"] = p.DateSelector
	}
	for i, row := range p.FallbackRows {
		selectors[fmt.Sprintf("fallback_rows[%d]", i)] = row
	}

	for field, selector := range selectors {
		if selector == "" {
			return fmt.Errorf("%s is required", field)
		}
		if _, err := cascadia.ParseGroup(selector); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field, selector, err)
		}
	}

	if len(p.FallbackRows) == 0 {
		return fmt.Errorf("fallback_rows must not be empty")
	}
	if p.ShortLabelLimit < 0 {
		return fmt.Errorf("short_label_limit must be non-negative")
	}
	if p.MaxDiscoveryDepth < 1 || p.MaxDiscoveryDepth > MaxDiscoveryDepthLimit {
		return fmt.Errorf("max_discovery_depth must be between 1 and %d, got %d", MaxDiscoveryDepthLimit, p.MaxDiscoveryDepth)
	}
	if p.LabelSearchDepth < 1 {
		return fmt.Errorf("label_search_depth must be positive")
	}

	return nil
}
