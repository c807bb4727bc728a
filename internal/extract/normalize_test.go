package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"episode number", "1190 消失于恋谷桥的恋人", "消失于恋谷桥的恋人"},
		{"movie token", "Movie 27 100万美元的五棱星", "100万美元的五棱星"},
		{"short movie token", "M26 Title", "Title"},
		{"chapter token", "第12集 标题", "标题"},
		{"dash after number", "1190 - 标题", "标题"},
		{"bracketed date", "1190 标题 [2026/01/25]", "标题"},
		{"iso date", "标题 2026-01-25 续", "标题 续"},
		{"tag words", "标题 WebRip HDTV", "标题"},
		{"tag inside word kept", "DVDX 标题", "DVDX 标题"},
		{"unmatched", "  plain title  ", "plain title"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestHasHeaderShape(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"1190 Title", true},
		{"M26 Title", true},
		{"Movie 27 Title", true},
		{"  1190 Title", true},
		{"Title 1190", false},
		{"11 Title", false},
		{"1190", false},
		{"Download 1080P", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasHeaderShape(tt.text))
		})
	}
}

func TestLeadingEpisodeToken(t *testing.T) {
	assert.Equal(t, "1190", LeadingEpisodeToken("1190 Title"))
	assert.Equal(t, "M26", LeadingEpisodeToken("M26 Title"))
	assert.Equal(t, "M27", LeadingEpisodeToken("Movie 27 Title"))
	assert.Equal(t, "", LeadingEpisodeToken("Title"))
}

func TestFindDate(t *testing.T) {
	date, ok := FindDate("1190 标题 [2026/01/25]")
	assert.True(t, ok)
	assert.Equal(t, "2026-01-25", date)

	date, ok = FindDate("发布 2025.3.7")
	assert.True(t, ok)
	assert.Equal(t, "2025-03-07", date)

	_, ok = FindDate("2025-13-40")
	assert.False(t, ok)

	_, ok = FindDate("no date")
	assert.False(t, ok)

	assert.True(t, IsISODate("2026-01-25"))
	assert.False(t, IsISODate("2026/01/25"))
}
