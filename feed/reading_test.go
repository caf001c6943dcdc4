package feed_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eringen/spacetraveling/feed"
)

// words returns a paragraph of n tokens.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestEstimateReadingMinutes(t *testing.T) {
	tests := []struct {
		name     string
		sections []feed.Section
		want     int
	}{
		{name: "no sections", sections: nil, want: 0},
		{name: "empty section", sections: []feed.Section{{}}, want: 0},
		{name: "whitespace only", sections: []feed.Section{{Heading: "  \t", Paragraphs: []string{"\n \n"}}}, want: 0},
		{
			name:     "seven tokens",
			sections: []feed.Section{{Heading: "a b c", Paragraphs: []string{"d e f g"}}},
			want:     1,
		},
		{
			name:     "exactly 400 tokens",
			sections: []feed.Section{{Heading: words(100), Paragraphs: []string{words(150), words(150)}}},
			want:     2,
		},
		{
			name: "401 tokens across sections",
			sections: []feed.Section{
				{Heading: words(1), Paragraphs: []string{words(200)}},
				{Heading: words(100), Paragraphs: []string{words(100)}},
			},
			want: 3,
		},
		{
			name:     "runs of whitespace are one separator",
			sections: []feed.Section{{Heading: "  a   b\t\tc \n", Paragraphs: []string{"d e"}}},
			want:     1,
		},
		{
			name:     "200 tokens is one minute",
			sections: []feed.Section{{Paragraphs: []string{words(200)}}},
			want:     1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, feed.EstimateReadingMinutes(tt.sections))
		})
	}
}

func TestWordCount(t *testing.T) {
	sections := []feed.Section{
		{Heading: "a b c", Paragraphs: []string{"d e f g"}},
		{Heading: "", Paragraphs: []string{"h", "  i  j "}},
	}
	assert.Equal(t, 10, feed.WordCount(sections))
}

func TestEstimateReadingMinutesIsPure(t *testing.T) {
	sections := []feed.Section{{Heading: words(3), Paragraphs: []string{words(398)}}}
	first := feed.EstimateReadingMinutes(sections)
	second := feed.EstimateReadingMinutes(sections)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, first)
}
