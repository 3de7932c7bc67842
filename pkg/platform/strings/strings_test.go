package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    " 5657091547 , 5048593195",
			expected: []string{"5657091547", "5048593195"},
		},
		{
			name:     "removes duplicates and blanks preserving order",
			input:    "b,a,,b, ,c",
			expected: []string{"b", "a", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitCSV(tt.input))
		})
	}
}

func TestStripLeadingSymbol(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "emoji prefix with space", input: "🍔 Food", expected: "Food"},
		{name: "emoji prefix without space", input: "🟢Kirim", expected: "Kirim"},
		{name: "several symbols form one token", input: "💵💵 Dollar", expected: "Dollar"},
		{name: "plain name untouched", input: "  SXF Kapital ", expected: "SXF Kapital"},
		{name: "cyrillic name untouched", input: "Питание", expected: "Питание"},
		{name: "only the first token is stripped", input: "★ ★ Star", expected: "★ Star"},
		{name: "parentheses inside kept", input: "Хизмат (Прочие расходы)", expected: "Хизмат (Прочие расходы)"},
		{name: "symbols only left as is", input: " *** ", expected: "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripLeadingSymbol(tt.input))
		})
	}
}
