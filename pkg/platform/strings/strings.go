// Package strings provides string helpers shared by config parsing and
// taxonomy input handling.
package strings

import (
	"strings"
	"unicode"
)

// SplitCSV splits a comma separated list, trimming whitespace and dropping
// empty and duplicate elements. Order is preserved.
//
// Example:
//
//	SplitCSV(" 101, 102,,101 ")
//	// Returns: []string{"101", "102"}
func SplitCSV(value string) []string {
	parts := strings.Split(value, ",")
	seen := make(map[string]struct{}, len(parts))
	result := make([]string, 0, len(parts))

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}

// StripLeadingSymbol removes a single leading token made only of symbol
// runes (no letters, digits, underscores or spaces) plus the whitespace that
// follows it, then trims the result. A value that is nothing but symbols is
// returned trimmed and unchanged.
//
// Example:
//
//	StripLeadingSymbol("🍔 Food")    // "Food"
//	StripLeadingSymbol("💵💵Dollar") // "Dollar"
//	StripLeadingSymbol("SXF Kapital") // "SXF Kapital"
func StripLeadingSymbol(value string) string {
	trimmed := strings.TrimSpace(value)
	rest := strings.TrimLeftFunc(trimmed, isSymbol)
	if rest == trimmed {
		return trimmed
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return trimmed
	}
	return rest
}

func isSymbol(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && !unicode.IsSpace(r)
}
