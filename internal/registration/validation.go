package registration

import (
	"strings"
	"unicode/utf8"
)

const (
	minNameLength    = 2
	minContactLength = 10
	contactPrefix    = "+"
)

// normalizeName trims surrounding whitespace; ok is false when fewer than
// two characters remain.
func normalizeName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	return name, utf8.RuneCountInString(name) >= minNameLength
}

// normalizeContact accepts an international number shape: a leading "+"
// and at least ten characters in total.
func normalizeContact(raw string) (string, bool) {
	contact := strings.TrimSpace(raw)
	if !strings.HasPrefix(contact, contactPrefix) {
		return contact, false
	}
	return contact, utf8.RuneCountInString(contact) >= minContactLength
}
