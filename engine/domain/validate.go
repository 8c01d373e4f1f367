package domain

import (
	"strings"
	"unicode/utf8"
)

const maxQueryRunes = 4096

// ValidateQuery rejects queries that are empty, whitespace-only, or
// unreasonably long. Returns the trimmed query on success.
func ValidateQuery(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", NewValidationError("query", text, ErrInvalidQuery)
	}
	if utf8.RuneCountInString(trimmed) > maxQueryRunes {
		head := string([]rune(trimmed)[:32])
		return "", NewValidationError("query", head+"...", ErrInvalidQuery)
	}
	return trimmed, nil
}
