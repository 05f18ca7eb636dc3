package usecase

import (
	"strings"
	"unicode/utf8"
)

// IsValidQuestion rejects degenerate input before any embedding or retrieval
// cost is incurred: empty or whitespace-only text, trimmed length under three
// characters, and purely numeric tokens (allowing one decimal point).
func IsValidQuestion(question string) bool {
	q := strings.TrimSpace(question)
	if utf8.RuneCountInString(q) < 3 {
		return false
	}
	if isNumericToken(q) {
		return false
	}
	return true
}

func isNumericToken(s string) bool {
	s = strings.Replace(s, ".", "", 1)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
