package utils

import (
	"strings"
	"unicode/utf8"
)

// NormalizePromptText expands {{char}}/{{user}} placeholders and escaped newlines.
func NormalizePromptText(text string, charName, userName string) string {
	text = strings.ReplaceAll(text, "{{char}}", charName)
	text = strings.ReplaceAll(text, "{{user}}", userName)
	text = strings.ReplaceAll(text, "\\r\\n", "\n")
	text = strings.ReplaceAll(text, "\\n", "\n")
	text = strings.ReplaceAll(text, "\\\"", "\"")
	return text
}

// RuneLen counts characters rather than bytes.
func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}

// IsBlank reports whether text has no non-space characters.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// SplitList splits a comma-joined list, trimming entries and dropping empties.
func SplitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
