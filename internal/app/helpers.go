package app

import (
	"database/sql"
	"regexp"
	"strings"
)

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// cleanPromptText strips XML-ish tags and collapses whitespace. Imported
// prompts often carry markup from their source tooling.
func cleanPromptText(prompt string) string {
	cleaned := xmlTagPattern.ReplaceAllString(prompt, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// titleFromPrompt derives a post title from the first 50 characters of the
// cleaned prompt, preferring to cut at a word or clause boundary.
func titleFromPrompt(prompt string) string {
	cleaned := cleanPromptText(prompt)
	if len(cleaned) <= 50 {
		return cleaned
	}

	truncated := cleaned[:50]
	cut := strings.LastIndexAny(truncated, " ,")
	if cut > 20 {
		return truncated[:cut] + "..."
	}
	return truncated + "..."
}
