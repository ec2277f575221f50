package domain

import (
	"regexp"
	"strings"
)

// JournalIDMaxChars is the number of leading characters of a journal name
// that participate in its identifier.
const JournalIDMaxChars = 30

// separatorRegex matches runs of anything that is not an ASCII word character.
// Hyphens and whitespace are included, so they collapse with their neighbours.
var separatorRegex = regexp.MustCompile(`[^a-z0-9_]+`)

// Slugify converts free text into a lowercase, hyphen-separated identifier.
// Runs of whitespace, non-word characters or hyphens collapse into a single
// hyphen and leading/trailing hyphens are removed. Slugify is idempotent.
func Slugify(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = separatorRegex.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

// JournalID derives a journal identifier from the first 30 characters of its name.
// Two names that differ only after that prefix map to the same journal.
func JournalID(name string) string {
	return Slugify(truncateRunes(name, JournalIDMaxChars))
}

// AuthorID derives an author identifier from the author's full name.
func AuthorID(fullName string) string {
	return Slugify(fullName)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
