// Package dedup detects likely duplicate authors and articles in the catalog
// through fuzzy matching of names and titles.
package dedup

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// AuthorOverlap computes a fuzzy overlap score between two author name lists.
// It uses best-match pairing: each name in the smaller list is matched to
// the most similar unmatched name in the larger list, then computes a
// Jaccard-style score by dividing the total matched similarity by the union count.
//
// Returns 0.0 if either list is empty, 1.0 for a perfect match.
// The result is symmetric: AuthorOverlap(a, b) == AuthorOverlap(b, a).
func AuthorOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	normA := normalizeNames(a)
	normB := normalizeNames(b)

	if len(normA) > len(normB) {
		normA, normB = normB, normA
	}

	used := make([]bool, len(normB))
	totalScore := 0.0
	matchedPairs := 0

	for _, nameA := range normA {
		bestScore := 0.0
		bestIdx := -1

		for j, nameB := range normB {
			if used[j] {
				continue
			}
			score := NameSimilarity(nameA, nameB)
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}

		if bestIdx >= 0 {
			used[bestIdx] = true
			totalScore += bestScore
			matchedPairs++
		}
	}

	// Union count = |A| + |B| - |matched pairs|
	unionCount := len(normA) + len(normB) - matchedPairs
	if unionCount == 0 {
		return 0.0
	}

	return totalScore / float64(unionCount)
}

// NormalizeName normalizes an author name for comparison:
//   - Converts to lowercase
//   - Detects and reorders "Last, First" format to "First Last"
//   - Removes all non-letter, non-space characters (apostrophes, periods, hyphens, etc.)
//   - Collapses multiple spaces to a single space
//   - Trims leading and trailing whitespace
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = strings.ToLower(name)

	// Handle "Last, First" format: split on comma, swap parts.
	if idx := strings.Index(name, ","); idx >= 0 {
		last := strings.TrimSpace(name[:idx])
		first := strings.TrimSpace(name[idx+1:])
		if first != "" {
			name = first + " " + last
		} else {
			name = last
		}
	}

	var sb strings.Builder
	sb.Grow(len(name))
	prevSpace := false

	for _, r := range name {
		if unicode.IsLetter(r) {
			sb.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) || r == '.' {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimRight(sb.String(), " ")
}

// NameSimilarity compares two normalized author names and returns a similarity
// score between 0.0 and 1.0.
//
// Scoring rules:
//   - Exact match: 1.0
//   - Same last name, same first name: 1.0
//   - Same last name, one first name is an initial that matches: 0.9
//   - Last names one edit apart, same first name: 0.8
//   - Same last name, one or both have only a last name: 0.7
//   - Same last name, different first names: 0.3
//   - Different last names: 0.0
func NameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	partsA := strings.Fields(a)
	partsB := strings.Fields(b)

	lastA := partsA[len(partsA)-1]
	lastB := partsB[len(partsB)-1]
	firstA := strings.Join(partsA[:len(partsA)-1], " ")
	firstB := strings.Join(partsB[:len(partsB)-1], " ")

	if lastA != lastB {
		if firstA != "" && firstA == firstB && isTypo(lastA, lastB) {
			return 0.8
		}
		return 0.0
	}

	if firstA == "" || firstB == "" {
		return 0.7
	}
	if firstA == firstB {
		return 1.0
	}
	if isInitialMatch(partsA[0], partsB[0]) {
		return 0.9
	}
	return 0.3
}

// isTypo reports whether two last names of five or more letters differ by a
// single edit.
func isTypo(a, b string) bool {
	if len([]rune(a)) < 5 || len([]rune(b)) < 5 {
		return false
	}
	return levenshtein.ComputeDistance(a, b) == 1
}

// isInitialMatch returns true if one token is a single-character initial that
// matches the first character of the other token.
func isInitialMatch(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 1 && len(rb) > 1 && ra[0] == rb[0] {
		return true
	}
	if len(rb) == 1 && len(ra) > 1 && rb[0] == ra[0] {
		return true
	}
	return false
}

func normalizeNames(names []string) []string {
	result := make([]string, len(names))
	for i, n := range names {
		result[i] = NormalizeName(n)
	}
	return result
}
