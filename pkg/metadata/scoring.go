package metadata

import (
	"regexp"
	"strings"
)

// Match weights. Must sum to 1.0.
const (
	weightTitle    = 0.4
	weightAuthor   = 0.3
	weightISBN     = 0.2
	weightLanguage = 0.1
)

// maxCompletenessBonus is the most a candidate can earn on top of the
// match score for having rich metadata.
const maxCompletenessBonus = 0.10

// Per-field shares within the completeness bonus. Must sum to 1.0.
const (
	completenessDescription = 0.40
	completenessISBN        = 0.30
	completenessAuthors     = 0.15
	completenessLanguage    = 0.10
	completenessPublisher   = 0.05
)

var isbnStripRe = regexp.MustCompile(`[\s-]`)

// normalizeAuthor turns "Last, First" into "first last" for comparison.
func normalizeAuthor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.Index(name, ","); i >= 0 {
		last := strings.TrimSpace(name[:i])
		first := strings.TrimSpace(name[i+1:])
		name = first + " " + last
	}
	return name
}

func normalizeISBN(isbn string) string {
	return isbnStripRe.ReplaceAllString(isbn, "")
}

// stringSimilarity is a case-insensitive similarityRatio. Two empty
// strings are identical; one empty side is a total mismatch.
func stringSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return similarityRatio(strings.ToLower(a), strings.ToLower(b))
}

// Score rates how well a candidate matches the extracted metadata using a
// weighted comparison across title, author, ISBN, and language, plus a
// completeness bonus. The result is clamped to [0, 1].
func Score(extracted, candidate *BookMetadata) float64 {
	score := weightTitle * stringSimilarity(extracted.Title, candidate.Title)

	// When both sides lack author info we can't infer a match, so the
	// author weight contributes nothing rather than a free 1.0.
	extractedAuthors := joinNormalizedAuthors(extracted.Authors)
	candidateAuthors := joinNormalizedAuthors(candidate.Authors)
	if extractedAuthors != "" || candidateAuthors != "" {
		score += weightAuthor * stringSimilarity(extractedAuthors, candidateAuthors)
	}

	if extracted.ISBN != "" && candidate.ISBN != "" &&
		normalizeISBN(extracted.ISBN) == normalizeISBN(candidate.ISBN) {
		score += weightISBN
	}

	if extracted.Language != "" && candidate.Language != "" &&
		strings.EqualFold(extracted.Language, candidate.Language) {
		score += weightLanguage
	}

	score += CompletenessBonus(candidate)

	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// CompletenessBonus rewards candidates with richer metadata so they float
// above sparse stubs when match scores are otherwise tied. Returns a
// value in [0, maxCompletenessBonus].
func CompletenessBonus(candidate *BookMetadata) float64 {
	filled := 0.0
	if candidate.Description != "" {
		filled += completenessDescription
	}
	if candidate.ISBN != "" {
		filled += completenessISBN
	}
	if len(candidate.Authors) > 0 {
		filled += completenessAuthors
	}
	if candidate.Language != "" {
		filled += completenessLanguage
	}
	if candidate.Publisher != "" {
		filled += completenessPublisher
	}
	return maxCompletenessBonus * filled
}

func joinNormalizedAuthors(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	normalized := make([]string, 0, len(authors))
	for _, a := range authors {
		normalized = append(normalized, normalizeAuthor(a))
	}
	return strings.Join(normalized, " ")
}
