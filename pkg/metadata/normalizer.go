package metadata

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minConcatLength is the minimum length for a spaceless string to be
// considered concatenated and worth splitting. Shorter strings like
// "Dune" or "1984" are left alone.
const minConcatLength = 8

var (
	camelCaseRe      = regexp.MustCompile(`[a-z][A-Z]`)
	camelLowerUpper  = regexp.MustCompile(`([a-z\d])([A-Z])`)
	camelUpperSeq    = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	letterDigitRe    = regexp.MustCompile(`([a-zA-Z])(\d)`)
	digitLetterRe    = regexp.MustCompile(`(\d)([a-zA-Z])`)
	separatorRe      = regexp.MustCompile(`[-_]`)
	authorDashTitle  = regexp.MustCompile(`^(?P<author>.+?)\s+-\s+(?:\[(?P<series>[^\]]+)\]\s+-\s+)?(?P<title>.+)$`)
	titleByAuthorRe  = regexp.MustCompile(`^(?P<title>.+?)\s+by\s+(?P<author>[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)$`)
	seriesIndexRe    = regexp.MustCompile(`^(?P<name>.+?)\s+(?P<index>\d+)$`)
	splitMarker      = "_SPLIT_"
	splitReplacement = "${1}" + splitMarker + "${2}"
)

// titleStopWords are common English words that appear in titles but not
// in person names.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "by": {}, "with": {}, "from": {},
	"is": {}, "was": {}, "are": {}, "were": {}, "be": {}, "been": {},
}

// unknownAuthors are author values that indicate missing authorship.
var unknownAuthors = map[string]struct{}{
	"unknown": {}, "various": {}, "anonymous": {}, "": {},
}

// WordSplitter segments an all-lowercase concatenated string into
// probable words. Best effort: implementations return the input as a
// single word when no segmentation is found.
type WordSplitter interface {
	Split(text string) []string
}

// Normalizer cleans mangled titles (CamelCase joins, underscores,
// concatenated words) and recovers author names embedded in them.
type Normalizer struct {
	splitter WordSplitter
}

// NewNormalizer returns a Normalizer. splitter may be nil, in which case
// all-lowercase concatenated segments are left unsplit.
func NewNormalizer(splitter WordSplitter) *Normalizer {
	return &Normalizer{splitter: splitter}
}

// needsNormalization reports whether a title string looks mangled:
// CamelCase-joined words, underscore-joined words, or long spaceless
// strings that are likely concatenated.
func needsNormalization(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if strings.Contains(text, "_") {
		return true
	}
	if camelCaseRe.MatchString(text) {
		return true
	}
	for _, seg := range strings.Split(text, "-") {
		if !strings.Contains(seg, " ") && utf8.RuneCountInString(seg) >= minConcatLength {
			return true
		}
	}
	return false
}

// splitCamelCase splits a CamelCase string into individual words.
// Boundaries: lowercase or digit before uppercase, an uppercase run
// before uppercase+lowercase ("HTMLParser" becomes "HTML", "Parser"),
// and every transition between letters and digits.
func splitCamelCase(text string) []string {
	result := camelLowerUpper.ReplaceAllString(text, splitReplacement)
	result = camelUpperSeq.ReplaceAllString(result, splitReplacement)
	result = letterDigitRe.ReplaceAllString(result, splitReplacement)
	result = digitLetterRe.ReplaceAllString(result, splitReplacement)

	var parts []string
	for _, p := range strings.Split(result, splitMarker) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}

// SplitConcatenated splits a concatenated or mangled string into
// space-separated words: separate on hyphens and underscores, split each
// segment on CamelCase boundaries, and hand long all-lowercase segments
// to the word splitter.
func (n *Normalizer) SplitConcatenated(text string) string {
	if !needsNormalization(text) {
		return text
	}

	var words []string
	for _, segment := range separatorRe.Split(text, -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		for _, part := range splitCamelCase(segment) {
			if isAllLower(part) && utf8.RuneCountInString(part) >= minConcatLength && n.splitter != nil {
				if split := n.splitter.Split(part); len(split) > 0 {
					words = append(words, strings.Join(split, " "))
					continue
				}
			}
			words = append(words, part)
		}
	}
	return strings.Join(words, " ")
}

// isAllLower reports whether every cased rune in s is lowercase and at
// least one cased rune exists.
func isAllLower(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			hasCased = true
		}
	}
	return hasCased
}

// isLikelyPersonName reports whether a string looks like a person's name:
// 2-3 capitalized words (single-letter initials count) with no common
// stop words.
func isLikelyPersonName(text string) bool {
	words := strings.Fields(text)
	if len(words) < 2 || len(words) > 3 {
		return false
	}
	for _, word := range words {
		first := []rune(word)[0]
		if !unicode.IsUpper(first) {
			return false
		}
		if _, stop := titleStopWords[strings.ToLower(word)]; stop {
			return false
		}
	}
	return true
}

// detectAuthorInTitle tries to peel a person name off the front of a
// title string, checking the first 3 then the first 2 words. Returns the
// remaining title and the detected author; author is empty when nothing
// was detected.
func detectAuthorInTitle(title string) (string, string) {
	words := strings.Fields(title)
	for _, nameLen := range []int{3, 2} {
		if len(words) <= nameLen {
			continue
		}
		candidate := strings.Join(words[:nameLen], " ")
		if isLikelyPersonName(candidate) {
			return strings.Join(words[nameLen:], " "), candidate
		}
	}
	return title, ""
}

// structuralMatch is a title that carried embedded author/series info.
type structuralMatch struct {
	title       string
	author      string
	series      string
	seriesIndex *float64
}

// parseSeriesBracket parses a series bracket like "Cotton Malone 07" into
// a name and index.
func parseSeriesBracket(text string) (string, *float64) {
	text = strings.TrimSpace(text)
	m := seriesIndexRe.FindStringSubmatch(text)
	if m == nil {
		return text, nil
	}
	idx, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return text, nil
	}
	return m[1], &idx
}

// detectStructuralPattern recognizes "Author - Title",
// "Author - [Series NN] - Title", and "Title by Author". Only activates
// when the metadata has no valid authors, which prevents false positives
// on legitimate titles like "Stand by Me".
func detectStructuralPattern(title string, meta *BookMetadata) *structuralMatch {
	if hasValidAuthors(meta) {
		return nil
	}

	if m := authorDashTitle.FindStringSubmatch(title); m != nil {
		author := strings.TrimSpace(m[1])
		if isLikelyPersonName(author) {
			match := &structuralMatch{
				title:  strings.TrimSpace(m[3]),
				author: author,
			}
			if m[2] != "" {
				match.series, match.seriesIndex = parseSeriesBracket(m[2])
			}
			return match
		}
	}

	if m := titleByAuthorRe.FindStringSubmatch(title); m != nil {
		author := strings.TrimSpace(m[2])
		if isLikelyPersonName(author) {
			return &structuralMatch{
				title:  strings.TrimSpace(m[1]),
				author: author,
			}
		}
	}

	return nil
}

// hasValidAuthors reports whether metadata has meaningful author info.
func hasValidAuthors(meta *BookMetadata) bool {
	if len(meta.Authors) == 0 {
		return false
	}
	for _, a := range meta.Authors {
		key := strings.ToLower(strings.TrimSpace(a))
		if _, unknown := unknownAuthors[key]; !unknown {
			return true
		}
	}
	return false
}

// Normalize cleans mangled metadata for better search queries. Invalid
// authors are stripped unconditionally, then title splitting and author
// detection apply. The original metadata is never mutated; when nothing
// changed, the result points at the input.
func (n *Normalizer) Normalize(meta *BookMetadata) NormalizationResult {
	modified := false
	title := meta.Title
	authors := append([]string(nil), meta.Authors...)
	series := meta.Series
	seriesIndex := meta.SeriesIndex

	// Strip invalid authors before any title checks.
	if !hasValidAuthors(meta) && len(meta.Authors) > 0 {
		authors = nil
		modified = true
	}

	if structural := detectStructuralPattern(title, meta); structural != nil {
		title = structural.title
		authors = []string{structural.author}
		if structural.series != "" {
			series = structural.series
		}
		if structural.seriesIndex != nil {
			seriesIndex = structural.seriesIndex
		}
		modified = true
	} else if needsNormalization(title) {
		title = n.SplitConcatenated(title)
		modified = true
		if len(authors) == 0 {
			if remaining, author := detectAuthorInTitle(title); author != "" {
				title = remaining
				authors = []string{author}
			}
		}
	}

	if !modified {
		return NormalizationResult{Original: meta, Normalized: meta, WasModified: false}
	}

	normalized := meta.Clone()
	normalized.Title = title
	normalized.Authors = authors
	normalized.Series = series
	normalized.SeriesIndex = seriesIndex
	return NormalizationResult{Original: meta, Normalized: normalized, WasModified: true}
}
