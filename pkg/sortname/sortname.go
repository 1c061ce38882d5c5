// Package sortname derives bibliographic sort keys from display names
// and titles, following library cataloging conventions. The catalog
// stores the result as author_sort and the EPUB writer emits it as the
// creator's file-as attribute.
package sortname

import (
	"strings"
)

// titleArticles are leading articles moved to the end of a sort title.
var titleArticles = []string{"The", "A", "An"}

// wordSet is a case-insensitive membership set for name-part
// classification.
type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	set := make(wordSet, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

func (s wordSet) contains(word string) bool {
	_, ok := s[strings.ToLower(word)]
	return ok
}

// honorifics are titles stripped from the front of a name.
var honorifics = newWordSet(
	"Dr.", "Dr", "Mr.", "Mr", "Mrs.", "Mrs", "Ms.", "Ms",
	"Prof.", "Prof", "Rev.", "Rev", "Fr.", "Fr",
	"Sir", "Dame", "Lord", "Lady",
)

// generational suffixes distinguish people, so they stay in the sort
// name.
var generational = newWordSet(
	"Jr.", "Jr", "Sr.", "Sr", "Junior", "Senior",
	"I", "II", "III", "IV", "V",
)

// credentials are academic and professional suffixes dropped from the
// sort name.
var credentials = newWordSet(
	"PhD", "Ph.D", "Ph.D.", "PsyD", "Psy.D", "Psy.D.",
	"MD", "M.D", "M.D.", "DO", "D.O", "D.O.",
	"DDS", "D.D.S", "D.D.S.", "JD", "J.D", "J.D.",
	"EdD", "Ed.D", "Ed.D.", "LLD", "LL.D", "LL.D.",
	"MBA", "M.B.A", "M.B.A.", "MS", "M.S", "M.S.",
	"MA", "M.A", "M.A.", "BA", "B.A", "B.A.",
	"BS", "B.S", "B.S.", "RN", "R.N", "R.N.",
	"Esq", "Esq.",
)

// particles sort with the given name rather than the surname:
// "Ludwig van Beethoven" sorts as "Beethoven, Ludwig van".
var particles = newWordSet(
	"van", "von", "de", "da", "di", "du", "del", "della",
	"la", "le", "el", "al", "bin", "ibn",
)

// ForTitle converts a display title to its sort form by moving a leading
// article to the end: "The Hobbit" becomes "Hobbit, The".
func ForTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}

	for _, article := range titleArticles {
		if len(title) <= len(article)+1 {
			continue
		}
		if !strings.EqualFold(title[:len(article)+1], article+" ") {
			continue
		}
		rest := strings.TrimSpace(title[len(article)+1:])
		if rest != "" {
			// Keep the article's original casing.
			return rest + ", " + title[:len(article)]
		}
	}
	return title
}

// ForPerson converts a display name to "Last, First" sort form.
// Honorifics and credentials are stripped, generational suffixes are
// kept, and surname particles travel with the given name:
//
//	"Stephen King"           -> "King, Stephen"
//	"Dr. Sarah Connor"       -> "Connor, Sarah"
//	"Jane Doe PhD"           -> "Doe, Jane"
//	"Martin Luther King Jr." -> "King, Martin Luther, Jr."
//	"Ludwig van Beethoven"   -> "Beethoven, Ludwig van"
func ForPerson(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	parts := strings.Fields(name)
	for i, part := range parts {
		parts[i] = strings.TrimSuffix(part, ",")
	}
	if len(parts) == 1 {
		return parts[0]
	}

	for len(parts) > 1 && honorifics.contains(parts[0]) {
		parts = parts[1:]
	}
	if len(parts) == 1 {
		return parts[0]
	}

	// Peel suffixes off the end, keeping only the generational ones.
	var suffixes []string
	for len(parts) > 1 {
		last := parts[len(parts)-1]
		if generational.contains(last) {
			suffixes = append([]string{last}, suffixes...)
			parts = parts[:len(parts)-1]
			continue
		}
		if credentials.contains(last) {
			parts = parts[:len(parts)-1]
			continue
		}
		break
	}

	if len(parts) == 1 {
		if len(suffixes) > 0 {
			return parts[0] + ", " + strings.Join(suffixes, ", ")
		}
		return parts[0]
	}

	surname := parts[len(parts)-1]
	given := parts[:len(parts)-1]

	// Collect particles sitting directly before the surname.
	var leading []string
	for len(given) > 0 && particles.contains(given[len(given)-1]) {
		leading = append([]string{given[len(given)-1]}, leading...)
		given = given[:len(given)-1]
	}

	givenName := strings.Join(given, " ")
	if len(leading) > 0 {
		if givenName != "" {
			givenName += " "
		}
		givenName += strings.Join(leading, " ")
	}

	sorted := surname + ", " + givenName
	if len(suffixes) > 0 {
		sorted += ", " + strings.Join(suffixes, ", ")
	}
	return sorted
}

// ForPeople builds a combined sort key for a list of display names,
// joining the individual sort names with " & ". Blank entries are
// skipped.
func ForPeople(names []string) string {
	sorted := make([]string, 0, len(names))
	for _, name := range names {
		s := ForPerson(name)
		if s == "" {
			continue
		}
		sorted = append(sorted, s)
	}
	return strings.Join(sorted, " & ")
}
