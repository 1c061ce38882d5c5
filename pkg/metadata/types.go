// Package metadata holds the core data structures and algorithms for
// reconciling ebook metadata: normalization of mangled titles, candidate
// scoring, and the provider contract for external catalogs.
package metadata

import "strings"

// BookMetadata is the interchange format that flows through the pipeline:
// extraction, matching, review, writing. Every field except Title is
// optional; empty strings mean absent. SeriesIndex is a pointer because 0
// is a meaningful position.
type BookMetadata struct {
	Title       string
	Authors     []string
	AuthorSort  string
	Language    string
	Publisher   string
	ISBN        string
	Description string
	Series      string
	SeriesIndex *float64
	Identifiers map[string]string
	CoverImage  []byte
	SourcePath  string
}

// Author returns the joined author string for display.
func (m *BookMetadata) Author() string {
	return strings.Join(m.Authors, ", ")
}

// HasCover reports whether cover image data is present.
func (m *BookMetadata) HasCover() bool {
	return len(m.CoverImage) > 0
}

// Clone returns a deep copy so pipeline stages never share mutable state
// with their inputs.
func (m *BookMetadata) Clone() *BookMetadata {
	if m == nil {
		return nil
	}
	clone := *m
	if m.Authors != nil {
		clone.Authors = append([]string(nil), m.Authors...)
	}
	if m.Identifiers != nil {
		clone.Identifiers = make(map[string]string, len(m.Identifiers))
		for k, v := range m.Identifiers {
			clone.Identifiers[k] = v
		}
	}
	if m.CoverImage != nil {
		clone.CoverImage = append([]byte(nil), m.CoverImage...)
	}
	if m.SeriesIndex != nil {
		idx := *m.SeriesIndex
		clone.SeriesIndex = &idx
	}
	return &clone
}

// NormalizationResult pairs the untouched input with its cleaned form.
// When nothing changed, Normalized is the same pointer as Original and
// WasModified is false.
type NormalizationResult struct {
	Original    *BookMetadata
	Normalized  *BookMetadata
	WasModified bool
}
