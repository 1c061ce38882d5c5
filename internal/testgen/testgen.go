// Package testgen generates EPUB fixture files with configurable
// metadata for tests.
package testgen

import "os"

// EPUBOptions configures the generated EPUB file.
type EPUBOptions struct {
	Title        string
	Authors      []string
	AuthorFileAs string // file-as attribute on the first creator
	Language     string // defaults to "en"
	Publisher    string
	Description  string
	Identifiers  []Identifier
	Series       string
	SeriesNumber *float64
	HasCover     bool
	CoverMime    string // "image/jpeg" or "image/png", defaults to "image/png"
}

// Identifier is a dc:identifier entry. Scheme is rendered as an
// opf:scheme attribute when set.
type Identifier struct {
	Scheme string
	Value  string
}

// Float64Ptr is a helper to create a pointer to a float64.
func Float64Ptr(f float64) *float64 {
	return &f
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
