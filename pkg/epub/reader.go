// Package epub reads and writes metadata inside EPUB containers. The
// reader walks the archive to the OPF package document; the writer
// streams the archive to a temp file with a rewritten OPF and renames it
// into place.
package epub

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bookerybooks/bookery/pkg/errcodes"
	"github.com/bookerybooks/bookery/pkg/metadata"
)

// Options configures a Format.
type Options struct {
	// EmbedCover replaces the container's cover image when the metadata
	// being written carries one.
	EmbedCover bool
}

// Format reads and writes EPUB metadata. It satisfies the write
// pipeline's format capability.
type Format struct {
	embedCover bool
}

func New(opts Options) *Format {
	return &Format{embedCover: opts.EmbedCover}
}

// isbnSchemes lists identifier schemes checked, in order, when looking
// for an ISBN.
var isbnSchemes = []string{"isbn", "isbn13", "isbn-13", "isbn10", "isbn-10"}

// ReadMetadata extracts book metadata from the EPUB at path. A missing
// or unparsable container yields a format error.
func (f *Format) ReadMetadata(path string) (*metadata.BookMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(errcodes.Formatf("opening %s: %v", path, err))
	}
	defer file.Close()

	stats, err := file.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	zr, err := zip.NewReader(file, stats.Size())
	if err != nil {
		return nil, errors.WithStack(errcodes.Formatf("reading %s as zip: %v", path, err))
	}

	opf, err := findOPF(zr)
	if err != nil {
		return nil, err
	}
	md := opf.pkg.Metadata

	meta := &metadata.BookMetadata{
		Title:       mainTitle(md),
		Language:    strings.TrimSpace(md.Language),
		Publisher:   strings.TrimSpace(md.Publisher),
		Description: strings.TrimSpace(md.Description),
		SourcePath:  path,
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	for _, creator := range md.Creators {
		name := strings.TrimSpace(creator.Text)
		if name == "" {
			continue
		}
		meta.Authors = append(meta.Authors, name)
		if meta.AuthorSort == "" {
			meta.AuthorSort = strings.TrimSpace(creator.FileAs)
		}
	}

	identifiers, schemes := collectIdentifiers(md)
	if len(identifiers) > 0 {
		meta.Identifiers = identifiers
	}
	meta.ISBN = detectISBN(identifiers, schemes)
	meta.Series, meta.SeriesIndex = calibreSeries(md)

	if item := coverManifestItem(opf); item != nil {
		data, err := readEntryByName(zr, opfBasePath(opf.name)+item.Href)
		if err == nil {
			meta.CoverImage = data
		}
	}

	return meta, nil
}

// mainTitle picks the package's main title. With several titles it
// prefers the one refined as title-type "main", then the first.
func mainTitle(md opfMetadata) string {
	if len(md.Titles) == 1 {
		return strings.TrimSpace(md.Titles[0].Text)
	}
	if len(md.Titles) > 1 {
		refines := metaRefinements(md)
		for _, t := range md.Titles {
			if t.ID != "" && refines[t.ID]["title-type"] == "main" {
				return strings.TrimSpace(t.Text)
			}
		}
		return strings.TrimSpace(md.Titles[0].Text)
	}
	return ""
}

// collectIdentifiers maps identifier schemes (lowercased, "id" when
// absent) to values. The returned slice holds the schemes in document
// order so ISBN detection scans values deterministically.
func collectIdentifiers(md opfMetadata) (map[string]string, []string) {
	identifiers := map[string]string{}
	schemes := []string{}
	for _, id := range md.Identifiers {
		value := strings.TrimSpace(id.Text)
		if value == "" {
			continue
		}
		scheme := id.SchemeOPF
		if scheme == "" {
			scheme = id.Scheme
		}
		if scheme == "" {
			scheme = "id"
		}
		key := strings.ToLower(scheme)
		if _, ok := identifiers[key]; !ok {
			schemes = append(schemes, key)
		}
		identifiers[key] = value
	}
	return identifiers, schemes
}

func detectISBN(identifiers map[string]string, schemes []string) string {
	for _, scheme := range isbnSchemes {
		if v, ok := identifiers[scheme]; ok {
			return v
		}
	}
	for _, scheme := range schemes {
		if value := identifiers[scheme]; looksLikeISBN(value) {
			return value
		}
	}
	return ""
}

// looksLikeISBN reports whether value has the shape of an ISBN-10 or
// ISBN-13 once separators are removed.
func looksLikeISBN(value string) bool {
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(value)
	if len(cleaned) != 10 && len(cleaned) != 13 {
		return false
	}
	digits := strings.ReplaceAll(cleaned, "X", "")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func calibreSeries(md opfMetadata) (string, *float64) {
	content := metaContent(md)
	series := content["calibre:series"]
	var index *float64
	if s := content["calibre:series_index"]; s != "" {
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			index = &num
		}
	}
	return series, index
}

// coverManifestItem resolves the cover image's manifest entry: the item
// referenced by the legacy cover meta tag, then an item carrying the
// cover-image property, then any image item whose id or href mentions
// "cover".
func coverManifestItem(opf *opfFile) *opfManifestItem {
	items := opf.pkg.Manifest.Items
	if coverID := metaContent(opf.pkg.Metadata)["cover"]; coverID != "" {
		for i, item := range items {
			if item.ID == coverID {
				return &items[i]
			}
		}
	}
	for i, item := range items {
		if strings.Contains(item.Properties, "cover-image") {
			return &items[i]
		}
	}
	for i, item := range items {
		if !strings.HasPrefix(item.MediaType, "image/") {
			continue
		}
		if strings.Contains(strings.ToLower(item.ID), "cover") ||
			strings.Contains(strings.ToLower(item.Href), "cover") {
			return &items[i]
		}
	}
	return nil
}
