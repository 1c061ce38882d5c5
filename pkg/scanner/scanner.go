// Package scanner walks a directory tree and inventories ebook files by
// format, grouping them into Calibre-style book directories.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/bookerybooks/bookery/pkg/catalog"
)

var ebookExtensions = map[string]struct{}{
	".epub": {},
	".mobi": {},
	".azw3": {},
	".azw":  {},
	".pdf":  {},
	".txt":  {},
	".cbz":  {},
	".cbr":  {},
}

// Files can carry any extension, so .epub files are checked against the
// mime types a real EPUB container can present.
var epubMimeTypes = map[string]struct{}{
	"application/epub+zip": {},
	"application/zip":      {},
}

// Matches a trailing parenthesized Calibre ID like " (2739)".
var calibreIDRE = regexp.MustCompile(`\s+\(\d+\)$`)

// BookEntry is a single book directory with its detected formats.
type BookEntry struct {
	Directory string
	Author    string
	Title     string
	Formats   map[string]struct{}
}

// Name returns "Title - Author" when both are known, falling back to the
// title alone or the directory name.
func (e *BookEntry) Name() string {
	switch {
	case e.Title != "" && e.Author != "":
		return e.Title + " - " + e.Author
	case e.Title != "":
		return e.Title
	}
	return filepath.Base(e.Directory)
}

// HasFormat reports whether the book has the given format. The dot
// prefix and case are normalized.
func (e *BookEntry) HasFormat(ext string) bool {
	normalized := strings.ToLower(ext)
	if !strings.HasPrefix(normalized, ".") {
		normalized = "." + normalized
	}
	_, ok := e.Formats[normalized]
	return ok
}

// FormatList returns the book's formats sorted alphabetically.
func (e *BookEntry) FormatList() []string {
	list := make([]string, 0, len(e.Formats))
	for ext := range e.Formats {
		list = append(list, ext)
	}
	sort.Strings(list)
	return list
}

// ScanResult aggregates the books found under a scan root.
type ScanResult struct {
	Books        []*BookEntry
	FormatCounts map[string]int
	ScanRoot     string
}

// TotalBooks returns the number of book directories found.
func (r *ScanResult) TotalBooks() int {
	return len(r.Books)
}

// MissingFormat returns the books that do not have the given format.
func (r *ScanResult) MissingFormat(ext string) []*BookEntry {
	missing := make([]*BookEntry, 0)
	for _, book := range r.Books {
		if !book.HasFormat(ext) {
			missing = append(missing, book)
		}
	}
	return missing
}

// Scan walks root and groups ebook files by their parent directory. Each
// directory containing at least one ebook file is one book; author and
// title come from the Calibre Author/Title (id) layout when present.
func Scan(ctx context.Context, root string) (*ScanResult, error) {
	log := logger.FromContext(ctx)
	root = filepath.Clean(root)

	dirFormats := map[string]map[string]struct{}{}

	err := filepath.WalkDir(root, func(path string, info fs.DirEntry, err error) error {
		if err != nil {
			return errors.WithStack(err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := ebookExtensions[ext]; !ok {
			return nil
		}
		if ext == ".epub" {
			mtype, err := mimetype.DetectFile(path)
			if err != nil {
				log.Warn("can't detect the mime type of an epub file", logger.Data{"path": path, "err": err.Error()})
				return nil
			}
			if _, ok := epubMimeTypes[mtype.String()]; !ok {
				log.Warn("epub extension with unexpected mime type", logger.Data{"path": path, "mimetype": mtype.String()})
				return nil
			}
		}

		dir := filepath.Dir(path)
		if dirFormats[dir] == nil {
			dirFormats[dir] = map[string]struct{}{}
		}
		dirFormats[dir][ext] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	dirs := make([]string, 0, len(dirFormats))
	for dir := range dirFormats {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	result := &ScanResult{
		Books:        make([]*BookEntry, 0, len(dirs)),
		FormatCounts: map[string]int{},
		ScanRoot:     root,
	}
	for _, dir := range dirs {
		author, title := parseCalibreDir(dir, root)
		entry := &BookEntry{
			Directory: dir,
			Author:    author,
			Title:     title,
			Formats:   dirFormats[dir],
		}
		result.Books = append(result.Books, entry)
		for ext := range entry.Formats {
			result.FormatCounts[ext]++
		}
	}

	return result, nil
}

// parseCalibreDir extracts author and title from a Calibre-style
// directory path. The author is the parent directory name unless the
// book directory sits directly under the scan root.
func parseCalibreDir(bookDir, scanRoot string) (author, title string) {
	dirname := filepath.Base(bookDir)
	title = calibreIDRE.ReplaceAllString(dirname, "")
	if title == "" {
		title = dirname
	}

	parent := filepath.Dir(bookDir)
	if parent != scanRoot {
		author = filepath.Base(parent)
	}
	return author, title
}

// CrossReference is the scan split by catalog membership.
type CrossReference struct {
	InCatalog    []*BookEntry
	NotInCatalog []*BookEntry
}

// CrossReference matches the scanned books against the catalog. A book
// counts as cataloged when any ebook file in its directory is a
// cataloged source path.
func (r *ScanResult) CrossReference(ctx context.Context, cat *catalog.Service) (*CrossReference, error) {
	books, err := cat.ListBooks(ctx, catalog.ListBooksOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cataloged := make(map[string]struct{}, len(books))
	for _, book := range books {
		cataloged[book.SourcePath] = struct{}{}
	}

	ref := &CrossReference{
		InCatalog:    make([]*BookEntry, 0),
		NotInCatalog: make([]*BookEntry, 0),
	}
	for _, entry := range r.Books {
		found := false
		dirEntries, err := os.ReadDir(entry.Directory)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		for _, de := range dirEntries {
			if de.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(de.Name()))
			if _, ok := ebookExtensions[ext]; !ok {
				continue
			}
			if _, ok := cataloged[filepath.Join(entry.Directory, de.Name())]; ok {
				found = true
				break
			}
		}
		if found {
			ref.InCatalog = append(ref.InCatalog, entry)
		} else {
			ref.NotInCatalog = append(ref.NotInCatalog, entry)
		}
	}

	return ref, nil
}
