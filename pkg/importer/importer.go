// Package importer catalogs ebook files into the library database,
// deduplicating by content hash.
package importer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/bookerybooks/bookery/pkg/catalog"
	"github.com/bookerybooks/bookery/pkg/errcodes"
	"github.com/bookerybooks/bookery/pkg/fileutils"
	"github.com/bookerybooks/bookery/pkg/metadata"
	"github.com/bookerybooks/bookery/pkg/models"
)

// Reader extracts metadata from an ebook file.
type Reader interface {
	ReadMetadata(path string) (*metadata.BookMetadata, error)
}

// MatchOutcome carries the reconciled metadata for one file and, when a
// corrected copy was written, the path of that copy.
type MatchOutcome struct {
	Metadata   *metadata.BookMetadata
	OutputPath string
}

// MatchFunc runs the reconciliation flow on one file's extracted
// metadata. Returning nil means the file was skipped and is cataloged
// with the metadata as extracted, without an output path.
type MatchFunc func(ctx context.Context, meta *metadata.BookMetadata, path string) *MatchOutcome

// ImportError records a file that could not be imported and why.
type ImportError struct {
	Path    string
	Message string
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Added        int
	Skipped      int
	Errors       int
	ErrorDetails []ImportError
}

func (r *ImportResult) addError(path string, err error) {
	r.Errors++
	r.ErrorDetails = append(r.ErrorDetails, ImportError{Path: path, Message: err.Error()})
}

type Importer struct {
	catalog *catalog.Service
	reader  Reader
	match   MatchFunc
}

// New returns an Importer backed by the given catalog and metadata
// reader. match may be nil to catalog files as they are.
func New(cat *catalog.Service, reader Reader, match MatchFunc) *Importer {
	return &Importer{
		catalog: cat,
		reader:  reader,
		match:   match,
	}
}

// Import catalogs each path in order. Files whose hash is already
// cataloged are skipped, unreadable files are recorded as errors, and
// the rest are inserted. Per-file problems never abort the run; only
// catalog failures and context cancellation do.
func (i *Importer) Import(ctx context.Context, paths []string) (*ImportResult, error) {
	log := logger.FromContext(ctx)
	result := &ImportResult{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		hash, err := fileutils.HashFile(path)
		if err != nil {
			log.Warn("could not hash file", logger.Data{"path": path, "err": err.Error()})
			result.addError(path, err)
			continue
		}

		// Check for a duplicate before reading metadata; hashing is
		// cheaper than a zip walk.
		_, err = i.catalog.RetrieveBook(ctx, catalog.RetrieveBookOptions{FileHash: &hash})
		if err == nil {
			log.Debug("file already cataloged", logger.Data{"path": path})
			result.Skipped++
			continue
		}
		if !errors.Is(err, errcodes.NotFound("Book")) {
			return nil, errors.WithStack(err)
		}

		meta, err := i.reader.ReadMetadata(path)
		if err != nil {
			log.Warn("could not read metadata", logger.Data{"path": path, "err": err.Error()})
			result.addError(path, err)
			continue
		}
		meta.SourcePath = path

		outputPath := ""
		if i.match != nil {
			if outcome := i.match(ctx, meta, path); outcome != nil {
				meta = outcome.Metadata
				meta.SourcePath = path
				outputPath = outcome.OutputPath
			}
		}

		book, err := models.BookFromMetadata(meta, hash, outputPath)
		if err != nil {
			log.Warn("could not encode metadata", logger.Data{"path": path, "err": err.Error()})
			result.addError(path, err)
			continue
		}

		err = i.catalog.CreateBook(ctx, book)
		if errcodes.IsKind(err, errcodes.KindDuplicate) {
			// Another process inserted the same hash between the check
			// and the insert.
			result.Skipped++
			continue
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		result.Added++
	}

	return result, nil
}
