// Package pipeline implements the non-destructive metadata write flow:
// copy the source into the output directory, write metadata into the
// copy, then read the copy back and verify field by field. The source
// file is never modified; a failed write or verification deletes the
// copy.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/bookerybooks/bookery/pkg/fileutils"
	"github.com/bookerybooks/bookery/pkg/metadata"
)

// Format is the capability the pipeline needs from an ebook container:
// reading metadata back out and writing metadata into a file in place.
type Format interface {
	ReadMetadata(path string) (*metadata.BookMetadata, error)
	WriteMetadata(ctx context.Context, path string, meta *metadata.BookMetadata) error
}

// FieldVerification is the outcome of checking a single metadata field
// after write-back.
type FieldVerification struct {
	Field    string
	Expected string
	Actual   string
	Passed   bool
}

// WriteResult reports a metadata write with its verification details.
// Success is false when the write or any verified field failed; in that
// case the output copy has been deleted and Error carries the reason.
type WriteResult struct {
	Path           string
	Success        bool
	VerifiedFields []FieldVerification
	Error          string
}

// Pipeline applies metadata to copies of source files. It serializes
// destination-name reservation per output directory so concurrent
// applies cannot claim the same name.
type Pipeline struct {
	format Format

	mu   sync.Mutex
	dirs map[string]*sync.Mutex
}

func New(format Format) *Pipeline {
	return &Pipeline{
		format: format,
		dirs:   map[string]*sync.Mutex{},
	}
}

// Apply copies the file at sourcePath into outputDir and writes meta
// into the copy. Name collisions get a _1.._10000 suffix; running out of
// suffixes is returned as an error. Write or verification failures are
// reported through the WriteResult with the copy already removed.
func (p *Pipeline) Apply(ctx context.Context, sourcePath string, meta *metadata.BookMetadata, outputDir string) (*WriteResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.WithStack(err)
	}

	dest, err := p.reserveDestination(outputDir, filepath.Base(sourcePath))
	if err != nil {
		return nil, err
	}

	if err := fileutils.CopyFile(sourcePath, dest); err != nil {
		p.cleanup(ctx, dest)
		return nil, err
	}

	if err := p.format.WriteMetadata(ctx, dest, meta); err != nil {
		p.cleanup(ctx, dest)
		return &WriteResult{Success: false, Error: err.Error()}, nil
	}

	verifications, err := p.verify(dest, meta)
	if err != nil {
		p.cleanup(ctx, dest)
		return &WriteResult{Success: false, Error: err.Error()}, nil
	}

	var failed []string
	for _, v := range verifications {
		if !v.Passed {
			failed = append(failed, v.Field)
		}
	}
	if len(failed) > 0 {
		p.cleanup(ctx, dest)
		return &WriteResult{
			Success:        false,
			VerifiedFields: verifications,
			Error:          "Verification failed for: " + strings.Join(failed, ", "),
		}, nil
	}

	return &WriteResult{Path: dest, Success: true, VerifiedFields: verifications}, nil
}

// reserveDestination picks a non-colliding name under outputDir and
// claims it by creating the file exclusively. The per-directory lock
// serializes in-process callers; O_EXCL catches claims made by other
// processes between the probe and the create, in which case the probe
// runs again.
func (p *Pipeline) reserveDestination(outputDir, baseName string) (string, error) {
	lock := p.dirLock(outputDir)
	lock.Lock()
	defer lock.Unlock()

	for {
		dest, err := fileutils.ResolveCollision(filepath.Join(outputDir, baseName))
		if err != nil {
			return "", err
		}
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.WithStack(err)
		}
		f.Close()
		return dest, nil
	}
}

func (p *Pipeline) dirLock(dir string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.dirs[dir]; !ok {
		p.dirs[dir] = &sync.Mutex{}
	}
	return p.dirs[dir]
}

// verify reads the copy back and compares fields against meta. Only set
// fields are checked: the title always, authors as a sorted joined list,
// language case-insensitively, publisher and description exactly.
func (p *Pipeline) verify(dest string, meta *metadata.BookMetadata) ([]FieldVerification, error) {
	readBack, err := p.format.ReadMetadata(dest)
	if err != nil {
		return nil, err
	}

	verifications := []FieldVerification{{
		Field:    "title",
		Expected: meta.Title,
		Actual:   readBack.Title,
		Passed:   meta.Title == readBack.Title,
	}}

	if len(meta.Authors) > 0 {
		expected := joinSorted(meta.Authors)
		actual := joinSorted(readBack.Authors)
		verifications = append(verifications, FieldVerification{
			Field:    "authors",
			Expected: expected,
			Actual:   actual,
			Passed:   expected == actual,
		})
	}

	if meta.Language != "" {
		passed := readBack.Language != "" && strings.EqualFold(meta.Language, readBack.Language)
		verifications = append(verifications, FieldVerification{
			Field:    "language",
			Expected: meta.Language,
			Actual:   readBack.Language,
			Passed:   passed,
		})
	}

	if meta.Publisher != "" {
		verifications = append(verifications, FieldVerification{
			Field:    "publisher",
			Expected: meta.Publisher,
			Actual:   readBack.Publisher,
			Passed:   meta.Publisher == readBack.Publisher,
		})
	}

	if meta.Description != "" {
		verifications = append(verifications, FieldVerification{
			Field:    "description",
			Expected: meta.Description,
			Actual:   readBack.Description,
			Passed:   meta.Description == readBack.Description,
		})
	}

	return verifications, nil
}

func (p *Pipeline) cleanup(ctx context.Context, dest string) {
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		log := logger.FromContext(ctx)
		log.Err(err).Warn("removing failed output copy", logger.Data{"path": dest})
	}
}

func joinSorted(names []string) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}
