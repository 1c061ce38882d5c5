// Package verifier checks that cataloged files still exist on disk and
// optionally that their content hashes still match the catalog.
package verifier

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/bookerybooks/bookery/pkg/catalog"
	"github.com/bookerybooks/bookery/pkg/fileutils"
	"github.com/bookerybooks/bookery/pkg/models"
)

// VerifyResult aggregates one verification run. A record can appear in
// more than one issue list.
type VerifyResult struct {
	OK            int
	MissingSource []*models.Book
	MissingOutput []*models.Book
	HashMismatch  []*models.Book
}

// TotalIssues returns the number of issues found across all categories.
func (r *VerifyResult) TotalIssues() int {
	return len(r.MissingSource) + len(r.MissingOutput) + len(r.HashMismatch)
}

// VerifyLibrary checks every cataloged book: the source file must exist,
// the output file must exist when one is recorded, and with checkHash
// on, the source is re-hashed and compared against the stored hash.
func VerifyLibrary(ctx context.Context, cat *catalog.Service, checkHash bool) (*VerifyResult, error) {
	books, err := cat.ListBooks(ctx, catalog.ListBooksOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	result := &VerifyResult{}
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		hasIssue := false

		sourceExists := fileExists(book.SourcePath)
		if !sourceExists {
			result.MissingSource = append(result.MissingSource, book)
			hasIssue = true
		}

		if book.OutputPath != "" && !fileExists(book.OutputPath) {
			result.MissingOutput = append(result.MissingOutput, book)
			hasIssue = true
		}

		if checkHash && sourceExists {
			hash, err := fileutils.HashFile(book.SourcePath)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if hash != book.FileHash {
				result.HashMismatch = append(result.HashMismatch, book)
				hasIssue = true
			}
		}

		if !hasIssue {
			result.OK++
		}
	}

	return result, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
