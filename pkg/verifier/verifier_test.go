package verifier

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/bookerybooks/bookery/pkg/catalog"
	"github.com/bookerybooks/bookery/pkg/fileutils"
	"github.com/bookerybooks/bookery/pkg/migrations"
	"github.com/bookerybooks/bookery/pkg/models"
)

func newTestCatalog(t *testing.T) *catalog.Service {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return catalog.NewService(db)
}

// catalogFile writes contents to path, hashes it, and catalogs it.
func catalogFile(t *testing.T, cat *catalog.Service, path, title, contents string) *models.Book {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	hash, err := fileutils.HashFile(path)
	require.NoError(t, err)

	book := &models.Book{
		Title:      title,
		SourcePath: path,
		FileHash:   hash,
	}
	require.NoError(t, cat.CreateBook(context.Background(), book))
	return book
}

func TestVerifyLibraryAllOK(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t)
	dir := t.TempDir()

	catalogFile(t, cat, filepath.Join(dir, "a.epub"), "Book A", "contents a")
	catalogFile(t, cat, filepath.Join(dir, "b.epub"), "Book B", "contents b")

	result, err := VerifyLibrary(context.Background(), cat, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.OK)
	assert.Equal(t, 0, result.TotalIssues())

	result, err = VerifyLibrary(context.Background(), cat, true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.OK)
	assert.Equal(t, 0, result.TotalIssues())
}

func TestVerifyLibraryMissingSource(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t)
	dir := t.TempDir()

	book := catalogFile(t, cat, filepath.Join(dir, "gone.epub"), "Gone Book", "contents")
	require.NoError(t, os.Remove(book.SourcePath))

	result, err := VerifyLibrary(context.Background(), cat, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.OK)
	require.Len(t, result.MissingSource, 1)
	assert.Equal(t, "Gone Book", result.MissingSource[0].Title)
	assert.Equal(t, 1, result.TotalIssues())
}

func TestVerifyLibraryMissingOutput(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t)
	ctx := context.Background()
	dir := t.TempDir()

	book := catalogFile(t, cat, filepath.Join(dir, "a.epub"), "Book A", "contents")
	require.NoError(t, cat.SetOutputPath(ctx, book.ID, filepath.Join(dir, "never-written.epub")))

	// A second record with no output path recorded has nothing to check.
	catalogFile(t, cat, filepath.Join(dir, "b.epub"), "Book B", "other contents")

	result, err := VerifyLibrary(ctx, cat, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OK)
	require.Len(t, result.MissingOutput, 1)
	assert.Equal(t, "Book A", result.MissingOutput[0].Title)

	// Once the output file exists the record is clean again.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "never-written.epub"), []byte("output"), 0644))
	result, err = VerifyLibrary(ctx, cat, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.OK)
	assert.Equal(t, 0, result.TotalIssues())
}

func TestVerifyLibraryHashMismatch(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t)
	dir := t.TempDir()

	book := catalogFile(t, cat, filepath.Join(dir, "a.epub"), "Book A", "original contents")
	require.NoError(t, os.WriteFile(book.SourcePath, []byte("tampered contents"), 0644))

	// Without the hash check the record still looks fine.
	result, err := VerifyLibrary(context.Background(), cat, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OK)
	assert.Equal(t, 0, result.TotalIssues())

	result, err = VerifyLibrary(context.Background(), cat, true)
	require.NoError(t, err)
	assert.Equal(t, 0, result.OK)
	require.Len(t, result.HashMismatch, 1)
	assert.Equal(t, "Book A", result.HashMismatch[0].Title)
}

func TestVerifyLibraryMultipleIssues(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t)
	ctx := context.Background()
	dir := t.TempDir()

	book := catalogFile(t, cat, filepath.Join(dir, "a.epub"), "Book A", "contents")
	require.NoError(t, cat.SetOutputPath(ctx, book.ID, filepath.Join(dir, "missing-output.epub")))
	require.NoError(t, os.Remove(book.SourcePath))

	result, err := VerifyLibrary(ctx, cat, true)
	require.NoError(t, err)
	assert.Equal(t, 0, result.OK)
	assert.Len(t, result.MissingSource, 1)
	assert.Len(t, result.MissingOutput, 1)
	// No hash check runs against a missing source.
	assert.Empty(t, result.HashMismatch)
	assert.Equal(t, 2, result.TotalIssues())
}

func TestVerifyLibraryEmptyCatalog(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t)

	result, err := VerifyLibrary(context.Background(), cat, true)
	require.NoError(t, err)
	assert.Equal(t, 0, result.OK)
	assert.Equal(t, 0, result.TotalIssues())
}
