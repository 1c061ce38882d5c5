package catalog

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/bookerybooks/bookery/pkg/errcodes"
	"github.com/bookerybooks/bookery/pkg/migrations"
	"github.com/bookerybooks/bookery/pkg/models"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestBook(title, hash string) *models.Book {
	return &models.Book{
		Title:      title,
		Authors:    `["Steve Berry"]`,
		Language:   "en",
		SourcePath: "/library/" + hash + ".epub",
		FileHash:   hash,
	}
}

func TestCreateBook(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	book := newTestBook("The Templar Legacy", "hash-1")
	book.ISBN = "9780345504500"
	require.NoError(t, svc.CreateBook(ctx, book))

	assert.NotZero(t, book.ID)
	assert.False(t, book.CreatedAt.IsZero())
	// Author sort falls back to the first author.
	assert.Equal(t, "Berry, Steve", book.AuthorSort)

	found, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "The Templar Legacy", found.Title)
	assert.Equal(t, "9780345504500", found.ISBN)
	assert.Equal(t, "hash-1", found.FileHash)
}

func TestCreateBookKeepsAuthorSort(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	book := newTestBook("The Templar Legacy", "hash-1")
	book.AuthorSort = "Berry, S."
	require.NoError(t, svc.CreateBook(ctx, book))
	assert.Equal(t, "Berry, S.", book.AuthorSort)
}

func TestCreateBookDuplicateHash(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, svc.CreateBook(ctx, newTestBook("First Copy", "same-hash")))

	err := svc.CreateBook(ctx, newTestBook("Second Copy", "same-hash"))
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindDuplicate))
}

func TestRetrieveBook(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	book := newTestBook("The Templar Legacy", "hash-1")
	book.ISBN = "9780345504500"
	require.NoError(t, svc.CreateBook(ctx, book))

	byHash, err := svc.RetrieveBook(ctx, RetrieveBookOptions{FileHash: &book.FileHash})
	require.NoError(t, err)
	assert.Equal(t, book.ID, byHash.ID)

	byISBN, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ISBN: &book.ISBN})
	require.NoError(t, err)
	assert.Equal(t, book.ID, byISBN.ID)

	missing := 9999
	_, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &missing})
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindNotFound))
}

func TestListBooks(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	idx1, idx2 := 1.0, 2.0
	second := newTestBook("The Paris Vendetta", "hash-b")
	second.Series = "Cotton Malone"
	second.SeriesIndex = &idx2
	first := newTestBook("The Templar Legacy", "hash-a")
	first.Series = "Cotton Malone"
	first.SeriesIndex = &idx1
	other := newTestBook("A Lonely Standalone", "hash-c")

	require.NoError(t, svc.CreateBook(ctx, second))
	require.NoError(t, svc.CreateBook(ctx, first))
	require.NoError(t, svc.CreateBook(ctx, other))

	all, err := svc.ListBooks(ctx, ListBooksOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Default listing is by title.
	assert.Equal(t, "A Lonely Standalone", all[0].Title)
	assert.Equal(t, "The Paris Vendetta", all[1].Title)
	assert.Equal(t, "The Templar Legacy", all[2].Title)

	series := "Cotton Malone"
	inSeries, err := svc.ListBooks(ctx, ListBooksOptions{Series: &series})
	require.NoError(t, err)
	require.Len(t, inSeries, 2)
	// Series listing follows series_index.
	assert.Equal(t, "The Templar Legacy", inSeries[0].Title)
	assert.Equal(t, "The Paris Vendetta", inSeries[1].Title)

	_, err = svc.AddTag(ctx, other.ID, "Standalone")
	require.NoError(t, err)

	tag := "standalone"
	tagged, err := svc.ListBooks(ctx, ListBooksOptions{Tag: &tag})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, other.ID, tagged[0].ID)

	unknown := "nope"
	none, err := svc.ListBooks(ctx, ListBooksOptions{Tag: &unknown})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateBook(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	book := newTestBook("Mangled Title", "hash-1")
	require.NoError(t, svc.CreateBook(ctx, book))

	book.Title = "The Templar Legacy"
	require.NoError(t, svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"title"}}))

	found, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "The Templar Legacy", found.Title)

	// No columns is a no-op.
	require.NoError(t, svc.UpdateBook(ctx, book, UpdateBookOptions{}))

	ghost := &models.Book{ID: 9999, Title: "Nobody"}
	err = svc.UpdateBook(ctx, ghost, UpdateBookOptions{Columns: []string{"title"}})
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindNotFound))
}

func TestSetOutputPath(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	book := newTestBook("The Templar Legacy", "hash-1")
	require.NoError(t, svc.CreateBook(ctx, book))

	require.NoError(t, svc.SetOutputPath(ctx, book.ID, "/out/templar.epub"))

	found, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "/out/templar.epub", found.OutputPath)
}

func TestDeleteBook(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newTestBook("The Templar Legacy", "hash-1")
	require.NoError(t, svc.CreateBook(ctx, book))
	_, err := svc.AddTag(ctx, book.ID, "Thriller")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(ctx, book.ID))

	_, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	assert.True(t, errcodes.IsKind(err, errcodes.KindNotFound))

	links, err := db.NewSelect().
		Model((*models.BookTag)(nil)).
		Where("book_id = ?", book.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, links, "tag associations should be gone")

	err = svc.DeleteBook(ctx, 9999)
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindNotFound))
}

func TestSearch(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	templar := newTestBook("The Templar Legacy", "hash-a")
	templar.Description = "Cotton Malone hunts the lost treasure of the Knights Templar."
	paris := newTestBook("The Paris Vendetta", "hash-b")
	require.NoError(t, svc.CreateBook(ctx, templar))
	require.NoError(t, svc.CreateBook(ctx, paris))

	results, err := svc.Search(ctx, "templar")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Templar Legacy", results[0].Title)

	// Prefix match.
	results, err = svc.Search(ctx, "vend")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Paris Vendetta", results[0].Title)

	// Authors column is searchable.
	results, err = svc.Search(ctx, "berry")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = svc.Search(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = svc.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, results)

	// FTS5 operators are taken literally, not as syntax.
	results, err = svc.Search(ctx, `templar AND vendetta OR "`)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchFollowsUpdates(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	book := newTestBook("Mangled Epub Title", "hash-1")
	require.NoError(t, svc.CreateBook(ctx, book))

	book.Title = "The Venetian Betrayal"
	require.NoError(t, svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"title"}}))

	results, err := svc.Search(ctx, "venetian")
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = svc.Search(ctx, "mangled")
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, svc.DeleteBook(ctx, book.ID))
	results, err = svc.Search(ctx, "venetian")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAddTag(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	book := newTestBook("The Templar Legacy", "hash-1")
	require.NoError(t, svc.CreateBook(ctx, book))

	tag, err := svc.AddTag(ctx, book.ID, "Thriller")
	require.NoError(t, err)
	assert.NotZero(t, tag.ID)
	assert.Equal(t, "Thriller", tag.Name)

	// Tagging again is a no-op, not an error.
	again, err := svc.AddTag(ctx, book.ID, "Thriller")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, again.ID)

	// Lookup is case-insensitive; no second tag row appears.
	lower, err := svc.AddTag(ctx, book.ID, "thriller")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, lower.ID)

	tags, err := svc.TagsForBook(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)

	_, err = svc.AddTag(ctx, 9999, "Thriller")
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindNotFound))

	_, err = svc.AddTag(ctx, book.ID, "   ")
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindValidation))
}

func TestRemoveTag(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	book := newTestBook("The Templar Legacy", "hash-1")
	require.NoError(t, svc.CreateBook(ctx, book))
	_, err := svc.AddTag(ctx, book.ID, "Thriller")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveTag(ctx, book.ID, "thriller"))

	tags, err := svc.TagsForBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)

	// The tag itself survives with a zero count.
	all, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 0, all[0].BookCount)

	err = svc.RemoveTag(ctx, book.ID, "nonexistent")
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindNotFound))

	// Tag exists but is not on this book.
	err = svc.RemoveTag(ctx, book.ID, "Thriller")
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindNotFound))
	assert.Contains(t, err.Error(), "on book")
}

func TestTagsForBook(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	book := newTestBook("The Templar Legacy", "hash-1")
	require.NoError(t, svc.CreateBook(ctx, book))
	_, err := svc.AddTag(ctx, book.ID, "Thriller")
	require.NoError(t, err)
	_, err = svc.AddTag(ctx, book.ID, "History")
	require.NoError(t, err)

	tags, err := svc.TagsForBook(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "History", tags[0].Name)
	assert.Equal(t, "Thriller", tags[1].Name)

	_, err = svc.TagsForBook(ctx, 9999)
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindNotFound))
}

func TestListTags(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	one := newTestBook("The Templar Legacy", "hash-a")
	two := newTestBook("The Paris Vendetta", "hash-b")
	require.NoError(t, svc.CreateBook(ctx, one))
	require.NoError(t, svc.CreateBook(ctx, two))

	_, err := svc.AddTag(ctx, one.ID, "Thriller")
	require.NoError(t, err)
	_, err = svc.AddTag(ctx, two.ID, "Thriller")
	require.NoError(t, err)
	_, err = svc.AddTag(ctx, one.ID, "History")
	require.NoError(t, err)
	_, err = svc.FindOrCreateTag(ctx, "Unused")
	require.NoError(t, err)

	tags, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 3)

	assert.Equal(t, "History", tags[0].Name)
	assert.Equal(t, 1, tags[0].BookCount)
	assert.Equal(t, "Thriller", tags[1].Name)
	assert.Equal(t, 2, tags[1].BookCount)
	assert.Equal(t, "Unused", tags[2].Name)
	assert.Equal(t, 0, tags[2].BookCount)
}

func TestBooksByTag(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	one := newTestBook("The Templar Legacy", "hash-a")
	two := newTestBook("The Paris Vendetta", "hash-b")
	other := newTestBook("A Lonely Standalone", "hash-c")
	require.NoError(t, svc.CreateBook(ctx, one))
	require.NoError(t, svc.CreateBook(ctx, two))
	require.NoError(t, svc.CreateBook(ctx, other))

	_, err := svc.AddTag(ctx, one.ID, "History")
	require.NoError(t, err)
	_, err = svc.AddTag(ctx, two.ID, "History")
	require.NoError(t, err)

	books, err := svc.BooksByTag(ctx, "history")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "The Paris Vendetta", books[0].Title)
	assert.Equal(t, "The Templar Legacy", books[1].Title)

	_, err = svc.BooksByTag(ctx, "nope")
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindNotFound))
}
