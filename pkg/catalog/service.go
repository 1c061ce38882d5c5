// Package catalog is the persistence service for the library: book records
// keyed by content hash, tags, and full-text search over the books table.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/bookerybooks/bookery/pkg/errcodes"
	"github.com/bookerybooks/bookery/pkg/models"
	"github.com/bookerybooks/bookery/pkg/sortname"
)

type RetrieveBookOptions struct {
	ID       *int
	FileHash *string
	ISBN     *string
}

type ListBooksOptions struct {
	// Series filters to one series, ordered by series_index.
	Series *string
	// Tag filters to books carrying the tag (case-insensitive).
	Tag *string
}

type RetrieveTagOptions struct {
	ID   *int
	Name *string
}

type UpdateBookOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	if book.AuthorSort == "" && book.Authors != "" {
		authors, err := book.AuthorList()
		if err != nil {
			return err
		}
		if len(authors) > 0 {
			book.AuthorSort = sortname.ForPerson(authors[0])
		}
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: books.file_hash") {
			return errcodes.Duplicate("Book")
		}
		return errors.WithStack(err)
	}
	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.FileHash != nil {
		q = q.Where("b.file_hash = ?", *opts.FileHash)
	}
	if opts.ISBN != nil {
		q = q.Where("b.isbn = ?", *opts.ISBN)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	var books []*models.Book

	q := svc.db.
		NewSelect().
		Model(&books)

	if opts.Series != nil {
		q = q.Where("b.series = ?", *opts.Series).Order("b.series_index ASC")
	} else {
		q = q.Order("b.title ASC")
	}
	if opts.Tag != nil {
		q = q.
			Join("INNER JOIN book_tags bt ON bt.book_id = b.id").
			Join("INNER JOIN tags t ON t.id = bt.tag_id").
			Where("LOWER(t.name) = LOWER(?)", *opts.Tag)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	now := time.Now()
	book.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.NotFound("Book")
	}
	return nil
}

// SetOutputPath records where the written copy of a book landed.
func (svc *Service) SetOutputPath(ctx context.Context, bookID int, outputPath string) error {
	book := &models.Book{ID: bookID, OutputPath: outputPath}
	return svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"output_path"}})
}

// DeleteBook deletes a book and its tag associations.
func (svc *Service) DeleteBook(ctx context.Context, bookID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Delete book_tags associations (cascade should handle this, but be explicit)
		_, err := tx.NewDelete().
			Model((*models.BookTag)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if n == 0 {
			return errcodes.NotFound("Book")
		}
		return nil
	})
}

// Search runs a full-text query over title, authors, description, and
// series, best match first. The input is treated as a literal prefix
// phrase, never as FTS5 syntax.
func (svc *Service) Search(ctx context.Context, query string) ([]*models.Book, error) {
	ftsQuery := BuildPrefixQuery(query)
	if ftsQuery == "" {
		return []*models.Book{}, nil
	}

	books := []*models.Book{}
	err := svc.db.
		NewSelect().
		Model(&books).
		Join("INNER JOIN books_fts ON books_fts.rowid = b.id").
		Where("books_fts MATCH ?", ftsQuery).
		OrderExpr("books_fts.rank").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

func (svc *Service) RetrieveTag(ctx context.Context, opts RetrieveTagOptions) (*models.Tag, error) {
	tag := &models.Tag{}

	q := svc.db.
		NewSelect().
		Model(tag)

	if opts.ID != nil {
		q = q.Where("t.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		// Case-insensitive match
		q = q.Where("LOWER(t.name) = LOWER(?)", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Tag")
		}
		return nil, errors.WithStack(err)
	}

	return tag, nil
}

// FindOrCreateTag finds an existing tag or creates a new one (case-insensitive match).
func (svc *Service) FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.Validation("tag name cannot be empty")
	}

	tag, err := svc.RetrieveTag(ctx, RetrieveTagOptions{Name: &name})
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, errcodes.NotFound("Tag")) {
		return nil, err
	}

	tag = &models.Tag{Name: name}
	now := time.Now()
	tag.CreatedAt = now
	tag.UpdatedAt = now
	_, err = svc.db.
		NewInsert().
		Model(tag).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return tag, nil
}

// AddTag tags a book, creating the tag on first use. Tagging twice with the
// same tag is a no-op.
func (svc *Service) AddTag(ctx context.Context, bookID int, name string) (*models.Tag, error) {
	_, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, err
	}

	tag, err := svc.FindOrCreateTag(ctx, name)
	if err != nil {
		return nil, err
	}

	bt := &models.BookTag{BookID: bookID, TagID: tag.ID}
	_, err = svc.db.
		NewInsert().
		Model(bt).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return tag, nil
}

// RemoveTag removes a tag from a book. The tag itself stays, even when no
// books carry it anymore.
func (svc *Service) RemoveTag(ctx context.Context, bookID int, name string) error {
	tag, err := svc.RetrieveTag(ctx, RetrieveTagOptions{Name: &name})
	if err != nil {
		return err
	}

	res, err := svc.db.
		NewDelete().
		Model((*models.BookTag)(nil)).
		Where("book_id = ? AND tag_id = ?", bookID, tag.ID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.NotFound(fmt.Sprintf("Tag %q on book %d", name, bookID))
	}
	return nil
}

// TagsForBook returns a book's tags alphabetically.
func (svc *Service) TagsForBook(ctx context.Context, bookID int) ([]*models.Tag, error) {
	_, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, err
	}

	var tags []*models.Tag
	err = svc.db.
		NewSelect().
		Model(&tags).
		Join("INNER JOIN book_tags bt ON bt.tag_id = t.id").
		Where("bt.book_id = ?", bookID).
		Order("t.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return tags, nil
}

// ListTags returns every tag with its book count, alphabetically. Tags with
// no books are included.
func (svc *Service) ListTags(ctx context.Context) ([]*models.Tag, error) {
	var tags []*models.Tag

	err := svc.db.
		NewSelect().
		Model(&tags).
		ColumnExpr("t.*").
		ColumnExpr("COUNT(bt.book_id) AS book_count").
		Join("LEFT JOIN book_tags bt ON bt.tag_id = t.id").
		GroupExpr("t.id").
		Order("t.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return tags, nil
}

// BooksByTag returns the books carrying the named tag, by title. Unlike
// ListBooks with a Tag filter, an unknown tag is an error.
func (svc *Service) BooksByTag(ctx context.Context, name string) ([]*models.Book, error) {
	tag, err := svc.RetrieveTag(ctx, RetrieveTagOptions{Name: &name})
	if err != nil {
		return nil, err
	}

	var books []*models.Book
	err = svc.db.
		NewSelect().
		Model(&books).
		Join("INNER JOIN book_tags bt ON bt.book_id = b.id").
		Where("bt.tag_id = ?", tag.ID).
		Order("b.title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}
