package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				authors TEXT,
				author_sort TEXT,
				language TEXT,
				publisher TEXT,
				isbn TEXT,
				description TEXT,
				series TEXT,
				series_index REAL,
				identifiers TEXT,
				source_path TEXT NOT NULL,
				output_path TEXT,
				file_hash TEXT NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_books_file_hash ON books (file_hash)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_isbn ON books (isbn) WHERE isbn IS NOT NULL`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_series ON books (series) WHERE series IS NOT NULL`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_source_path ON books (source_path)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE VIRTUAL TABLE books_fts USING fts5(
				title,
				authors,
				description,
				series,
				content='books',
				content_rowid='id'
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// External-content FTS tables are kept in sync by triggers on the
		// books table.
		_, err = db.Exec(`
			CREATE TRIGGER books_ai AFTER INSERT ON books BEGIN
				INSERT INTO books_fts (rowid, title, authors, description, series)
				VALUES (new.id, new.title, new.authors, new.description, new.series);
			END
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TRIGGER books_ad AFTER DELETE ON books BEGIN
				INSERT INTO books_fts (books_fts, rowid, title, authors, description, series)
				VALUES ('delete', old.id, old.title, old.authors, old.description, old.series);
			END
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TRIGGER books_au AFTER UPDATE ON books BEGIN
				INSERT INTO books_fts (books_fts, rowid, title, authors, description, series)
				VALUES ('delete', old.id, old.title, old.authors, old.description, old.series);
				INSERT INTO books_fts (rowid, title, authors, description, series)
				VALUES (new.id, new.title, new.authors, new.description, new.series);
			END
`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS books_fts")
		if err != nil {
			return errors.WithStack(err)
		}
		// Dropping books also drops its triggers.
		_, err = db.Exec("DROP TABLE IF EXISTS books")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
