// Package models holds the bun table models for the library catalog.
package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"

	"github.com/bookerybooks/bookery/pkg/metadata"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Title     string    `bun:",nullzero" json:"title"`
	// Authors is a JSON array. Kept searchable as a single FTS column.
	Authors     string   `bun:",nullzero" json:"authors"`
	AuthorSort  string   `bun:",nullzero" json:"author_sort"`
	Language    string   `bun:",nullzero" json:"language"`
	Publisher   string   `bun:",nullzero" json:"publisher"`
	ISBN        string   `bun:",nullzero" json:"isbn"`
	Description string   `bun:",nullzero" json:"description"`
	Series      string   `bun:",nullzero" json:"series"`
	SeriesIndex *float64 `json:"series_index,omitempty"`
	// Identifiers is a JSON object of scheme to value.
	Identifiers string `bun:",nullzero" json:"identifiers"`
	SourcePath  string `bun:",nullzero" json:"source_path"`
	OutputPath  string `bun:",nullzero" json:"output_path"`
	FileHash    string `bun:",nullzero" json:"file_hash"`
}

// AuthorList parses the Authors JSON column.
func (b *Book) AuthorList() ([]string, error) {
	if b.Authors == "" {
		return nil, nil
	}
	var authors []string
	err := json.Unmarshal([]byte(b.Authors), &authors)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return authors, nil
}

// IdentifierMap parses the Identifiers JSON column.
func (b *Book) IdentifierMap() (map[string]string, error) {
	if b.Identifiers == "" {
		return nil, nil
	}
	var ids map[string]string
	err := json.Unmarshal([]byte(b.Identifiers), &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ids, nil
}

// ToMetadata converts the row back into the metadata struct the match and
// write flows work with.
func (b *Book) ToMetadata() (*metadata.BookMetadata, error) {
	authors, err := b.AuthorList()
	if err != nil {
		return nil, err
	}
	ids, err := b.IdentifierMap()
	if err != nil {
		return nil, err
	}

	meta := &metadata.BookMetadata{
		Title:       b.Title,
		Authors:     authors,
		AuthorSort:  b.AuthorSort,
		Language:    b.Language,
		Publisher:   b.Publisher,
		ISBN:        b.ISBN,
		Description: b.Description,
		Series:      b.Series,
		Identifiers: ids,
		SourcePath:  b.SourcePath,
	}
	if b.SeriesIndex != nil {
		idx := *b.SeriesIndex
		meta.SeriesIndex = &idx
	}
	return meta, nil
}

// BookFromMetadata builds a row for the given file. Timestamps and the
// author sort fallback are filled in by the catalog service on insert.
func BookFromMetadata(meta *metadata.BookMetadata, fileHash, outputPath string) (*Book, error) {
	authors := meta.Authors
	if authors == nil {
		authors = []string{}
	}
	authorsJSON, err := json.Marshal(authors)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	ids := meta.Identifiers
	if ids == nil {
		ids = map[string]string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	book := &Book{
		Title:       meta.Title,
		Authors:     string(authorsJSON),
		AuthorSort:  meta.AuthorSort,
		Language:    meta.Language,
		Publisher:   meta.Publisher,
		ISBN:        meta.ISBN,
		Description: meta.Description,
		Series:      meta.Series,
		Identifiers: string(idsJSON),
		SourcePath:  meta.SourcePath,
		OutputPath:  outputPath,
		FileHash:    fileHash,
	}
	if meta.SeriesIndex != nil {
		idx := *meta.SeriesIndex
		book.SeriesIndex = &idx
	}
	return book, nil
}
