package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bookerybooks/bookery/pkg/catalog"
	"github.com/bookerybooks/bookery/pkg/errcodes"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show detailed metadata for a book by ID",
		ArgsUsage: "<id>",
		Action:    runInfo,
	}
}

func runInfo(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: bookery info <id>", 1)
	}
	bookID, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return cli.Exit("usage: bookery info <id>", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := runContext(c)

	cat, db, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	book, err := cat.RetrieveBook(ctx, catalog.RetrieveBookOptions{ID: &bookID})
	if errcodes.IsKind(err, errcodes.KindNotFound) {
		return cli.Exit(fmt.Sprintf("Book %d not found.", bookID), 1)
	}
	if err != nil {
		return err
	}

	tags, err := cat.TagsForBook(ctx, book.ID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%d\n", book.ID)
	fmt.Fprintf(w, "Title\t%s\n", book.Title)
	fmt.Fprintf(w, "Author\t%s\n", orElse(bookAuthor(book), "unknown"))
	if book.AuthorSort != "" {
		fmt.Fprintf(w, "Author Sort\t%s\n", book.AuthorSort)
	}
	fmt.Fprintf(w, "Language\t%s\n", orElse(book.Language, "?"))
	if book.Publisher != "" {
		fmt.Fprintf(w, "Publisher\t%s\n", book.Publisher)
	}
	if book.ISBN != "" {
		fmt.Fprintf(w, "ISBN\t%s\n", book.ISBN)
	}
	if book.Description != "" {
		fmt.Fprintf(w, "Description\t%s\n", book.Description)
	}
	if book.Series != "" {
		fmt.Fprintf(w, "Series\t%s\n", seriesDisplay(book.Series, book.SeriesIndex))
	}
	if len(tags) > 0 {
		names := make([]string, 0, len(tags))
		for _, tag := range tags {
			names = append(names, tag.Name)
		}
		fmt.Fprintf(w, "Tags\t%s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "Source\t%s\n", book.SourcePath)
	if book.OutputPath != "" {
		fmt.Fprintf(w, "Output\t%s\n", book.OutputPath)
	}
	fmt.Fprintf(w, "Hash\t%s\n", book.FileHash)
	fmt.Fprintf(w, "Added\t%s\n", book.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Modified\t%s\n", book.UpdatedAt.Format(time.RFC3339))
	return errors.WithStack(w.Flush())
}
