package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bookerybooks/bookery/pkg/catalog"
	"github.com/bookerybooks/bookery/pkg/errcodes"
	"github.com/bookerybooks/bookery/pkg/models"
)

func lsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "list the books in the library catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "series",
				Usage: "filter by series name",
			},
			&cli.StringFlag{
				Name:  "tag",
				Usage: "filter by tag name",
			},
		},
		Action: runLs,
	}
}

func runLs(c *cli.Context) error {
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

	var books []*models.Book
	switch {
	case c.String("tag") != "":
		tag := c.String("tag")
		books, err = cat.BooksByTag(ctx, tag)
		if errcodes.IsKind(err, errcodes.KindNotFound) {
			return cli.Exit(fmt.Sprintf("Tag '%s' not found.", tag), 1)
		}
	case c.String("series") != "":
		series := c.String("series")
		books, err = cat.ListBooks(ctx, catalog.ListBooksOptions{Series: &series})
	default:
		books, err = cat.ListBooks(ctx, catalog.ListBooksOptions{})
	}
	if err != nil {
		return err
	}

	if len(books) == 0 {
		fmt.Println("No books in the library.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTitle\tAuthor\tSeries\tLang")
	for _, book := range books {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			book.ID,
			book.Title,
			orElse(bookAuthor(book), "unknown"),
			seriesDisplay(book.Series, book.SeriesIndex),
			orElse(book.Language, "?"),
		)
	}
	if err := w.Flush(); err != nil {
		return errors.WithStack(err)
	}

	fmt.Printf("\n%d book(s)\n", len(books))
	return nil
}

// bookAuthor renders the authors column. A row with a corrupt JSON column
// falls back to the raw value.
func bookAuthor(book *models.Book) string {
	authors, err := book.AuthorList()
	if err != nil {
		return book.Authors
	}
	return strings.Join(authors, ", ")
}
