package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search the library catalog by title, author, or description",
		ArgsUsage: "<query>",
		Action:    runSearch,
	}
}

func runSearch(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: bookery search <query>", 1)
	}
	query := c.Args().First()

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

	books, err := cat.Search(ctx, query)
	if err != nil {
		return err
	}

	if len(books) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTitle\tAuthor\tLang")
	for _, book := range books {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			book.ID,
			book.Title,
			orElse(bookAuthor(book), "unknown"),
			orElse(book.Language, "?"),
		)
	}
	if err := w.Flush(); err != nil {
		return errors.WithStack(err)
	}

	fmt.Printf("\n%d result(s)\n", len(books))
	return nil
}
