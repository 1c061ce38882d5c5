package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bookerybooks/bookery/pkg/catalog"
	"github.com/bookerybooks/bookery/pkg/errcodes"
)

func tagCommand() *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "manage book tags",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "add a tag to a book",
				ArgsUsage: "<id> <tag>",
				Action:    runTagAdd,
			},
			{
				Name:      "rm",
				Usage:     "remove a tag from a book",
				ArgsUsage: "<id> <tag>",
				Action:    runTagRm,
			},
			{
				Name:   "ls",
				Usage:  "list all tags with book counts",
				Action: runTagLs,
			},
		},
	}
}

func runTagAdd(c *cli.Context) error {
	bookID, name, err := tagArgs(c, "add")
	if err != nil {
		return err
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

	if _, err := cat.AddTag(ctx, bookID, name); err != nil {
		if errcodes.IsKind(err, errcodes.KindValidation) {
			return cli.Exit(err.Error(), 1)
		}
		return err
	}

	fmt.Printf("Tagged %s with %s.\n", book.Title, name)
	return nil
}

func runTagRm(c *cli.Context) error {
	bookID, name, err := tagArgs(c, "rm")
	if err != nil {
		return err
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

	if err := cat.RemoveTag(ctx, bookID, name); err != nil {
		if errcodes.IsKind(err, errcodes.KindNotFound) {
			return cli.Exit(err.Error(), 1)
		}
		return err
	}

	fmt.Printf("Removed tag %s from book %d.\n", name, bookID)
	return nil
}

func runTagLs(c *cli.Context) error {
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

	tags, err := cat.ListTags(ctx)
	if err != nil {
		return err
	}

	if len(tags) == 0 {
		fmt.Println("No tags in the library.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Tag\tBooks")
	for _, tag := range tags {
		fmt.Fprintf(w, "%s\t%d\n", tag.Name, tag.BookCount)
	}
	return errors.WithStack(w.Flush())
}

// tagArgs parses the shared "<id> <tag>" argument pair.
func tagArgs(c *cli.Context, sub string) (int, string, error) {
	if c.NArg() != 2 {
		return 0, "", cli.Exit(fmt.Sprintf("usage: bookery tag %s <id> <tag>", sub), 1)
	}
	bookID, err := strconv.Atoi(c.Args().Get(0))
	if err != nil {
		return 0, "", cli.Exit(fmt.Sprintf("usage: bookery tag %s <id> <tag>", sub), 1)
	}
	return bookID, c.Args().Get(1), nil
}
