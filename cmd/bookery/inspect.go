package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bookerybooks/bookery/pkg/epub"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "show metadata extracted from an EPUB file",
		ArgsUsage: "<file.epub>",
		Action:    runInspect,
	}
}

func runInspect(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: bookery inspect <file.epub>", 1)
	}
	path := c.Args().First()

	meta, err := epub.New(epub.Options{}).ReadMetadata(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	cover := "no"
	if meta.HasCover() {
		cover = "yes"
	}

	fmt.Println(filepath.Base(path))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Title\t%s\n", meta.Title)
	fmt.Fprintf(w, "Author\t%s\n", orElse(meta.Author(), "unknown"))
	fmt.Fprintf(w, "Language\t%s\n", orElse(meta.Language, "unknown"))
	fmt.Fprintf(w, "Publisher\t%s\n", orElse(meta.Publisher, "unknown"))
	fmt.Fprintf(w, "ISBN\t%s\n", orElse(meta.ISBN, "none"))
	fmt.Fprintf(w, "Description\t%s\n", orElse(meta.Description, "none"))
	fmt.Fprintf(w, "Series\t%s\n", orElse(meta.Series, "none"))
	if meta.SeriesIndex != nil {
		fmt.Fprintf(w, "Series Index\t%g\n", *meta.SeriesIndex)
	}
	fmt.Fprintf(w, "Cover\t%s\n", cover)
	if len(meta.Identifiers) > 0 {
		fmt.Fprintf(w, "Identifiers\t%s\n", identifierList(meta.Identifiers))
	}
	return errors.WithStack(w.Flush())
}
