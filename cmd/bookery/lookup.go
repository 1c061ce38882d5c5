package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "resolve an Open Library URL to book metadata",
		ArgsUsage: "<url>",
		Action:    runLookup,
	}
}

func runLookup(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: bookery lookup <url>", 1)
	}
	rawURL := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := runContext(c)

	candidate := newProvider(cfg).LookupByURL(ctx, rawURL)
	if candidate == nil {
		return cli.Exit("No match for "+rawURL, 1)
	}

	meta := candidate.Metadata
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
	fmt.Fprintf(w, "Source\t%s (%s)\n", candidate.Source, candidate.SourceID)
	return errors.WithStack(w.Flush())
}
