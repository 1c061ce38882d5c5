package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bookerybooks/bookery/pkg/scanner"
)

func inventoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "inventory",
		Usage:     "scan a directory tree and report ebook format coverage",
		ArgsUsage: "<directory>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Value: "epub",
				Usage: "target format to check for",
			},
		},
		Action: runInventory,
	}
}

func runInventory(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: bookery inventory <directory>", 1)
	}
	dir := c.Args().First()

	info, err := os.Stat(dir)
	if err != nil {
		return errors.WithStack(err)
	}
	if !info.IsDir() {
		return cli.Exit(dir+" is not a directory", 1)
	}

	ctx := runContext(c)

	result, err := scanner.Scan(ctx, dir)
	if err != nil {
		return err
	}

	target := strings.ToLower(c.String("format"))
	if !strings.HasPrefix(target, ".") {
		target = "." + target
	}
	label := strings.ToUpper(strings.TrimPrefix(target, "."))

	if result.TotalBooks() == 0 {
		fmt.Printf("0 book(s) scanned in %s\n", dir)
		return nil
	}

	fmt.Println("Format Summary")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Extension\tCount")
	exts := make([]string, 0, len(result.FormatCounts))
	for ext := range result.FormatCounts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(w, "%s\t%d\n", ext, result.FormatCounts[ext])
	}
	if err := w.Flush(); err != nil {
		return errors.WithStack(err)
	}

	missing := result.MissingFormat(target)
	fmt.Printf("\n%d book(s) scanned, %d missing %s.\n", result.TotalBooks(), len(missing), label)

	if len(missing) > 0 {
		fmt.Printf("\nBooks missing %s:\n", label)
		for _, book := range missing {
			fmt.Printf("  %s [%s]\n", book.Name(), strings.Join(book.FormatList(), ", "))
		}
	}
	return nil
}
