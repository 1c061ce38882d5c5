package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bookerybooks/bookery/pkg/epub"
	"github.com/bookerybooks/bookery/pkg/importer"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "scan a directory and catalog its EPUB files in the library",
		ArgsUsage: "<directory>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "match",
				Usage: "run the match flow per file and catalog the corrected metadata",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "auto-accept high-confidence matches without prompting",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "directory for corrected copies when matching",
			},
		},
		Action: runImport,
	}
}

func runImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: bookery import <directory>", 1)
	}
	dir := c.Args().First()

	info, err := os.Stat(dir)
	if err != nil {
		return errors.WithStack(err)
	}
	if !info.IsDir() {
		return cli.Exit(dir+" is not a directory", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := runContext(c)

	epubs, err := findEPUBs(dir)
	if err != nil {
		return err
	}
	if len(epubs) == 0 {
		fmt.Printf("No EPUB files found in %s\n", dir)
		return nil
	}
	fmt.Printf("Found %d EPUB file(s)\n", len(epubs))

	cat, db, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var match importer.MatchFunc
	if c.Bool("match") {
		opts := matchOptions{
			OutputDir:  cfg.Output.Dir,
			Quiet:      c.Bool("quiet"),
			Threshold:  cfg.Review.Threshold,
			EmbedCover: cfg.Match.EmbedCover,
			Total:      len(epubs),
		}
		if c.IsSet("output-dir") {
			opts.OutputDir = c.String("output-dir")
		}
		match = newMatcher(cfg, opts).matchFunc()
	}

	imp := importer.New(cat, epub.New(epub.Options{}), match)
	result, err := imp.Import(ctx, epubs)
	if err != nil {
		return err
	}

	if len(result.ErrorDetails) > 0 {
		fmt.Printf("\n%d file(s) could not be imported:\n", len(result.ErrorDetails))
		for _, detail := range result.ErrorDetails {
			fmt.Printf("  %s: %s\n", filepath.Base(detail.Path), detail.Message)
		}
	}

	fmt.Printf("\nDone: %s\n", importSummary(result))
	return nil
}

// importSummary renders the non-zero counters: "2 added, 1 skipped, 1 error".
func importSummary(result *importer.ImportResult) string {
	var parts []string
	if result.Added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", result.Added))
	}
	if result.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", result.Skipped))
	}
	if result.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", result.Errors, errorLabel(result.Errors)))
	}
	return strings.Join(parts, ", ")
}
