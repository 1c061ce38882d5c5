package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bookerybooks/bookery/pkg/models"
	"github.com/bookerybooks/bookery/pkg/verifier"
)

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "verify library integrity: missing files and changed hashes",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check-hash",
				Usage: "re-hash source files and compare against stored hashes",
			},
		},
		Action: runVerify,
	}
}

func runVerify(c *cli.Context) error {
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

	result, err := verifier.VerifyLibrary(ctx, cat, c.Bool("check-hash"))
	if err != nil {
		return err
	}

	if result.TotalIssues() == 0 {
		fmt.Printf("All %d book(s) verified.\n", result.OK)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTitle\tIssue")
	writeIssueRows(w, result.MissingSource, "Missing source")
	writeIssueRows(w, result.MissingOutput, "Missing output")
	writeIssueRows(w, result.HashMismatch, "Hash mismatch")
	if err := w.Flush(); err != nil {
		return errors.WithStack(err)
	}

	fmt.Printf("\n%d issue(s) found, %d book(s) verified.\n", result.TotalIssues(), result.OK)
	return cli.Exit("", 1)
}

func writeIssueRows(w *tabwriter.Writer, books []*models.Book, issue string) {
	for _, book := range books {
		fmt.Fprintf(w, "%d\t%s\t%s\n", book.ID, book.Title, issue)
	}
}
