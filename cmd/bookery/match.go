package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bookerybooks/bookery/pkg/config"
	"github.com/bookerybooks/bookery/pkg/epub"
	"github.com/bookerybooks/bookery/pkg/importer"
	"github.com/bookerybooks/bookery/pkg/metadata"
	"github.com/bookerybooks/bookery/pkg/pipeline"
	"github.com/bookerybooks/bookery/pkg/review"
	"github.com/bookerybooks/bookery/pkg/wordseg"
	"github.com/bookerybooks/bookery/pkg/worker"
)

func matchCommand() *cli.Command {
	return &cli.Command{
		Name:      "match",
		Usage:     "match EPUB metadata against Open Library and write corrected copies",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "directory for modified copies (default: ./bookery-output)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "auto-accept high-confidence matches without prompting",
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "minimum confidence for automatic acceptance",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "number of files processed concurrently in quiet mode",
			},
			&cli.BoolFlag{
				Name:  "embed-cover",
				Usage: "embed the candidate cover image when writing",
			},
		},
		Action: runMatch,
	}
}

func runMatch(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: bookery match <path>", 1)
	}
	path := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := runContext(c)

	quiet := c.Bool("quiet")
	workers := cfg.Match.Workers
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}
	if workers > 1 && !quiet {
		return cli.Exit("--workers above 1 requires --quiet: interactive review cannot share stdin", 1)
	}

	epubs, err := findEPUBs(path)
	if err != nil {
		return err
	}
	if len(epubs) == 0 {
		fmt.Println("No EPUB files found.")
		return nil
	}

	opts := matchOptions{
		OutputDir:  cfg.Output.Dir,
		Quiet:      quiet,
		Threshold:  cfg.Review.Threshold,
		EmbedCover: cfg.Match.EmbedCover,
		Total:      len(epubs),
	}
	if c.IsSet("output-dir") {
		opts.OutputDir = c.String("output-dir")
	}
	if c.IsSet("threshold") {
		opts.Threshold = c.Float64("threshold")
	}
	if c.IsSet("embed-cover") {
		opts.EmbedCover = c.Bool("embed-cover")
	}
	m := newMatcher(cfg, opts)

	if quiet && workers > 1 {
		pool := worker.Pool{Workers: workers}
		pool.Run(ctx, epubs, func(ctx context.Context, path string) {
			m.process(ctx, path) //nolint:errcheck // quiet sessions never error
		})
	} else {
		for _, epubPath := range epubs {
			if ctx.Err() != nil {
				break
			}
			if err := m.process(ctx, epubPath); err != nil {
				return err
			}
		}
	}

	fmt.Printf("\nDone: %s\n", m.summary())
	return nil
}

// findEPUBs returns the file itself, or every .epub under a directory
// tree in sorted order.
func findEPUBs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var epubs []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(p)) == ".epub" {
			epubs = append(epubs, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sort.Strings(epubs)
	return epubs, nil
}

type matchOptions struct {
	OutputDir  string
	Quiet      bool
	Threshold  float64
	EmbedCover bool
	Total      int
}

// matcher runs the full match flow for a batch of files: read, normalize,
// search, review, write. Counters are atomic so the quiet-mode pool can
// share one matcher across workers.
type matcher struct {
	format    *epub.Format
	provider  metadata.Provider
	normalize *metadata.Normalizer
	review    *review.Session
	pipeline  *pipeline.Pipeline
	outputDir string
	total     int

	index   atomic.Int64
	matched atomic.Int64
	skipped atomic.Int64
	errored atomic.Int64
}

// newMatcher wires the provider, normalizer, review session, and write
// pipeline for a batch of files.
func newMatcher(cfg *config.Config, opts matchOptions) *matcher {
	provider := newProvider(cfg)
	format := epub.New(epub.Options{EmbedCover: opts.EmbedCover})
	return &matcher{
		format:    format,
		provider:  provider,
		normalize: metadata.NewNormalizer(wordseg.New()),
		review: review.New(review.Options{
			Quiet:     opts.Quiet,
			Threshold: opts.Threshold,
			Lookup:    provider.LookupByURL,
		}),
		pipeline:  pipeline.New(format),
		outputDir: opts.OutputDir,
		total:     opts.Total,
	}
}

// process handles one file end to end and prints its outcome. The only
// error returned is a review session abort; per-file failures are counted
// and reported in the summary instead.
func (m *matcher) process(ctx context.Context, path string) error {
	i := m.index.Add(1)
	fmt.Printf("\n[%d/%d] Processing: %s\n", i, m.total, filepath.Base(path))

	extracted, err := m.format.ReadMetadata(path)
	if err != nil {
		fmt.Printf("  Error reading: %v\n", err)
		m.errored.Add(1)
		return nil
	}

	selected, err := m.choose(ctx, extracted)
	if err != nil {
		return err
	}
	if selected == nil {
		m.skipped.Add(1)
		return nil
	}

	dest, err := m.apply(ctx, path, selected)
	if err != nil {
		fmt.Printf("  Error writing: %v\n", err)
		m.errored.Add(1)
		return nil
	}
	fmt.Printf("  Written: %s\n", dest)
	m.matched.Add(1)
	return nil
}

// choose normalizes the extracted metadata, searches the provider, and
// runs the review session. Nil without error means nothing was selected.
func (m *matcher) choose(ctx context.Context, extracted *metadata.BookMetadata) (*metadata.BookMetadata, error) {
	result := m.normalize.Normalize(extracted)
	if result.WasModified {
		fmt.Printf("  Normalized title: %s\n", result.Normalized.Title)
		if result.Normalized.Author() != extracted.Author() {
			fmt.Printf("  Detected author: %s\n", result.Normalized.Author())
		}
	}
	searchMeta := result.Normalized

	// ISBN lookup first, then fall back to title/author search.
	var candidates []*metadata.Candidate
	if searchMeta.ISBN != "" {
		candidates = m.provider.SearchByISBN(ctx, searchMeta.ISBN)
	}
	if len(candidates) == 0 {
		candidates = m.provider.SearchByTitleAuthor(ctx, searchMeta.Title, searchMeta.Author())
	}
	if len(candidates) == 0 {
		fmt.Println("  No candidates found.")
		return nil, nil
	}

	return m.review.Review(ctx, extracted, candidates)
}

// apply writes selected into a copy of path under the output directory
// and returns the copy's path.
func (m *matcher) apply(ctx context.Context, path string, selected *metadata.BookMetadata) (string, error) {
	written, err := m.pipeline.Apply(ctx, path, selected, m.outputDir)
	if err != nil {
		return "", err
	}
	if !written.Success {
		return "", errors.New(written.Error)
	}
	return written.Path, nil
}

// matchFunc adapts the match flow to the importer's hook: the corrected
// metadata and the written copy's path feed the catalog entry. Nil keeps
// the extracted metadata.
func (m *matcher) matchFunc() importer.MatchFunc {
	return func(ctx context.Context, extracted *metadata.BookMetadata, path string) *importer.MatchOutcome {
		i := m.index.Add(1)
		fmt.Printf("\n[%d/%d] Processing: %s\n", i, m.total, filepath.Base(path))

		selected, err := m.choose(ctx, extracted)
		if err != nil {
			fmt.Printf("  Error: %v\n", err)
			m.errored.Add(1)
			return nil
		}
		if selected == nil {
			m.skipped.Add(1)
			return nil
		}

		dest, err := m.apply(ctx, path, selected)
		if err != nil {
			fmt.Printf("  Error writing: %v\n", err)
			m.errored.Add(1)
			return nil
		}
		fmt.Printf("  Written: %s\n", dest)
		m.matched.Add(1)
		return &importer.MatchOutcome{Metadata: selected, OutputPath: dest}
	}
}

// summary renders the non-zero counters: "3 matched, 1 skipped, 2 errors".
func (m *matcher) summary() string {
	var parts []string
	if n := m.matched.Load(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d matched", n))
	}
	if n := m.skipped.Load(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", n))
	}
	if n := m.errored.Load(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", n, errorLabel(int(n))))
	}
	return strings.Join(parts, ", ")
}
