// Package review drives candidate selection. Quiet mode accepts the top
// candidate when its confidence clears the threshold; interactive mode
// renders a candidate table on the terminal and reads the choice from
// the input stream.
package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/bookerybooks/bookery/pkg/metadata"
)

// DefaultThreshold is the minimum confidence for automatic acceptance.
const DefaultThreshold = 0.8

// LookupFunc resolves a provider record URL pasted by the user. Nil
// means the URL could not be resolved.
type LookupFunc func(ctx context.Context, rawURL string) *metadata.Candidate

// Options configures a Session.
type Options struct {
	// Out receives all rendered output. Defaults to os.Stdout.
	Out io.Writer
	// In supplies the user's choices. Defaults to os.Stdin.
	In io.Reader
	// Quiet picks the top candidate without prompting.
	Quiet bool
	// Threshold is the minimum confidence for automatic acceptance.
	// Zero means DefaultThreshold.
	Threshold float64
	// Lookup enables the [u] URL lookup option when set.
	Lookup LookupFunc
}

// Session presents metadata candidates and returns the user's choice.
type Session struct {
	out       io.Writer
	in        *bufio.Reader
	quiet     bool
	threshold float64
	lookup    LookupFunc
}

func New(opts Options) *Session {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	return &Session{
		out:       opts.Out,
		in:        bufio.NewReader(opts.In),
		quiet:     opts.Quiet,
		threshold: opts.Threshold,
		lookup:    opts.Lookup,
	}
}

// Review returns the metadata to adopt for the file, or nil when nothing
// was chosen. An empty candidate list is always nil. Quiet sessions
// defer to SelectAutomatic; interactive sessions render the candidates
// and loop on the prompt until the user accepts, skips, or keeps the
// original. Input stream errors and context cancellation abort the
// session.
func (s *Session) Review(ctx context.Context, extracted *metadata.BookMetadata, candidates []*metadata.Candidate) (*metadata.BookMetadata, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if s.quiet {
		return s.SelectAutomatic(candidates), nil
	}
	return s.reviewInteractive(ctx, extracted, candidates)
}

// SelectAutomatic picks without prompting: the first candidate's
// metadata when its confidence meets the threshold, nil otherwise.
// Candidates arrive sorted by confidence, so only the first is checked.
func (s *Session) SelectAutomatic(candidates []*metadata.Candidate) *metadata.BookMetadata {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	if best.Confidence >= s.threshold {
		return best.Metadata
	}
	return nil
}

func (s *Session) reviewInteractive(ctx context.Context, extracted *metadata.BookMetadata, candidates []*metadata.Candidate) (*metadata.BookMetadata, error) {
	fmt.Fprintf(s.out, "\nCurrent: %s\n", extracted.Title)
	if len(extracted.Authors) > 0 {
		fmt.Fprintf(s.out, "  Author: %s\n", extracted.Author())
	}
	fmt.Fprintln(s.out)
	s.printCandidates(candidates)

	prompt := "[1-N] Accept  [v1-vN] View details"
	if s.lookup != nil {
		prompt += "  [u] URL lookup"
	}
	prompt += "  [s] Skip  [k] Keep original"

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		choice, err := s.promptChoice(prompt, "s")
		if err != nil {
			return nil, err
		}

		lower := strings.ToLower(choice)
		switch {
		case lower == "s":
			return nil, nil
		case lower == "k":
			return extracted, nil
		case lower == "u" && s.lookup != nil:
			result, err := s.urlLookup(ctx, extracted)
			if err != nil || result != nil {
				return result, err
			}
		case strings.HasPrefix(lower, "v"):
			idx, convErr := strconv.Atoi(lower[1:])
			if convErr != nil || idx < 1 || idx > len(candidates) {
				continue
			}
			result, err := s.detailPrompt(extracted, candidates[idx-1])
			if err != nil || result != nil {
				return result, err
			}
		default:
			idx, convErr := strconv.Atoi(choice)
			if convErr == nil && idx >= 1 && idx <= len(candidates) {
				return candidates[idx-1].Metadata, nil
			}
		}
	}
}

func (s *Session) printCandidates(candidates []*metadata.Candidate) {
	fmt.Fprintln(s.out, "Candidates:")
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTitle\tAuthor\tISBN\tLanguage\tOL ID\tConfidence\tSource")
	for i, c := range candidates {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.0f%%\t%s\n",
			i+1,
			c.Metadata.Title,
			c.Metadata.Author(),
			orDash(c.Metadata.ISBN),
			orDash(c.Metadata.Language),
			strings.TrimPrefix(c.SourceID, "/works/"),
			c.Confidence*100,
			c.Source,
		)
	}
	tw.Flush()
}

// detailPrompt renders the side-by-side comparison and asks to accept or
// go back. Nil result with nil error means back to the list.
func (s *Session) detailPrompt(extracted *metadata.BookMetadata, candidate *metadata.Candidate) (*metadata.BookMetadata, error) {
	s.printDetail(extracted, candidate)

	choice, err := s.promptChoice("[a] Accept  [b] Back to list", "b")
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(choice, "a") {
		return candidate.Metadata, nil
	}
	return nil, nil
}

func (s *Session) printDetail(extracted *metadata.BookMetadata, candidate *metadata.Candidate) {
	proposed := candidate.Metadata
	rows := []struct {
		label    string
		current  string
		proposed string
	}{
		{"Title", extracted.Title, proposed.Title},
		{"Author", extracted.Author(), proposed.Author()},
		{"ISBN", extracted.ISBN, proposed.ISBN},
		{"Language", extracted.Language, proposed.Language},
		{"Publisher", extracted.Publisher, proposed.Publisher},
		{"Description", extracted.Description, proposed.Description},
	}

	fmt.Fprintln(s.out, "\nDetail Comparison:")
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Field\tCurrent → Candidate")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s → %s\n", row.label, orDash(row.current), orDash(row.proposed))
	}
	tw.Flush()
}

// urlLookup asks for a URL and resolves it through the lookup func. A
// nil candidate prints an error and sends the user back to the list; a
// hit flows into the same accept-or-back detail prompt.
func (s *Session) urlLookup(ctx context.Context, extracted *metadata.BookMetadata) (*metadata.BookMetadata, error) {
	fmt.Fprint(s.out, "Enter Open Library URL: ")
	rawURL, err := s.readLine()
	if err != nil {
		return nil, err
	}

	candidate := s.lookup(ctx, rawURL)
	if candidate == nil {
		fmt.Fprintln(s.out, "Could not fetch metadata from URL.")
		return nil, nil
	}
	return s.detailPrompt(extracted, candidate)
}

func (s *Session) promptChoice(label, fallback string) (string, error) {
	fmt.Fprintf(s.out, "%s [%s]: ", label, fallback)
	choice, err := s.readLine()
	if err != nil {
		return "", err
	}
	if choice == "" {
		choice = fallback
	}
	return choice, nil
}

// readLine tolerates a missing trailing newline on the last line but
// fails once the input is exhausted, so a closed stdin cannot spin the
// prompt loop.
func (s *Session) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	trimmed := strings.TrimSpace(line)
	if err != nil && trimmed == "" {
		return "", errors.WithStack(err)
	}
	return trimmed, nil
}

func orDash(value string) string {
	if value == "" {
		return "—"
	}
	return value
}
