// Package openlibrary implements the metadata.Provider contract against
// the openlibrary.org API.
package openlibrary

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/gorilla/schema"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"

	"github.com/bookerybooks/bookery/pkg/errcodes"
	"github.com/bookerybooks/bookery/pkg/httpclient"
	"github.com/bookerybooks/bookery/pkg/metadata"
)

const (
	defaultBaseURL = "https://openlibrary.org"

	// defaultSearchLimit caps how many docs a title/author search requests.
	defaultSearchLimit = 5
	// defaultEnrichLimit caps how many top candidates get follow-up
	// requests for descriptions and edition data.
	defaultEnrichLimit = 3
)

var (
	isbnCleanRe = regexp.MustCompile(`[\s-]`)
	worksPathRe = regexp.MustCompile(`^(/works/OL\w+)`)
	// subtitleRe matches a colon-separated subtitle at the end of a title.
	subtitleRe = regexp.MustCompile(`\s*:\s+.+$`)
)

var queryEncoder = schema.NewEncoder()

// searchQuery is the /search.json parameter set.
type searchQuery struct {
	Title  string `schema:"title"`
	Author string `schema:"author,omitempty"`
	Limit  int    `schema:"limit"`
}

// Provider looks up book metadata on openlibrary.org. It satisfies
// metadata.Provider: transport and decode failures degrade to empty
// results and are logged, never returned.
type Provider struct {
	http        httpclient.Getter
	baseURL     string
	searchLimit int
	enrichLimit int
}

// Options tunes a Provider. Zero values fall back to the defaults.
type Options struct {
	BaseURL     string
	SearchLimit int
	EnrichLimit int
}

// New builds a Provider against the public Open Library API.
func New(client httpclient.Getter) *Provider {
	return NewWithOptions(client, Options{})
}

// NewWithBaseURL builds a Provider against a custom base URL (for tests).
func NewWithBaseURL(client httpclient.Getter, baseURL string) *Provider {
	return NewWithOptions(client, Options{BaseURL: baseURL})
}

// NewWithOptions builds a Provider with explicit limits.
func NewWithOptions(client httpclient.Getter, opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaultSearchLimit
	}
	if opts.EnrichLimit <= 0 {
		opts.EnrichLimit = defaultEnrichLimit
	}
	return &Provider{
		http:        client,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		searchLimit: opts.SearchLimit,
		enrichLimit: opts.EnrichLimit,
	}
}

// Name identifies this provider in logs and review output.
func (p *Provider) Name() string {
	return "openlibrary"
}

// SearchByISBN looks up an edition by ISBN and enriches it from the works
// and author endpoints. Returns a single full-confidence candidate, or
// nothing when the lookup fails.
func (p *Provider) SearchByISBN(ctx context.Context, isbn string) []*metadata.Candidate {
	log := logger.FromContext(ctx)

	clean := isbnCleanRe.ReplaceAllString(isbn, "")
	var edition editionResponse
	if err := p.fetchJSON(ctx, "/isbn/"+clean+".json", nil, &edition); err != nil {
		log.Err(err).Warn("isbn lookup failed", logger.Data{"isbn": isbn})
		return nil
	}

	meta := metadataFromEdition(&edition)
	p.fillWorkDescription(ctx, meta, &edition)
	p.fillAuthors(ctx, meta, &edition)
	fillCoverURL(meta)

	sourceID := meta.Identifiers[identifierWork]
	if sourceID == "" {
		sourceID = "isbn:" + isbn
	}
	// An ISBN identifies a specific edition, so confidence is fixed.
	return []*metadata.Candidate{{
		Metadata:   meta,
		Confidence: 1.0,
		Source:     p.Name(),
		SourceID:   sourceID,
	}}
}

// SearchByTitleAuthor searches Open Library by title and optional author.
// When the initial query returns nothing and the title carries a
// subtitle, the search runs once more with the subtitle stripped.
// Candidates come back sorted by confidence, highest first.
func (p *Provider) SearchByTitleAuthor(ctx context.Context, title, author string) []*metadata.Candidate {
	candidates := p.search(ctx, title, author)
	if len(candidates) == 0 {
		if stripped := stripSubtitle(title); stripped != "" {
			candidates = p.search(ctx, stripped, author)
		}
	}
	return candidates
}

// stripSubtitle removes ": subtitle" text from a title. Returns "" when
// stripping changes nothing or would leave an empty title.
func stripSubtitle(title string) string {
	stripped := strings.TrimSpace(subtitleRe.ReplaceAllString(title, ""))
	if stripped != "" && stripped != strings.TrimSpace(title) {
		return stripped
	}
	return ""
}

// search runs a single query against /search.json, scoring each doc
// against the query terms and enriching the top results.
func (p *Provider) search(ctx context.Context, title, author string) []*metadata.Candidate {
	log := logger.FromContext(ctx)

	params := url.Values{}
	query := searchQuery{Title: title, Author: author, Limit: p.searchLimit}
	if err := queryEncoder.Encode(&query, params); err != nil {
		log.Err(errors.WithStack(err)).Error("encoding search query")
		return nil
	}

	var resp searchResponse
	if err := p.fetchJSON(ctx, "/search.json", params, &resp); err != nil {
		log.Err(err).Warn("search failed", logger.Data{"title": title, "author": author})
		return nil
	}

	metas := metadataFromSearch(&resp)
	if len(metas) == 0 {
		return nil
	}

	// Reference metadata assembled from the query terms, scored against
	// each result.
	ref := &metadata.BookMetadata{Title: title}
	if author != "" {
		ref.Authors = []string{author}
	}

	candidates := make([]*metadata.Candidate, 0, len(metas))
	for _, meta := range metas {
		fillCoverURL(meta)
		sourceID := meta.Identifiers[identifierWork]
		if sourceID == "" {
			sourceID = "unknown"
		}
		candidates = append(candidates, &metadata.Candidate{
			Metadata:   meta,
			Confidence: metadata.Score(ref, meta),
			Source:     p.Name(),
			SourceID:   sourceID,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	candidates = p.enrichDescriptions(ctx, candidates)
	candidates = p.enrichEditions(ctx, candidates)
	return candidates
}

// LookupByURL resolves an Open Library works or edition URL pasted by
// the user. Nil when the URL is not an Open Library works URL or any
// fetch fails.
func (p *Provider) LookupByURL(ctx context.Context, rawURL string) *metadata.Candidate {
	log := logger.FromContext(ctx)

	worksKey, editionKey, ok := parseWorksURL(rawURL)
	if !ok {
		return nil
	}

	var (
		candidate *metadata.Candidate
		err       error
	)
	if editionKey != "" {
		candidate, err = p.lookupEdition(ctx, worksKey, editionKey)
	} else {
		candidate, err = p.lookupWork(ctx, worksKey)
	}
	if err != nil {
		log.Err(err).Warn("url lookup failed", logger.Data{"url": rawURL})
		return nil
	}
	return candidate
}

// parseWorksURL extracts the works key and optional edition key from an
// Open Library URL. Accepts /works/OL123W and /works/OL123W/Title_Slug
// paths plus an optional edition=key:/books/OL456M query parameter.
func parseWorksURL(rawURL string) (worksKey, editionKey string, ok bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() != "openlibrary.org" {
		return "", "", false
	}
	m := worksPathRe.FindStringSubmatch(parsed.Path)
	if m == nil {
		return "", "", false
	}
	worksKey = m[1]

	if raw := parsed.Query().Get("edition"); strings.HasPrefix(raw, "key:") {
		editionKey = strings.TrimPrefix(raw, "key:")
	}
	return worksKey, editionKey, true
}

// lookupEdition fetches full metadata from the edition, works, and
// author endpoints.
func (p *Provider) lookupEdition(ctx context.Context, worksKey, editionKey string) (*metadata.Candidate, error) {
	var edition editionResponse
	if err := p.fetchJSON(ctx, editionKey+".json", nil, &edition); err != nil {
		return nil, err
	}

	meta := metadataFromEdition(&edition)
	p.fillWorkDescription(ctx, meta, &edition)
	p.fillAuthors(ctx, meta, &edition)
	fillCoverURL(meta)

	sourceID := meta.Identifiers[identifierWork]
	if sourceID == "" {
		sourceID = worksKey
	}
	return &metadata.Candidate{
		Metadata:   meta,
		Confidence: 1.0,
		Source:     p.Name(),
		SourceID:   sourceID,
	}, nil
}

// lookupWork fetches metadata from the works endpoint only, resolving
// author references to names.
func (p *Provider) lookupWork(ctx context.Context, worksKey string) (*metadata.Candidate, error) {
	var work workResponse
	if err := p.fetchJSON(ctx, worksKey+".json", nil, &work); err != nil {
		return nil, err
	}

	meta := metadataFromWork(&work)
	if keys := meta.Identifiers[identifierAuthorKeys]; keys != "" {
		delete(meta.Identifiers, identifierAuthorKeys)
		var authors []string
		for _, authorKey := range strings.Split(keys, ",") {
			var author authorResponse
			if err := p.fetchJSON(ctx, authorKey+".json", nil, &author); err != nil {
				continue
			}
			authors = append(authors, authorName(&author))
		}
		if len(authors) > 0 {
			meta.Authors = authors
		}
	}

	return &metadata.Candidate{
		Metadata:   meta,
		Confidence: 1.0,
		Source:     p.Name(),
		SourceID:   worksKey,
	}, nil
}

// enrichDescriptions fills in missing descriptions from the works
// endpoint for the top candidates. Enriched entries are fresh values;
// the input candidates are never mutated.
func (p *Provider) enrichDescriptions(ctx context.Context, candidates []*metadata.Candidate) []*metadata.Candidate {
	out := make([]*metadata.Candidate, len(candidates))
	copy(out, candidates)

	for i, candidate := range candidates {
		if i >= p.enrichLimit {
			break
		}
		if candidate.Metadata.Description != "" {
			continue
		}
		workKey := candidate.Metadata.Identifiers[identifierWork]
		if workKey == "" {
			continue
		}

		var work workResponse
		if err := p.fetchJSON(ctx, workKey+".json", nil, &work); err != nil {
			continue
		}
		desc := cleanDescription(work.Description.Value)
		if desc == "" {
			continue
		}

		meta := candidate.Metadata.Clone()
		meta.Description = desc
		out[i] = &metadata.Candidate{
			Metadata:   meta,
			Confidence: candidate.Confidence,
			Source:     candidate.Source,
			SourceID:   candidate.SourceID,
		}
	}
	return out
}

// enrichEditions fills in missing ISBNs and publishers from the best
// edition of each top candidate's work. Enriched entries are fresh
// values; the input candidates are never mutated.
func (p *Provider) enrichEditions(ctx context.Context, candidates []*metadata.Candidate) []*metadata.Candidate {
	out := make([]*metadata.Candidate, len(candidates))
	copy(out, candidates)

	for i, candidate := range candidates {
		if i >= p.enrichLimit {
			break
		}
		if candidate.Metadata.ISBN != "" && candidate.Metadata.Publisher != "" {
			continue
		}
		workKey := candidate.Metadata.Identifiers[identifierWork]
		if workKey == "" {
			continue
		}

		var editions editionsResponse
		if err := p.fetchJSON(ctx, workKey+"/editions.json", nil, &editions); err != nil {
			continue
		}
		best := selectBestEdition(editions.Entries)
		if best == nil {
			continue
		}

		meta := candidate.Metadata.Clone()
		if meta.ISBN == "" && best.isbn != "" {
			meta.ISBN = best.isbn
		}
		if meta.Publisher == "" && best.publisher != "" {
			meta.Publisher = best.publisher
		}
		fillCoverURL(meta)
		out[i] = &metadata.Candidate{
			Metadata:   meta,
			Confidence: candidate.Confidence,
			Source:     candidate.Source,
			SourceID:   candidate.SourceID,
		}
	}
	return out
}

// fillWorkDescription fetches the edition's linked work and copies in
// its description. Best effort.
func (p *Provider) fillWorkDescription(ctx context.Context, meta *metadata.BookMetadata, edition *editionResponse) {
	if len(edition.Works) == 0 || edition.Works[0].Key == "" {
		return
	}
	var work workResponse
	if err := p.fetchJSON(ctx, edition.Works[0].Key+".json", nil, &work); err != nil {
		return
	}
	if desc := cleanDescription(work.Description.Value); desc != "" {
		meta.Description = desc
	}
}

// fillAuthors resolves the edition's author references to names. Failed
// author fetches are skipped.
func (p *Provider) fillAuthors(ctx context.Context, meta *metadata.BookMetadata, edition *editionResponse) {
	if len(edition.Authors) == 0 {
		return
	}
	var authors []string
	for _, ref := range edition.Authors {
		if ref.Key == "" {
			continue
		}
		var author authorResponse
		if err := p.fetchJSON(ctx, ref.Key+".json", nil, &author); err != nil {
			continue
		}
		authors = append(authors, authorName(&author))
	}
	if len(authors) > 0 {
		meta.Authors = authors
	}
}

// fillCoverURL derives the cover image URL once an ISBN is known.
func fillCoverURL(meta *metadata.BookMetadata) {
	if meta.ISBN == "" || meta.Identifiers == nil {
		return
	}
	if _, ok := meta.Identifiers[identifierCoverURL]; ok {
		return
	}
	meta.Identifiers[identifierCoverURL] = BuildCoverURL(meta.ISBN, "L")
}

// fetchJSON GETs a path under the API base and decodes the JSON body.
func (p *Provider) fetchJSON(ctx context.Context, path string, params url.Values, v interface{}) error {
	body, err := p.http.Get(ctx, p.baseURL+path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.WithStack(errcodes.Formatf("decoding response from %s: %v", path, err))
	}
	return nil
}
