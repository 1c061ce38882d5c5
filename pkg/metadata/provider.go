package metadata

import "context"

// Provider is the contract for external metadata catalogs (Open Library,
// Google Books, and so on).
//
// Implementations never surface transport failures: a failed or cancelled
// request degrades to an empty result and is logged by the
// implementation, so callers only ever branch on "candidates or not".
type Provider interface {
	// Name identifies the provider in logs and review output.
	Name() string

	// SearchByISBN looks up a specific edition by ISBN. Returns at most
	// one candidate, with full confidence.
	SearchByISBN(ctx context.Context, isbn string) []*Candidate

	// SearchByTitleAuthor runs a relevance search. author may be empty.
	// Candidates come back sorted by confidence, highest first.
	SearchByTitleAuthor(ctx context.Context, title, author string) []*Candidate

	// LookupByURL resolves a provider-specific record URL pasted by the
	// user. Nil when the URL is not recognized or the record could not
	// be fetched.
	LookupByURL(ctx context.Context, url string) *Candidate
}
