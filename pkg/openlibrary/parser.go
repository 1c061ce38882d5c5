package openlibrary

import (
	"strings"

	"github.com/bookerybooks/bookery/pkg/htmlutil"
	"github.com/bookerybooks/bookery/pkg/metadata"
)

const coversBaseURL = "https://covers.openlibrary.org/b/isbn"

// Identifier keys attached to candidate metadata.
const (
	identifierWork       = "openlibrary_work"
	identifierAuthorKeys = "openlibrary_author_keys"
	identifierCoverURL   = "cover_url"
)

// unknownName is the placeholder for titles and author names the API
// leaves blank.
const unknownName = "Unknown"

// metadataFromEdition maps an edition record (ISBN or edition endpoint)
// onto BookMetadata. Editions carry no description; that lives on the
// linked work.
func metadataFromEdition(edition *editionResponse) *metadata.BookMetadata {
	meta := &metadata.BookMetadata{
		Title:       edition.Title,
		Identifiers: map[string]string{},
	}
	if meta.Title == "" {
		meta.Title = unknownName
	}
	if len(edition.Publishers) > 0 {
		meta.Publisher = edition.Publishers[0]
	}
	// Prefer ISBN-13 over ISBN-10 when both are present.
	if len(edition.ISBN13) > 0 {
		meta.ISBN = edition.ISBN13[0]
	} else if len(edition.ISBN10) > 0 {
		meta.ISBN = edition.ISBN10[0]
	}
	if len(edition.Languages) > 0 {
		key := edition.Languages[0].Key
		if i := strings.LastIndex(key, "/"); i >= 0 {
			key = key[i+1:]
		}
		meta.Language = key
	}
	if len(edition.Works) > 0 && edition.Works[0].Key != "" {
		meta.Identifiers[identifierWork] = edition.Works[0].Key
	}
	return meta
}

// metadataFromWork maps a works record onto BookMetadata. Author keys are
// stashed in identifiers for the caller to resolve against the author
// endpoint.
func metadataFromWork(work *workResponse) *metadata.BookMetadata {
	meta := &metadata.BookMetadata{
		Title:       work.Title,
		Description: cleanDescription(work.Description.Value),
		Identifiers: map[string]string{},
	}
	if meta.Title == "" {
		meta.Title = unknownName
	}
	if work.Key != "" {
		meta.Identifiers[identifierWork] = work.Key
	}
	var keys []string
	for _, entry := range work.Authors {
		if entry.Author.Key != "" {
			keys = append(keys, entry.Author.Key)
		}
	}
	if len(keys) > 0 {
		meta.Identifiers[identifierAuthorKeys] = strings.Join(keys, ",")
	}
	return meta
}

// metadataFromSearch maps search docs onto BookMetadata values.
func metadataFromSearch(resp *searchResponse) []*metadata.BookMetadata {
	results := make([]*metadata.BookMetadata, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		meta := &metadata.BookMetadata{
			Title:       doc.Title,
			Authors:     doc.AuthorName,
			Identifiers: map[string]string{},
		}
		if meta.Title == "" {
			meta.Title = unknownName
		}
		if len(doc.ISBN) > 0 {
			meta.ISBN = doc.ISBN[0]
		}
		if len(doc.Language) > 0 {
			meta.Language = doc.Language[0]
		}
		if len(doc.Publisher) > 0 {
			meta.Publisher = doc.Publisher[0]
		}
		if doc.Key != "" {
			meta.Identifiers[identifierWork] = doc.Key
		}
		results = append(results, meta)
	}
	return results
}

// authorName extracts the display name from an author record.
func authorName(author *authorResponse) string {
	if author.Name == "" {
		return unknownName
	}
	return author.Name
}

// cleanDescription strips any HTML markup Open Library descriptions
// sometimes carry.
func cleanDescription(raw string) string {
	if raw == "" {
		return ""
	}
	return htmlutil.StripTags(raw)
}

// formatRank orders physical formats by preference for edition selection.
// Lower ranks win; unlisted formats rank alongside ebooks.
var formatRank = map[string]int{
	"hardcover":             0,
	"paperback":             1,
	"trade paperback":       1,
	"mass market paperback": 1,
	"electronic resource":   2,
	"ebook":                 2,
	"audio cd":              3,
	"audio cassette":        3,
}

const formatRankDefault = 2

// editionPick is the usable subset of a chosen edition.
type editionPick struct {
	isbn      string
	publisher string
}

// selectBestEdition picks the most desirable edition from a works
// editions listing. Editions without an ISBN are skipped, physical
// formats beat electronic ones, and ISBN-13 beats ISBN-10 as a tiebreak.
// Returns nil when no edition qualifies.
func selectBestEdition(entries []editionResponse) *editionPick {
	var best *editionPick
	bestRank, bestISBNRank := 0, 0

	for _, entry := range entries {
		isbn := ""
		isbnRank := 1
		if len(entry.ISBN13) > 0 {
			isbn = entry.ISBN13[0]
			isbnRank = 0
		} else if len(entry.ISBN10) > 0 {
			isbn = entry.ISBN10[0]
		}
		if isbn == "" {
			continue
		}

		rank, ok := formatRank[strings.ToLower(entry.PhysicalFormat)]
		if !ok {
			rank = formatRankDefault
		}

		if best == nil || rank < bestRank || (rank == bestRank && isbnRank < bestISBNRank) {
			pick := editionPick{isbn: isbn}
			if len(entry.Publishers) > 0 {
				pick.publisher = entry.Publishers[0]
			}
			best = &pick
			bestRank, bestISBNRank = rank, isbnRank
		}
	}
	return best
}

// BuildCoverURL returns the Open Library cover image URL for an ISBN.
// Size is "S", "M", or "L".
func BuildCoverURL(isbn, size string) string {
	return coversBaseURL + "/" + isbn + "-" + size + ".jpg"
}
