package openlibrary

import (
	"github.com/segmentio/encoding/json"
)

// Open Library API response types. Fields cover only what the mapping
// layer consumes; the API returns far more.

// keyRef is the {"key": "/works/OL45883W"} shape Open Library uses for
// cross-record references.
type keyRef struct {
	Key string `json:"key"`
}

// editionResponse is the shape of /isbn/{isbn}.json and
// /books/{key}.json, and of each entry in an editions listing.
type editionResponse struct {
	Title          string   `json:"title"`
	Publishers     []string `json:"publishers"`
	ISBN13         []string `json:"isbn_13"`
	ISBN10         []string `json:"isbn_10"`
	Languages      []keyRef `json:"languages"`
	Works          []keyRef `json:"works"`
	Authors        []keyRef `json:"authors"`
	PhysicalFormat string   `json:"physical_format"`
}

// editionsResponse is the shape of /works/{key}/editions.json.
type editionsResponse struct {
	Entries []editionResponse `json:"entries"`
}

// workResponse is the shape of /works/{key}.json.
type workResponse struct {
	Key         string          `json:"key"`
	Title       string          `json:"title"`
	Description workDescription `json:"description"`
	Authors     []workAuthor    `json:"authors"`
}

// workAuthor wraps the nested author reference works responses carry:
// [{"author": {"key": "/authors/OL123A"}, "type": ...}].
type workAuthor struct {
	Author keyRef `json:"author"`
}

// workDescription handles the works endpoint quirk where description is
// either a plain string or {"type": ..., "value": "text"}.
type workDescription struct {
	Value string
}

func (d *workDescription) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		d.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Unexpected shapes are treated as no description.
		d.Value = ""
		return nil
	}
	d.Value = obj.Value
	return nil
}

// authorResponse is the shape of /authors/{key}.json.
type authorResponse struct {
	Name string `json:"name"`
}

// searchResponse is the shape of /search.json.
type searchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []searchDoc `json:"docs"`
}

// searchDoc is a single search result. Unlike the edition endpoints,
// search docs carry flat string lists for authors and languages.
type searchDoc struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	ISBN       []string `json:"isbn"`
	Language   []string `json:"language"`
	Publisher  []string `json:"publisher"`
}
