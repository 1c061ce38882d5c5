package htmlutil

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// multipleSpacesPattern matches runs of consecutive whitespace characters.
var multipleSpacesPattern = regexp.MustCompile(`\s{2,}`)

// blockBreak lists elements whose closing tag marks a visual break worth
// preserving as a newline.
var blockBreak = map[atom.Atom]bool{
	atom.P:   true,
	atom.Div: true,
	atom.Li:  true,
	atom.H1:  true,
	atom.H2:  true,
	atom.H3:  true,
	atom.H4:  true,
	atom.H5:  true,
	atom.H6:  true,
}

// StripTags removes all HTML markup from a string, decodes entities, and
// normalizes whitespace. Block-level elements become newlines to preserve
// paragraph structure.
func StripTags(source string) string {
	if source == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(source))
	var b strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF, or malformed input we keep the prefix of.
			break
		}
		switch tt {
		case html.TextToken:
			b.Write(z.Text())
		case html.EndTagToken:
			name, _ := z.TagName()
			if blockBreak[atom.Lookup(name)] {
				b.WriteByte('\n')
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Br {
				b.WriteByte('\n')
			}
		}
	}

	// Non-breaking spaces read as regular spaces in plain text.
	text := strings.ReplaceAll(b.String(), " ", " ")

	lines := strings.Split(text, "\n")
	var nonEmpty []string
	for _, line := range lines {
		line = strings.TrimSpace(multipleSpacesPattern.ReplaceAllString(line, " "))
		if line != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
