package catalog

import "strings"

const maxQueryLength = 100

// SanitizeFTSQuery turns raw user input into a literal FTS5 phrase. FTS5
// treats AND/OR/NOT, *, NEAR(), : and " as query syntax even inside bound
// parameters, so the input is quote-escaped and wrapped as one phrase.
func SanitizeFTSQuery(input string) string {
	input = strings.TrimSpace(input)
	if len(input) > maxQueryLength {
		input = input[:maxQueryLength]
	}
	if input == "" {
		return ""
	}

	input = strings.ReplaceAll(input, `"`, `""`)
	return `"` + input + `"`
}

// BuildPrefixQuery sanitizes the input and appends the prefix wildcard, so
// "temp" matches "Templar". The wildcard sits outside the quotes:
// "user query"*.
func BuildPrefixQuery(userInput string) string {
	sanitized := SanitizeFTSQuery(userInput)
	if sanitized == "" {
		return ""
	}
	return sanitized + "*"
}
