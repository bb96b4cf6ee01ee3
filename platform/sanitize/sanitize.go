// Package sanitize provides text clean-up helpers for inbound and generated text.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	lineBreakRegex  = regexp.MustCompile(`[\r\n]+`)
	multiSpaceRegex = regexp.MustCompile(`[ \t]{2,}`)
	codeFenceRegex  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\n?(.*?)\\n?```$")
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes user-provided text (profile names, inbound bodies) for storage.
func Text(s string) string {
	return StripHTML(s)
}

// SingleLine collapses every run of line breaks into one space.
func SingleLine(s string) string {
	collapsed := lineBreakRegex.ReplaceAllString(s, " ")
	return multiSpaceRegex.ReplaceAllString(collapsed, " ")
}

// GeneratedText trims model output: surrounding whitespace, a wrapping code fence
// and a single pair of wrapping quotes.
func GeneratedText(s string) string {
	result := strings.TrimSpace(s)
	if m := codeFenceRegex.FindStringSubmatch(result); m != nil {
		result = strings.TrimSpace(m[1])
	}
	if len(result) >= 2 {
		first, last := result[0], result[len(result)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			result = strings.TrimSpace(result[1 : len(result)-1])
		}
	}
	return result
}
