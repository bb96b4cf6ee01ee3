package music

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxStyleLength bounds the style prompt sent to the music provider.
	MaxStyleLength = 120
	// MaxTitleLength bounds the track title in runes.
	MaxTitleLength = 30

	defaultTitle = "Canción personalizada"
)

// TrimStyle flattens a style description to one line of comma-separated terms
// no longer than maxLen bytes, cutting at the last comma that fits.
func TrimStyle(style string, maxLen int) string {
	style = strings.Join(strings.Fields(style), " ")
	style = strings.Trim(style, "\"'` .")
	if len(style) <= maxLen {
		return style
	}

	cut := style[:maxLen]
	if i := strings.LastIndex(cut, ","); i > 0 {
		return strings.TrimSpace(cut[:i])
	}

	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(cut)
}

// Title derives a track title from the song's purpose.
func Title(purpose string) string {
	title := strings.Join(strings.Fields(purpose), " ")
	if title == "" {
		return defaultTitle
	}
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:MaxTitleLength]))
}
