package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SnippetContext is the number of runes kept on each side of a match.
const SnippetContext = 20

// Ellipsis marks context cut from a snippet.
const Ellipsis = "..."

// Project prepares text for matching: NFC-normalized, with every run of
// whitespace collapsed to a single space.
func Project(s string) []rune {
	s = norm.NFC.String(s)
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				out = append(out, ' ')
			}
			space = true
			continue
		}
		space = false
		out = append(out, r)
	}
	return out
}

// fold lowercases rune by rune so indices stay aligned with the input.
func fold(text []rune) []rune {
	out := make([]rune, len(text))
	for i, r := range text {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// Snippet returns the match at [i, i+q) of text with up to SnippetContext
// runes on either side, trimmed, with Ellipsis where context was cut.
func Snippet(text []rune, i, q int) string {
	start := max(0, i-SnippetContext)
	end := min(len(text), i+q+SnippetContext)
	s := strings.TrimSpace(string(text[start:end]))
	if i > SnippetContext {
		s = Ellipsis + s
	}
	if i+q+SnippetContext < len(text) {
		s += Ellipsis
	}
	return s
}
