package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes line endings to "\n" and drops NUL and other control characters
// except newline and tab. Paragraph and line structure is kept for the chunker.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, text)
}
