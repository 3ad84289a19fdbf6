// Package utils provides shared helpers for text, vector math and logging.
package utils

import "strings"

// Truncate shortens s to at most maxLen runes and marks the cut with "...".
// maxLen <= 0 disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// OneLine collapses every run of whitespace, newlines included, into a single space.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
