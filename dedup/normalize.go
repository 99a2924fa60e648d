package dedup

import "strings"

// NormalizeText lowercases and trims surrounding whitespace. Both sides of
// every comparison in this package go through it, so all matching is
// case-insensitive. Deliberately minimal: no Unicode folding, no punctuation
// stripping.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
