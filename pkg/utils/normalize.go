package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameFolder strips combining marks after NFD decomposition, so that
// "Bāgpat" and "Bagpat" normalize identically. Devanagari text passes
// through mostly untouched apart from nukta/matras, which is what alias
// matching wants: exact vernacular spellings live in the alias tables.
// The chained transformer is stateful, so each call builds its own.
func nameFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeName canonicalizes a free-text market or commodity name for
// matching: trim, lowercase, fold diacritics, collapse interior whitespace
// and drop punctuation. Safe for concurrent use.
func NormalizeName(s string) string {
	folded, _, err := transform.String(nameFolder(), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			// drop punctuation
		}
	}
	return strings.TrimRight(b.String(), " ")
}
