package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold normalizes text for substring comparison: NFKC (full-width and
// compatibility forms collapse), Unicode case folding, trimmed.
// Script conversion between Chinese variants is NOT done here; that is the
// transliteration service's job and happens before Fold.
// A Caser is stateful, so one is built per call.
func Fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(s)))
}

// SearchableText is the text of an attraction a local text filter matches against.
func SearchableText(a Attraction) string {
	parts := make([]string, 0, 6+len(a.Tags))
	for _, p := range []string{a.Title, a.Description, a.Category, a.Address, a.City, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, a.Tags...)
	return strings.Join(parts, "\n")
}
