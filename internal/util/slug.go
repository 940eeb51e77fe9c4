// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any non-alphanumeric character.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// NormalizeSlug converts user input to a canonical slug. The slug is the
// source of truth for tag, ingredient, and community name identity, so
// "Brand New" and "brand-new" collide by design.
//
// Examples:
//
//	"Slow Cooker"   → "slow-cooker"
//	"slow_cooker"   → "slow-cooker"
//	"Crème Brûlée"  → "creme-brulee"
//	"  multi   word " → "multi-word"
func NormalizeSlug(input string) string {
	// Decompose accented characters, then drop the non-ASCII remainder.
	s := norm.NFKD.String(input)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	return s
}
