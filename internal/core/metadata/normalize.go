// Package metadata derives structured penalty metadata (year, document
// type, location, car numbers) from decision documents and user queries.
// Everything here is a pure function of its input and the embedded
// location lexicon, so it is safe for concurrent use.
package metadata

import "strings"

var spaceReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\u202f", " ",
	"\u2007", " ",
)

// NormalizeText replaces non-breaking spaces, collapses whitespace runs to a
// single space and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(spaceReplacer.Replace(s)), " ")
}

// NormalizeQuery is NormalizeText plus lowercasing.
func NormalizeQuery(s string) string {
	return strings.ToLower(NormalizeText(s))
}
