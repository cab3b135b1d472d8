package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText strips combining marks (Hebrew niqqud, Latin accents), lower-cases
// and collapses whitespace so vocabulary aliases match spelling variants.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(result)), " ")
}

// CanonicalTag is the form bonus tags are stored and compared in.
func CanonicalTag(tag string) string {
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(tag)), " ")
}
