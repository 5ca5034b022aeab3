// Package search folds text so that matching ignores case and accents.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jdholdren/riffle/internal/riffle"
)

// Combining Diacritical Marks block.
var diacritics = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

// Normalize decomposes s, drops the combining marks and lowercases the rest.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// Transformers carry state, so a fresh chain per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(diacritics)), cases.Lower(language.Und))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Tokens builds the value stored in an item's search column.
func Tokens(item riffle.Item) string {
	return Normalize(strings.Join([]string{
		item.Title,
		item.Description,
		item.Author,
		strings.Join(item.Category, " "),
	}, " "))
}

// Query is a search query folded the same way as the tokens it is matched
// against.
type Query string

func NewQuery(s string) Query {
	return Query(Normalize(strings.TrimSpace(s)))
}

func (q Query) Blank() bool {
	return q == ""
}

// Match reports whether the query is contained in tokens. A blank query
// matches everything.
func (q Query) Match(tokens string) bool {
	return strings.Contains(tokens, string(q))
}
