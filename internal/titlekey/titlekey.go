// Package titlekey derives lookup keys for game titles and platforms so that
// offline indexes, caches, and live providers agree on what "the same game"
// means.
package titlekey

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	editionPattern = regexp.MustCompile(`\b(goty|game of the year|definitive|complete|remastered|hd|ultimate|deluxe|director s cut|directors cut|enhanced|collection|bundle)\b`)
	trailingYear   = regexp.MustCompile(`\b(19|20)\d{2}$`)
	multiSpace     = regexp.MustCompile(`\s+`)

	symbolStripper  = strings.NewReplacer("™", "", "®", "", "©", "")
	punctuationToSp = strings.NewReplacer(
		":", " ", ";", " ", ",", " ", ".", " ", "—", " ", "–", " ",
		"_", " ", "/", " ", "(", " ", ")", " ", "|", " ", "\"", " ", "'", " ", "`", " ",
		"’", " ", "‘", " ",
	)
	lower = cases.Lower(language.Und)
)

// Normalize folds a display title into a comparison key: diacritics removed,
// lowercased, trademark symbols and punctuation dropped, edition suffixes and
// a trailing release year stripped, whitespace collapsed.
func Normalize(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	working := foldDiacritics(title)
	working = lower.String(working)
	working = symbolStripper.Replace(working)
	working = punctuationToSp.Replace(working)
	working = multiSpace.ReplaceAllString(working, " ")
	working = editionPattern.ReplaceAllString(working, " ")
	working = strings.TrimSpace(multiSpace.ReplaceAllString(working, " "))
	working = strings.TrimSpace(trailingYear.ReplaceAllString(working, ""))
	return multiSpace.ReplaceAllString(working, " ")
}

func foldDiacritics(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}
