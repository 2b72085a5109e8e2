package game

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold reduces s to a comparison key: surrounding and repeated whitespace
// collapsed, accents stripped, case folded. "  Crème  Brûlée" and
// "creme brulee" fold to the same key.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(strings.Join(strings.Fields(stripped), " "))
}

// matches compares a guess against the active prompt.
func matches(guess, prompt string, lenient bool) bool {
	if lenient {
		return Fold(guess) == Fold(prompt)
	}
	return strings.TrimSpace(guess) == prompt
}
