package lexical

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it into letter/digit runs. The same
// normalisation is applied to passage text and to queries so postings and
// query terms share one term space. Unicode letters are kept, so Hebrew
// text tokenizes the same way Latin text does.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
