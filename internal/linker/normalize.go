package linker

import (
	"strings"
	"unicode"
)

// stopWords are legal-form suffixes stripped during normalisation so
// "Sberbank PAO" and "sberbank" normalise to the same key.
var stopWords = map[string]bool{
	"pao": true, "ao": true, "oao": true, "zao": true, "ooo": true,
	"llc": true, "ltd": true, "inc": true, "corp": true, "co": true,
	"group": true, "holding": true, "holdings": true, "plc": true,
}

// Normalize lowercases, strips quotes/punctuation, removes legal-form
// stop-words, and collapses whitespace, per spec.md §4.D.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
