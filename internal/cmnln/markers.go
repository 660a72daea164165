package cmnln

import "strings"

// marker is one textual causal-marker pattern with its confidence weight.
// Weights fall in [0.5, 0.9] per spec.md §4.G.3, highest for unambiguous
// phrasing ("caused by") and lowest for loose temporal juxtaposition
// ("after", "amid").
type marker struct {
	phrase string
	weight float64
}

// causalMarkers covers English and Russian phrasing, the two languages the
// Extraction Client's `language` field distinguishes (internal/extraction's
// report_extraction tool schema).
var causalMarkers = map[string][]marker{
	"en": {
		{"caused by", 0.9},
		{"triggered by", 0.85},
		{"in response to", 0.8},
		{"following", 0.6},
		{"after", 0.55},
		{"due to", 0.85},
		{"as a result of", 0.85},
		{"sparked", 0.75},
		{"fueled by", 0.7},
		{"amid", 0.55},
		{"prompted by", 0.75},
	},
	"ru": {
		{"из-за", 0.85},
		{"в результате", 0.85},
		{"вследствие", 0.85},
		{"на фоне", 0.6},
		{"после", 0.55},
		{"вызван", 0.9},
		{"спровоцирован", 0.8},
		{"в ответ на", 0.8},
	},
}

// MatchMarkers lowercases text and scans it for the language's
// causal-marker list, returning the maximum
// matched weight, or 0 if none match. Unknown languages fall back to the
// English list, since the Extraction Client defaults to "en" when
// uncertain.
func MatchMarkers(language, text string) float64 {
	list, ok := causalMarkers[language]
	if !ok {
		list = causalMarkers["en"]
	}
	lower := strings.ToLower(text)
	var best float64
	for _, m := range list {
		if strings.Contains(lower, m.phrase) && m.weight > best {
			best = m.weight
		}
	}
	return best
}
