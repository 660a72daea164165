package linker

import (
	"sort"
	"strings"

	"github.com/shugein/ceg/internal/models"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// FuzzyIndex holds the pool of known securities searched by tier 4
// (spec.md §4.D). It is rebuilt whenever the security universe changes;
// lookups are O(n) over the indexed set, which is acceptable at the
// security-universe scale this pipeline targets (thousands, not millions).
type FuzzyIndex struct {
	entries []fuzzyEntry
}

type fuzzyEntry struct {
	normalizedShort string
	normalizedLong  string
	instrument      models.Instrument
}

// NewFuzzyIndex builds an index over instruments.
func NewFuzzyIndex(instruments []models.Instrument) *FuzzyIndex {
	entries := make([]fuzzyEntry, 0, len(instruments))
	for _, inst := range instruments {
		entries = append(entries, fuzzyEntry{
			normalizedShort: tokenSort(Normalize(inst.ShortName)),
			normalizedLong:  tokenSort(Normalize(inst.LongName)),
			instrument:      inst,
		})
	}
	return &FuzzyIndex{entries: entries}
}

// FuzzyMatch is the best fuzzy candidate found for a mention.
type FuzzyMatch struct {
	Instrument models.Instrument
	Similarity float64
}

// Best returns the best-scoring instrument for normalizedMention using
// token-sorted Levenshtein similarity against both short and long names,
// or ok=false if the index is empty.
func (idx *FuzzyIndex) Best(normalizedMention string) (FuzzyMatch, bool) {
	if len(idx.entries) == 0 {
		return FuzzyMatch{}, false
	}

	sortedMention := tokenSort(normalizedMention)

	best := FuzzyMatch{}
	found := false
	for _, e := range idx.entries {
		simShort := similarity(sortedMention, e.normalizedShort)
		simLong := similarity(sortedMention, e.normalizedLong)
		sim := simShort
		if simLong > sim {
			sim = simLong
		}
		if !found || sim > best.Similarity {
			best = FuzzyMatch{Instrument: e.instrument, Similarity: sim}
			found = true
		}
	}
	return best, found
}

// tokenSort sorts a normalized string's whitespace-separated tokens
// alphabetically, so "bank sber" and "sber bank" compare as equal-ish
// strings under edit distance ("token-sort ratio" per spec.md §4.D).
func tokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// similarity is a normalized edit-distance similarity in [0,1]: 1.0 is
// identical, 0.0 is completely different.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	ra, rb := []rune(a), []rune(b)
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	return 1.0 - float64(distance)/float64(longer)
}
