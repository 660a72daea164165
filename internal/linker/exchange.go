package linker

import (
	"context"

	"github.com/shugein/ceg/internal/models"
)

// ExchangeCandidate is one result from a live exchange security search.
type ExchangeCandidate struct {
	Instrument models.Instrument
}

// ExchangeSearcher queries an exchange's security-search endpoint for
// candidates matching a free-text company mention (spec.md §4.D tier 3).
// Concrete implementations (MOEX, etc.) are external collaborators; this
// package only defines the contract and the scoring it drives.
type ExchangeSearcher interface {
	Search(ctx context.Context, query string) ([]ExchangeCandidate, error)
}

// allowedBoards lists primary boards considered liquid enough to trust a
// search hit without further corroboration.
var allowedBoards = map[string]bool{
	"TQBR": true, "TQTF": true, "TQCB": true,
}

// scoreCandidate scores an ExchangeCandidate against the normalized
// mention per spec.md §4.D tier 3: substring containment in short/long
// name (+50/+30), is-traded (+20), is-equity (+15), primary-board in the
// allow-list (+10), ISIN present (+25).
func scoreCandidate(normalizedMention string, c ExchangeCandidate) float64 {
	score := 0.0
	inst := c.Instrument

	if containsNormalized(inst.ShortName, normalizedMention) {
		score += 50
	}
	if containsNormalized(inst.LongName, normalizedMention) {
		score += 30
	}
	if inst.Traded {
		score += 20
	}
	if inst.SecurityType == models.SecurityTypeEquity {
		score += 15
	}
	if allowedBoards[inst.PrimaryBoard] {
		score += 10
	}
	if inst.ISIN != "" {
		score += 25
	}
	return score
}

func containsNormalized(name, normalizedMention string) bool {
	if name == "" || normalizedMention == "" {
		return false
	}
	n := Normalize(name)
	return len(n) > 0 && (contains(n, normalizedMention) || contains(normalizedMention, n))
}

func contains(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// ExchangeScoreAcceptDefault is the minimum score to accept a top
// candidate, per spec.md §4.D ("Choose top score ≥ 50").
const ExchangeScoreAcceptDefault = 50.0
