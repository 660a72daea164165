// Package linker resolves free-text company mentions to Instrument
// identifiers through four short-circuiting tiers (spec.md §4.D):
// direct ticker, alias lookup, live exchange search, fuzzy match.
package linker

import (
	"context"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/models"
)

// Tier identifies which resolution tier produced a Resolution.
type Tier string

const (
	TierDirectTicker Tier = "direct_ticker"
	TierAlias        Tier = "alias"
	TierExchange     Tier = "exchange"
	TierFuzzy        Tier = "fuzzy"
)

// Resolution is a successful mention-to-instrument mapping.
type Resolution struct {
	InstrumentID string
	Confidence   float64
	Tier         Tier
}

var directTickerPattern = regexp.MustCompile(`^[A-Z]{4}[A-Z0-9]*$`)

// SecurityIndex looks up instruments by exact ticker symbol, used by
// tier 1 (direct ticker).
type SecurityIndex interface {
	BySymbol(symbol string) (models.Instrument, bool)
}

// Linker resolves company mentions to instruments, learning new aliases
// from successful tier-3 and tier-4 resolutions.
type Linker struct {
	cfg      config.LinkerConfig
	index    SecurityIndex
	aliases  *AliasTable
	exchange ExchangeSearcher
	fuzzy    *FuzzyIndex

	exchangeCache *lru.Cache[string, []ExchangeCandidate]
	logger        *logging.Logger
}

// New builds a Linker. exchangeCacheSize bounds the live-search result
// cache; a size <= 0 falls back to 1000 entries.
func New(cfg config.LinkerConfig, index SecurityIndex, aliases *AliasTable, exchange ExchangeSearcher, fuzzy *FuzzyIndex, exchangeCacheSize int) (*Linker, error) {
	if exchangeCacheSize <= 0 {
		exchangeCacheSize = 1000
	}
	cache, err := lru.New[string, []ExchangeCandidate](exchangeCacheSize)
	if err != nil {
		return nil, err
	}
	return &Linker{
		cfg:           cfg,
		index:         index,
		aliases:       aliases,
		exchange:      exchange,
		fuzzy:         fuzzy,
		exchangeCache: cache,
		logger:        logging.GetLogger("linker"),
	}, nil
}

// Resolve runs the four tiers in order, short-circuiting on first
// success. Regulatory mentions must be filtered out by the caller before
// invoking Resolve (see IsRegulatory), since they are never companies.
func (l *Linker) Resolve(ctx context.Context, mention string, tickerHint string) (Resolution, error) {
	if tickerHint != "" && directTickerPattern.MatchString(tickerHint) {
		if inst, ok := l.index.BySymbol(tickerHint); ok {
			return Resolution{InstrumentID: inst.ID(), Confidence: 1.0, Tier: TierDirectTicker}, nil
		}
	}
	if directTickerPattern.MatchString(mention) {
		if inst, ok := l.index.BySymbol(mention); ok {
			return Resolution{InstrumentID: inst.ID(), Confidence: 1.0, Tier: TierDirectTicker}, nil
		}
	}

	normalized := Normalize(mention)

	if id, ok := l.aliases.Lookup(normalized); ok {
		return Resolution{InstrumentID: id, Confidence: 0.95, Tier: TierAlias}, nil
	}

	if l.exchange != nil {
		if res, ok, err := l.resolveViaExchange(ctx, normalized, mention); err != nil {
			return Resolution{}, err
		} else if ok {
			return res, nil
		}
	}

	if l.fuzzy != nil {
		if match, ok := l.fuzzy.Best(normalized); ok && match.Similarity >= l.cfg.FuzzyThreshold {
			id := match.Instrument.ID()
			if err := l.aliases.Learn(ctx, normalized, id); err != nil {
				l.logger.Warn("failed to learn fuzzy-matched alias for %q: %v", mention, err)
			}
			return Resolution{InstrumentID: id, Confidence: match.Similarity * 0.9, Tier: TierFuzzy}, nil
		}
	}

	return Resolution{}, &models.LinkerMissError{Mention: mention}
}

func (l *Linker) resolveViaExchange(ctx context.Context, normalized, mention string) (Resolution, bool, error) {
	candidates, ok := l.exchangeCache.Get(normalized)
	if !ok {
		var err error
		candidates, err = l.exchange.Search(ctx, mention)
		if err != nil {
			return Resolution{}, false, err
		}
		l.exchangeCache.Add(normalized, candidates)
	}

	best := ExchangeCandidate{}
	bestScore := -1.0
	for _, c := range candidates {
		score := scoreCandidate(normalized, c)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < l.cfg.ExchangeScoreAccept {
		return Resolution{}, false, nil
	}

	id := best.Instrument.ID()
	if err := l.aliases.Learn(ctx, normalized, id); err != nil {
		l.logger.Warn("failed to learn exchange-matched alias for %q: %v", mention, err)
	}
	return Resolution{InstrumentID: id, Confidence: 0.85, Tier: TierExchange}, true, nil
}
