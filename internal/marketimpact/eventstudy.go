// Package marketimpact implements the Market-Impact (Event Study)
// component (spec.md §4.H): given an event time and an instrument, it
// fetches OHLCV bars around the event from a marketdata.Provider and
// computes abnormal return, volume spike, and statistical significance
// against the primary market index. The mean/standard-deviation arithmetic
// follows the statistics-helper style used elsewhere in this codebase's
// lineage for return-series computations (Mean/StdDev/CalculateReturns).
package marketimpact

import (
	"context"
	"math"
	"time"

	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/marketdata"
	"github.com/shugein/ceg/internal/models"
	"gonum.org/v1/gonum/stat"
)

// PrimaryIndexSymbol is the benchmark used for the market model. A real
// deployment would key this off the instrument's Market field; a single
// constant is sufficient for the one exchange this pipeline targets.
const PrimaryIndexSymbol = "IMOEX"

// Result is the outcome of one event-study computation (spec.md §4.H).
// A nil *Result (returned alongside a MarketDataMissingError) means the
// caller should treat the market-impact components as null/zero and still
// save the event.
type Result struct {
	AbnormalReturn float64           `json:"ar"`
	VolumeSpike    float64           `json:"volume_spike"`
	IsSignificant  bool              `json:"is_significant"`
	SentimentSign  models.CausalSign `json:"sentiment_sign"`
}

// Study computes the event-study result for instrument sym at event time t.
type Study struct {
	provider marketdata.Provider
	cfg      config.EventStudyConfig
	logger   *logging.Logger
}

// New builds a Study backed by provider.
func New(provider marketdata.Provider, cfg config.EventStudyConfig) *Study {
	return &Study{provider: provider, cfg: cfg, logger: logging.GetLogger("marketimpact")}
}

// Evaluate computes AR, volume spike, and significance for sym around
// event time t, per spec.md §4.H. Returns a MarketDataMissingError when
// either the instrument or the index benchmark has no bars in the window;
// the caller must not create an ImpactEdge in that case.
func (s *Study) Evaluate(ctx context.Context, sym string, t time.Time) (*Result, error) {
	from := t.AddDate(0, 0, -s.cfg.PreDays)
	to := t.AddDate(0, 0, s.cfg.PostDays)

	sec, err := s.provider.OHLCV(ctx, sym, from, to, marketdata.GranularityDaily)
	if err != nil {
		return nil, err
	}
	if len(sec.Bars) == 0 {
		return nil, &models.MarketDataMissingError{Symbol: sym}
	}

	idx, err := s.provider.IndexReturn(ctx, PrimaryIndexSymbol, from, to, marketdata.GranularityDaily)
	if err != nil {
		return nil, err
	}
	if len(idx.Bars) == 0 {
		return nil, &models.MarketDataMissingError{Symbol: PrimaryIndexSymbol}
	}

	eventBar, ok := sec.BarAtOrBefore(t)
	if !ok {
		return nil, &models.MarketDataMissingError{Symbol: sym}
	}
	indexBar, ok := idx.BarAtOrBefore(t)
	if !ok {
		return nil, &models.MarketDataMissingError{Symbol: PrimaryIndexSymbol}
	}

	secReturn := dayReturn(sec, eventBar.Timestamp)
	indexReturnAtT := dayReturn(idx, indexBar.Timestamp)
	ar := secReturn - indexReturnAtT

	preReturns := returnsBefore(sec, eventBar.Timestamp)
	sigma := 0.0
	if len(preReturns) > 1 {
		sigma = stat.StdDev(preReturns, nil)
	}

	significance := 0.0
	if sigma > 0 {
		significance = math.Abs(ar) / sigma
	}

	volumeSpike := volumeRatio(sec, eventBar.Timestamp)

	sign := models.SignMixed
	switch {
	case ar > 0:
		sign = models.SignPositive
	case ar < 0:
		sign = models.SignNegative
	}

	result := &Result{
		AbnormalReturn: ar,
		VolumeSpike:    volumeSpike,
		IsSignificant:  significance >= s.cfg.SignificanceZ,
		SentimentSign:  sign,
	}
	s.logger.Debug("event study for %s at %s: ar=%.4f volume_spike=%.2f significant=%v",
		sym, t.Format(time.RFC3339), result.AbnormalReturn, result.VolumeSpike, result.IsSignificant)
	return result, nil
}

// dayReturn is the close-to-close return of the bar at ts relative to the
// immediately preceding bar in series, or 0 if there is no prior bar.
func dayReturn(series marketdata.Series, ts time.Time) float64 {
	for i, b := range series.Bars {
		if b.Timestamp.Equal(ts) {
			if i == 0 || series.Bars[i-1].Close == 0 {
				return 0
			}
			return (b.Close - series.Bars[i-1].Close) / series.Bars[i-1].Close
		}
	}
	return 0
}

// returnsBefore returns the close-to-close return series strictly before
// ts, used as the pre-event estimation window for sigma.
func returnsBefore(series marketdata.Series, ts time.Time) []float64 {
	var pre []Bar
	for _, b := range series.Bars {
		if b.Timestamp.Before(ts) {
			pre = append(pre, b)
		}
	}
	return (marketdata.Series{Symbol: series.Symbol, Bars: pre}).Returns()
}

// Bar re-exports marketdata.Bar's shape for the helper above without an
// import cycle; kept as a type alias for readability at call sites.
type Bar = marketdata.Bar

// volumeRatio is vol(t) / mean(vol(t-5...t-1)), per spec.md §4.H.
func volumeRatio(series marketdata.Series, ts time.Time) float64 {
	var eventVol float64
	var priorVols []float64
	for _, b := range series.Bars {
		if b.Timestamp.Equal(ts) {
			eventVol = b.Volume
		} else if b.Timestamp.Before(ts) {
			priorVols = append(priorVols, b.Volume)
		}
	}
	if len(priorVols) == 0 {
		return 0
	}
	// Use at most the last 5 trading days before the event.
	if len(priorVols) > 5 {
		priorVols = priorVols[len(priorVols)-5:]
	}
	mean := stat.Mean(priorVols, nil)
	if mean == 0 {
		return 0
	}
	return eventVol / mean
}
