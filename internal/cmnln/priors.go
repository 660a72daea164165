// Package cmnln implements the causal-market-news-link-network engine:
// pairwise causal inference between events (spec.md §4.G), combining a
// domain-prior table, textual causal markers, and market-impact
// significance into a single confidence, plus chain discovery over the
// resulting CAUSES edges.
package cmnln

import "github.com/shugein/ceg/internal/models"

// Prior is one entry in the domain-prior table: the expected causal
// relationship between two event types.
type Prior struct {
	Sign        models.CausalSign
	ExpectedLag models.LagClass
	ConfPrior   float64
}

// priorKey pairs a cause type with an optional effect type. A key with
// an empty Effect matches any effect (a looser, lower-confidence prior);
// a fully-specified key is checked first.
type priorKey struct {
	Cause  models.EventType
	Effect models.EventType // "" matches any
}

// priorTable is the domain-prior lookup keyed by (cause type, effect
// type). It captures the hand-curated causal expectations a financial
// analyst would state about this closed event vocabulary.
var priorTable = map[priorKey]Prior{
	{Cause: models.EventTypeSanctions, Effect: models.EventTypeStockDrop}:       {Sign: models.SignNegative, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.8},
	{Cause: models.EventTypeSanctions, Effect: models.EventTypeRubDepreciation}: {Sign: models.SignNegative, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.75},
	{Cause: models.EventTypeSanctions, Effect: ""}:                             {Sign: models.SignNegative, ExpectedLag: models.LagClass0To3d, ConfPrior: 0.5},

	{Cause: models.EventTypeRateHike, Effect: models.EventTypeBankStockUp}:     {Sign: models.SignPositive, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.6},
	{Cause: models.EventTypeRateHike, Effect: models.EventTypeRubAppreciation}: {Sign: models.SignPositive, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.65},
	{Cause: models.EventTypeRateHike, Effect: models.EventTypeStockDrop}:       {Sign: models.SignNegative, ExpectedLag: models.LagClass0To3d, ConfPrior: 0.55},
	{Cause: models.EventTypeRateHike, Effect: ""}:                             {Sign: models.SignMixed, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.4},

	{Cause: models.EventTypeRateCut, Effect: models.EventTypeStockRally}:        {Sign: models.SignPositive, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.6},
	{Cause: models.EventTypeRateCut, Effect: models.EventTypeRubDepreciation}:   {Sign: models.SignNegative, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.55},
	{Cause: models.EventTypeRateCut, Effect: ""}:                               {Sign: models.SignMixed, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.4},

	{Cause: models.EventTypeEarningsBeat, Effect: models.EventTypeStockRally}: {Sign: models.SignPositive, ExpectedLag: models.LagClass0To1h, ConfPrior: 0.7},
	{Cause: models.EventTypeEarningsMiss, Effect: models.EventTypeStockDrop}:  {Sign: models.SignNegative, ExpectedLag: models.LagClass0To1h, ConfPrior: 0.7},
	{Cause: models.EventTypeGuidanceCut, Effect: models.EventTypeStockDrop}:   {Sign: models.SignNegative, ExpectedLag: models.LagClass1hTo1d, ConfPrior: 0.65},
	{Cause: models.EventTypeDividendCut, Effect: models.EventTypeStockDrop}:   {Sign: models.SignNegative, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.6},
	{Cause: models.EventTypeBuyback, Effect: models.EventTypeStockRally}:      {Sign: models.SignPositive, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.5},

	{Cause: models.EventTypeMergerAcquisition, Effect: models.EventTypeStockRally}: {Sign: models.SignPositive, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.65},
	{Cause: models.EventTypeDefault, Effect: models.EventTypeBondCrash}:            {Sign: models.SignNegative, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.8},
	{Cause: models.EventTypeDefault, Effect: models.EventTypeSectorDrop}:           {Sign: models.SignNegative, ExpectedLag: models.LagClass0To3d, ConfPrior: 0.6},

	{Cause: models.EventTypeRegulatory, Effect: models.EventTypeStockVolatility}:      {Sign: models.SignMixed, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.45},
	{Cause: models.EventTypeSupplyChain, Effect: models.EventTypeProductionDown}:      {Sign: models.SignNegative, ExpectedLag: models.LagClass1To7d, ConfPrior: 0.55},
	{Cause: models.EventTypeAccident, Effect: models.EventTypeProductionDown}:         {Sign: models.SignNegative, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.6},
	{Cause: models.EventTypeAccident, Effect: models.EventTypeStockDrop}:              {Sign: models.SignNegative, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.55},
	{Cause: models.EventTypeManagementChange, Effect: models.EventTypeStockVolatility}: {Sign: models.SignMixed, ExpectedLag: models.LagClass0To3d, ConfPrior: 0.4},
	{Cause: models.EventTypeIPO, Effect: models.EventTypeStockVolatility}:             {Sign: models.SignMixed, ExpectedLag: models.LagClass0To1d, ConfPrior: 0.4},
}

// LookupPrior returns the best-matching prior for (cause, effect),
// preferring an exact effect match and falling back to a cause-only
// entry. found is false when neither exists.
func LookupPrior(cause, effect models.EventType) (Prior, bool) {
	if p, ok := priorTable[priorKey{Cause: cause, Effect: effect}]; ok {
		return p, true
	}
	if p, ok := priorTable[priorKey{Cause: cause, Effect: ""}]; ok {
		return p, true
	}
	return Prior{}, false
}
