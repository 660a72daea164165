package importance

import "github.com/shugein/ceg/internal/models"

// rarityBonus supplements the novelty component with a fixed per-type
// bonus reflecting how infrequently each event type appears in the
// overall feed — a sanctions event is inherently more novel than a
// routine earnings report even on its very first occurrence for a
// ticker. Values are additive and capped by Novelty's own clamp.
var rarityBonus = map[models.EventType]float64{
	models.EventTypeSanctions:        0.25,
	models.EventTypeDefault:          0.25,
	models.EventTypeRateHike:         0.15,
	models.EventTypeRateCut:          0.15,
	models.EventTypeMergerAcquisition: 0.20,
	models.EventTypeBondCrash:        0.20,
	models.EventTypeAccident:         0.15,
	models.EventTypeManagementChange: 0.10,
	models.EventTypeIPO:              0.10,
	models.EventTypeEarnings:         0.0,
	models.EventTypeEarningsBeat:     0.05,
	models.EventTypeEarningsMiss:     0.05,
}

// RarityBonus returns the rarity bonus for an event type, 0 if unlisted.
func RarityBonus(et models.EventType) float64 {
	return rarityBonus[et]
}
