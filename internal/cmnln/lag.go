package cmnln

import (
	"math"
	"time"

	"github.com/shugein/ceg/internal/models"
)

// ClassifyLag buckets a cause->effect time delta into a LagClass. The
// boundaries are half-open on the low end, closed on the high end,
// matching models.LagClass's documented convention.
func ClassifyLag(delta time.Duration) models.LagClass {
	switch {
	case delta <= time.Hour:
		return models.LagClass0To1h
	case delta <= 24*time.Hour:
		return models.LagClass1hTo1d
	case delta <= 3*24*time.Hour:
		return models.LagClass0To3d
	case delta <= 7*24*time.Hour:
		return models.LagClass1To7d
	default:
		return models.LagClass1To4w
	}
}

// lagClassBounds returns the inclusive upper bound and, where defined, the
// exclusive lower bound of a LagClass, used to test whether an observed
// delta falls inside the class expected by a Prior.
func lagClassBounds(lc models.LagClass) (lo, hi time.Duration) {
	switch lc {
	case models.LagClass0To1h:
		return 0, time.Hour
	case models.LagClass1hTo1d:
		return time.Hour, 24 * time.Hour
	case models.LagClass0To1d:
		return 0, 24 * time.Hour
	case models.LagClass0To3d:
		return 0, 3 * 24 * time.Hour
	case models.LagClass1To7d:
		return 24 * time.Hour, 7 * 24 * time.Hour
	case models.LagClass1To4w:
		return 7 * 24 * time.Hour, 28 * 24 * time.Hour
	default:
		return 0, 0
	}
}

// WithinExpectedLag reports whether delta falls within the bounds of the
// prior's expected lag class. Used to apply the 0.5x prior penalty
// (spec.md §4.G.2) when an otherwise-matching cause/effect pair occurs
// far outside its normal timing.
func WithinExpectedLag(delta time.Duration, lc models.LagClass) bool {
	lo, hi := lagClassBounds(lc)
	if lo == 0 && hi == 0 {
		return true
	}
	return delta > lo && delta <= hi
}

// timeProximity returns a Gaussian-shaped weight in (0,1] peaking at 1 when
// delta is zero, with sigma half the lag class's upper bound (24h when the
// class has none). Evidence and chain-edge scoring do not call it; they
// call gaussian directly with their own sigma.
func timeProximity(delta time.Duration, lc models.LagClass) float64 {
	_, hi := lagClassBounds(lc)
	if hi == 0 {
		hi = 24 * time.Hour
	}
	sigma := float64(hi) / 2.0
	d := float64(delta)
	if d < 0 {
		d = -d
	}
	return gaussian(d, sigma)
}

func gaussian(x, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	z := x / sigma
	return math.Exp(-0.5 * z * z)
}
