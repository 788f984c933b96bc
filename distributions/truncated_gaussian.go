package distributions

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/posetracking/utils"
)

// TruncatedGaussian is a univariate normal distribution restricted to [low, high] and
// renormalized over that interval.
type TruncatedGaussian struct {
	mean  float64
	sigma float64
	low   float64
	high  float64

	// probability of the standardized bounds, below (cdf) and above (survival)
	cdfLow, cdfHigh           float64
	survivalLow, survivalHigh float64
}

// NewTruncatedGaussian returns an untruncated standard normal.
func NewTruncatedGaussian() *TruncatedGaussian {
	tg := &TruncatedGaussian{}
	//nolint:errcheck
	tg.SetParameters(0, 1, math.Inf(-1), math.Inf(1))
	return tg
}

// SetParameters sets mean, standard deviation and bounds of the underlying normal.
func (tg *TruncatedGaussian) SetParameters(mean, sigma, low, high float64) error {
	if !utils.IsFinite(mean) || !utils.IsFinite(sigma) {
		return utils.NewNumericDivergenceError("truncated gaussian mean %v sigma %v", mean, sigma)
	}
	if sigma < 0 {
		return utils.NewInvalidArgumentError("truncated gaussian sigma must not be negative, got %v", sigma)
	}
	if math.IsNaN(low) || math.IsNaN(high) || low > high {
		return utils.NewInvalidArgumentError("invalid truncation interval [%v, %v]", low, high)
	}
	tg.mean, tg.sigma, tg.low, tg.high = mean, sigma, low, high
	if sigma > 0 {
		a, b := (low-mean)/sigma, (high-mean)/sigma
		tg.cdfLow, tg.cdfHigh = distuv.UnitNormal.CDF(a), distuv.UnitNormal.CDF(b)
		tg.survivalLow, tg.survivalHigh = distuv.UnitNormal.Survival(a), distuv.UnitNormal.Survival(b)
	}
	return nil
}

// Mean returns the mean of the underlying untruncated normal.
func (tg *TruncatedGaussian) Mean() float64 {
	return tg.mean
}

// Sigma returns the standard deviation of the underlying untruncated normal.
func (tg *TruncatedGaussian) Sigma() float64 {
	return tg.sigma
}

// Bounds returns the truncation interval.
func (tg *TruncatedGaussian) Bounds() (float64, float64) {
	return tg.low, tg.high
}

// MapStandardNormal maps a standard normal variate z to a sample of the truncated distribution by
// matching tail probabilities. The map is non-decreasing in z and the result always lies in
// [low, high] unless z is NaN.
func (tg *TruncatedGaussian) MapStandardNormal(z float64) float64 {
	return math.Min(math.Max(tg.mapVariate(z), tg.low), tg.high)
}

// MapStandardNormalInterior is MapStandardNormal restricted to the open interval (low, high): a
// sample that would land on a bound is moved to the nearest float inside it.
func (tg *TruncatedGaussian) MapStandardNormalInterior(z float64) float64 {
	low, high := math.Nextafter(tg.low, tg.high), math.Nextafter(tg.high, tg.low)
	return math.Min(math.Max(tg.mapVariate(z), low), high)
}

// mapVariate inverts the truncated cdf. Negative z go through the lower tail and positive z
// through the upper tail so that neither saturates at +-1 for large |z|.
func (tg *TruncatedGaussian) mapVariate(z float64) float64 {
	if tg.sigma == 0 {
		return tg.mean
	}
	lowerMass := tg.cdfHigh - tg.cdfLow
	upperMass := tg.survivalLow - tg.survivalHigh
	lower, upper := lowerMass > 0, upperMass > 0

	var y float64
	switch {
	case upper && (z > 0 || !lower):
		q := tg.survivalHigh + distuv.UnitNormal.Survival(z)*upperMass
		y = -distuv.UnitNormal.Quantile(math.Min(math.Max(q, tg.survivalHigh), tg.survivalLow))
	case lower:
		p := tg.cdfLow + distuv.UnitNormal.CDF(z)*lowerMass
		y = distuv.UnitNormal.Quantile(math.Min(math.Max(p, tg.cdfLow), tg.cdfHigh))
	default:
		// all the mass is so far in a tail that neither cdf can resolve it
		return tg.mean
	}
	return tg.mean + tg.sigma*y
}
