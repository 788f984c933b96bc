package utils

import (
	"math"
)

// Logistic maps an unconstrained log-odds value to a probability in [0, 1].
func Logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	// same value, but exp(x) cannot overflow for large negative x
	e := math.Exp(x)
	return e / (1 + e)
}

// Logit is the inverse of Logistic. It returns -Inf at 0 and +Inf at 1.
func Logit(p float64) float64 {
	return math.Log(p) - math.Log1p(-p)
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AllFinite reports whether every value is finite.
func AllFinite(values ...float64) bool {
	for _, v := range values {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}

// Float64AlmostEqual compares two floats to within some epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
