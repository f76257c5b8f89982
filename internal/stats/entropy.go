package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ShannonEntropy calculates the Shannon entropy of a distribution
// values: frequency counts or probabilities
// Returns entropy in bits (log base 2)
func ShannonEntropy(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	// Normalize to probabilities
	sum := floats.Sum(values)
	if sum == 0 {
		return 0
	}

	var entropy float64
	for _, v := range values {
		if v > 0 {
			p := v / sum
			entropy -= p * math.Log2(p)
		}
	}

	return entropy
}

// NormalizedEntropy scales ShannonEntropy to [0, 1] by the entropy of a
// uniform distribution over len(values) outcomes.
func NormalizedEntropy(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	return ShannonEntropy(values) / math.Log2(float64(len(values)))
}

// GiniImpurity calculates 1 - sum(p^2) over the normalized distribution
func GiniImpurity(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := floats.Sum(values)
	if sum == 0 {
		return 0
	}

	var gini float64
	for _, v := range values {
		if v > 0 {
			p := v / sum
			gini += p * (1 - p)
		}
	}

	return gini
}

// AutoCorrelation returns the lag-k autocorrelation of a series, or 0 when
// the series is constant or shorter than k+2.
func AutoCorrelation(x []float64, lag int) float64 {
	n := len(x)
	if lag < 0 || n < lag+2 {
		return 0
	}
	mean := floats.Sum(x) / float64(n)

	var num, den float64
	for i := 0; i < n; i++ {
		d := x[i] - mean
		den += d * d
		if i+lag < n {
			num += d * (x[i+lag] - mean)
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}
