package formulas

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PopulationVariance calculates the mean squared deviation from the mean
// (divisor N). Two-pass, so the result is never negative and a series of
// identical values yields exactly 0.
func PopulationVariance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	mean := stat.Mean(data, nil)
	var ss float64
	for _, v := range data {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(data))
}

// Linspace returns n evenly spaced values over [start, stop], both endpoints
// included. n must be at least 2.
func Linspace(start, stop float64, n int) []float64 {
	grid := floats.Span(make([]float64, n), start, stop)
	// Pin the endpoint, step*(n-1) can round past stop
	grid[n-1] = stop
	return grid
}

// LinearCombination returns alpha*x + beta*y element-wise. x and y must have
// the same length.
func LinearCombination(alpha float64, x []float64, beta float64, y []float64) []float64 {
	dst := make([]float64, len(y))
	floats.ScaleTo(dst, beta, y)
	floats.AddScaled(dst, alpha, x)
	return dst
}
