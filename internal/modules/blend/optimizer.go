// Package blend finds the supplier split that minimizes the variance of the
// blended unit cost of two interchangeable sources.
//
// For a weight w the blended cost at period i is w*A[i] + (1-w)*B[i]; w is the
// share sourced from A. The optimizer evaluates the population variance of
// that series on an evenly spaced grid over [0, 1] and keeps the lowest one.
//
// NaN and Inf prices are not rejected. They propagate into NaN variances and
// the search then reports weight 0 with a NaN variance.
package blend

import (
	"github.com/aristath/blendopt/pkg/formulas"
	"gonum.org/v1/gonum/floats"
)

// DefaultSteps is the grid size used when callers have no preference (1% spacing).
const DefaultSteps = 101

// Result is the outcome of a grid search
type Result struct {
	Weight      float64 `json:"weight" msgpack:"weight"`             // Share from source A
	MinVariance float64 `json:"min_variance" msgpack:"min_variance"` // Population variance at Weight
}

// ShareA returns the share from source A as a percentage.
func (r Result) ShareA() float64 { return r.Weight * 100 }

// ShareB returns the share from source B as a percentage.
func (r Result) ShareB() float64 { return (1 - r.Weight) * 100 }

// Point is one evaluated grid position
type Point struct {
	Weight   float64 `json:"weight" msgpack:"weight"`
	Variance float64 `json:"variance" msgpack:"variance"`
}

// Optimizer holds two aligned price series. The series are read, never
// modified, so callers must not mutate them while the optimizer is in use.
type Optimizer struct {
	pricesA []float64
	pricesB []float64
}

// NewOptimizer validates the two series and returns an optimizer over them.
func NewOptimizer(pricesA, pricesB []float64) (*Optimizer, error) {
	if len(pricesA) == 0 || len(pricesB) == 0 {
		return nil, invalidInput("price series must not be empty (got %d and %d observations)", len(pricesA), len(pricesB))
	}
	if len(pricesA) != len(pricesB) {
		return nil, invalidInput("price series length mismatch: %d vs %d", len(pricesA), len(pricesB))
	}
	return &Optimizer{pricesA: pricesA, pricesB: pricesB}, nil
}

// Len returns the number of aligned periods.
func (o *Optimizer) Len() int { return len(o.pricesA) }

// BlendedSeries returns weight*A[i] + (1-weight)*B[i] for every period.
// Weights outside [0, 1] extrapolate linearly.
func (o *Optimizer) BlendedSeries(weight float64) []float64 {
	return formulas.LinearCombination(weight, o.pricesA, 1-weight, o.pricesB)
}

// Variance returns the population variance of the blended series.
func (o *Optimizer) Variance(weight float64) float64 {
	return formulas.PopulationVariance(o.BlendedSeries(weight))
}

// FindOptimalWeight evaluates steps weights evenly spaced over [0, 1] and
// returns the one with the lowest variance. Exact ties resolve to the lowest
// weight.
func (o *Optimizer) FindOptimalWeight(steps int) (Result, error) {
	grid, err := weightGrid(steps)
	if err != nil {
		return Result{}, err
	}

	variances := make([]float64, len(grid))
	for i, w := range grid {
		variances[i] = o.Variance(w)
	}
	return pickMinimum(grid, variances), nil
}

// Surface returns every evaluated grid point in ascending weight order.
func (o *Optimizer) Surface(steps int) ([]Point, error) {
	grid, err := weightGrid(steps)
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(grid))
	for i, w := range grid {
		points[i] = Point{Weight: w, Variance: o.Variance(w)}
	}
	return points, nil
}

func weightGrid(steps int) ([]float64, error) {
	if steps < 2 {
		return nil, invalidInput("steps must be at least 2, got %d", steps)
	}
	return formulas.Linspace(0, 1, steps), nil
}

// pickMinimum scans in grid order and keeps the first strict minimum.
func pickMinimum(grid, variances []float64) Result {
	idx := floats.MinIdx(variances)
	return Result{Weight: grid[idx], MinVariance: variances[idx]}
}
