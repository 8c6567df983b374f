package index

import (
	"fmt"
	"math"
	"sort"
)

// DefaultTolerance is the accepted distance of a weight set's sum from 1.0.
const DefaultTolerance = 1e-6

// Weights maps factor names to their relative importance in one composite.
// Weights must be non-negative and sum to 1.0 within a tolerance.
type Weights map[Factor]float64

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	var sum float64
	for _, f := range w.Factors() {
		sum += w[f]
	}
	return sum
}

// Factors returns the weighted factor names in sorted order.
func (w Weights) Factors() []Factor {
	out := make([]Factor, 0, len(w))
	for f := range w {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Scale returns a copy of w with every weight multiplied by c.
func (w Weights) Scale(c float64) Weights {
	out := make(Weights, len(w))
	for f, v := range w {
		out[f] = v * c
	}
	return out
}

// Validate checks that no weight is negative or non-finite and that the
// weights sum to 1.0 within tolerance. A non-positive tolerance selects
// DefaultTolerance.
func (w Weights) Validate(tolerance float64) error {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	for _, f := range w.Factors() {
		v := w[f]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &Error{Op: "validate weights", Kind: ErrNonFiniteValue, Factor: f}
		}
		if v < 0 {
			return &Error{Op: "validate weights", Kind: ErrNegativeWeight, Factor: f, Detail: fmt.Sprintf("%f", v)}
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > tolerance {
		return &Error{
			Op:     "validate weights",
			Kind:   ErrWeightSumInvariant,
			Detail: fmt.Sprintf("weights sum to %.6f, must sum to 1.0", sum),
		}
	}
	return nil
}
