// Package testutil provides shared test infrastructure for drawdown-sim.
// It holds float assertions and series builders used across sim/ and its
// sub-package tests.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// ConstantSeries returns n copies of v.
func ConstantSeries(v float64, n int) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = v
	}
	return series
}

// SP500Sample is a short series of historical-looking annual returns used
// where a test needs dispersion rather than specific values.
var SP500Sample = []float64{
	0.2168, -0.0910, -0.1189, -0.2210, 0.2638, 0.0899, 0.0300, 0.1362,
	0.2106, -0.0910, 0.1140, 0.2958, -0.3849, 0.2345, 0.1278, 0.0000,
	0.1340, 0.2961, 0.1139, -0.0623, 0.2888, 0.1626, 0.2689, 0.2429,
}
