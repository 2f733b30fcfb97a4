package sim

import (
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// DecileLabels is the fixed label order of a DecileTable.
var DecileLabels = [...]string{"10th", "20th", "30th", "40th", "50th (Median)", "60th", "70th", "80th", "90th"}

// Decile is one row of a DecileTable.
type Decile struct {
	Label string
	Value float64 // currency amount rounded to cents
}

// DecileTable holds the 10th..90th percentiles of an ending-value distribution,
// one row per DecileLabels entry, in that order.
type DecileTable []Decile

// SummaryStatistics reduces the final cumulative factors of a run.
type SummaryStatistics struct {
	AverageCumulativeReturnFactor  float64
	AverageAnnualizedReturnPercent float64 // NaN when Degenerate
	Degenerate                     bool    // annualized return has no real value
	DepletionProbability           float64 // share of simulations ending at or below zero
}

// Percentile returns the p-th percentile (0..100) of data, which must be sorted
// ascending and non-empty, interpolating linearly between the two nearest ranks.
func Percentile(data []float64, p float64) float64 {
	n := len(data)

	rank := p / 100.0 * float64(n-1)
	lowerIdx := int(math.Floor(rank))
	upperIdx := int(math.Ceil(rank))

	if upperIdx >= n {
		return data[n-1]
	}
	if lowerIdx == upperIdx {
		return data[lowerIdx]
	}
	lowerVal := data[lowerIdx]
	upperVal := data[upperIdx]
	if lowerVal == upperVal {
		return lowerVal
	}
	return lowerVal + (upperVal-lowerVal)*(rank-float64(lowerIdx))
}

// ComputeDeciles returns the decile breakpoints of values rounded to cents.
// values is not modified. A non-finite decile fails with ErrComputationDegenerate.
func ComputeDeciles(values []float64) (DecileTable, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no ending values to aggregate", ErrInvalidInput)
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	table := make(DecileTable, len(DecileLabels))
	for i, label := range DecileLabels {
		v := RoundCents(Percentile(sorted, float64(10*(i+1))))
		if !isFinite(v) {
			return nil, fmt.Errorf("%w: %s decile is %v", ErrComputationDegenerate, label, v)
		}
		table[i] = Decile{Label: label, Value: v}
	}
	return table, nil
}

// ComputeSummary averages the final cumulative factors and derives the
// approximate annualized return over numYears.
//
// When the average factor is negative and numYears > 1 the fractional root
// is undefined over the reals: the returned statistics have Degenerate set,
// AverageAnnualizedReturnPercent is NaN, and the error wraps
// ErrComputationDegenerate. The remaining fields are still valid.
//
// When the average itself overflows float64 only DepletionProbability is usable.
func ComputeSummary(factors []float64, numYears int) (SummaryStatistics, error) {
	if len(factors) == 0 {
		return SummaryStatistics{}, fmt.Errorf("%w: no cumulative factors to aggregate", ErrInvalidInput)
	}
	if numYears < 1 {
		return SummaryStatistics{}, fmt.Errorf("%w: num_years must be >= 1, got %d", ErrInvalidInput, numYears)
	}

	summary := SummaryStatistics{
		AverageCumulativeReturnFactor: stat.Mean(factors, nil),
	}
	depleted := 0
	for _, f := range factors {
		if f <= 0 {
			depleted++
		}
	}
	summary.DepletionProbability = float64(depleted) / float64(len(factors))

	avg := summary.AverageCumulativeReturnFactor
	if !isFinite(avg) {
		summary.Degenerate = true
		summary.AverageAnnualizedReturnPercent = math.NaN()
		return summary, fmt.Errorf("%w: average cumulative factor overflows float64", ErrComputationDegenerate)
	}
	var annualized float64
	if numYears == 1 {
		annualized = (avg - 1) * 100
	} else if avg >= 0 {
		annualized = (math.Pow(avg, 1/float64(numYears)) - 1) * 100
	} else {
		annualized = math.NaN()
	}
	if math.IsNaN(annualized) || math.IsInf(annualized, 0) {
		summary.Degenerate = true
		summary.AverageAnnualizedReturnPercent = math.NaN()
		if avg < 0 {
			return summary, fmt.Errorf("%w: average cumulative factor %.6f has no real %d-year root",
				ErrComputationDegenerate, avg, numYears)
		}
		return summary, fmt.Errorf("%w: annualized return of average factor %g overflows float64",
			ErrComputationDegenerate, avg)
	}
	summary.AverageAnnualizedReturnPercent = annualized
	return summary, nil
}

// RoundCents rounds v half away from zero to two decimals.
// Non-finite values are returned unchanged.
func RoundCents(v float64) float64 {
	return RoundTo(v, 2)
}

// RoundTo rounds v half away from zero to places decimals.
// Non-finite values are returned unchanged.
func RoundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
