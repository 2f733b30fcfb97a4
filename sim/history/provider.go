// Package history supplies historical annual return series to the engine.
// It has no dependency on the engine beyond the sim error taxonomy.
package history

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/drawdown-sim/drawdown-sim/sim"
)

// DateLayout is the date format used by queries and CSV files.
const DateLayout = "2006-01-02"

// Query selects a return series: one symbol over [Start, End).
// A zero Start or End leaves that side of the range open.
type Query struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

// Contains reports whether t falls inside the query's date range.
func (q Query) Contains(t time.Time) bool {
	if !q.Start.IsZero() && t.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && !t.Before(q.End) {
		return false
	}
	return true
}

// String renders the query for log lines.
func (q Query) String() string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "*"
		}
		return t.Format(DateLayout)
	}
	return fmt.Sprintf("%s [%s, %s)", q.Symbol, format(q.Start), format(q.End))
}

// Provider returns a non-empty sequence of fractional annual returns.
// Implementations fail with an error wrapping sim.ErrDataUnavailable when no
// usable series exists.
type Provider interface {
	AnnualReturns(ctx context.Context, q Query) ([]float64, error)
}

// Static serves a fixed, already-computed series regardless of the query.
type Static []float64

// AnnualReturns returns a copy of the series.
func (s Static) AnnualReturns(ctx context.Context, _ Query) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: no returns configured", sim.ErrDataUnavailable)
	}
	return slices.Clone([]float64(s)), nil
}
