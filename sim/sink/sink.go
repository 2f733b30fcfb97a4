// Package sink persists decile tables.
//
// Every implementation wraps its failures in sim.ErrPersistence so callers can
// keep the in-memory result and report that nothing was stored.
package sink

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/drawdown-sim/drawdown-sim/sim"
)

// Column headers of a persisted decile table.
const (
	ColumnDecile      = "Decile"
	ColumnEndingValue = "Ending Asset Value"
)

// Sink stores a DecileTable.
type Sink interface {
	WriteDeciles(table sim.DecileTable) error
}

// Multi writes to every sink in order and joins their errors.
type Multi []Sink

// WriteDeciles writes table to each sink; one failing sink does not stop the others.
func (m Multi) WriteDeciles(table sim.DecileTable) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteDeciles(table); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	if errors.Is(err, sim.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", sim.ErrPersistence, err)
}

// FormatValue renders a decile value with exactly two decimals.
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
