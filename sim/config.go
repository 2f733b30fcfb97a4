package sim

import (
	"fmt"
	"math"
)

// SimulationBlockSize is the number of simulations that share one derived RNG.
// Blocks are the unit of parallel work; keeping the size fixed keeps output
// independent of the worker count.
const SimulationBlockSize = 256

// SimulationConfig groups the parameters of one bootstrap run.
type SimulationConfig struct {
	NumYears          int     // years per simulated path (must be >= 1)
	NumSims           int     // number of simulated paths (must be >= 1)
	InitialInvestment float64 // starting portfolio value (must be > 0)
	WithdrawalRate    float64 // decimal fraction, e.g. 0.04; not clamped, caller's responsibility
	Seed              int64   // master seed for the partitioned RNG
	Workers           int     // concurrent blocks (<= 0 means 1)
	Policy            string  // withdrawal policy name ("" = rate-subtraction)
	TrackYearly       bool    // accumulate the mean cumulative factor of each year
}

// NewSimulationConfig creates a SimulationConfig with the default policy and a single worker.
func NewSimulationConfig(numYears, numSims int, initialInvestment, withdrawalRate float64, seed int64) SimulationConfig {
	return SimulationConfig{
		NumYears:          numYears,
		NumSims:           numSims,
		InitialInvestment: initialInvestment,
		WithdrawalRate:    withdrawalRate,
		Seed:              seed,
		Workers:           1,
		Policy:            PolicyRateSubtraction,
	}
}

// Validate checks the numeric invariants and the policy name.
// All failures wrap ErrInvalidInput.
func (c SimulationConfig) Validate() error {
	if c.NumYears < 1 {
		return fmt.Errorf("%w: num_years must be >= 1, got %d", ErrInvalidInput, c.NumYears)
	}
	if c.NumSims < 1 {
		return fmt.Errorf("%w: num_sims must be >= 1, got %d", ErrInvalidInput, c.NumSims)
	}
	if math.IsNaN(c.InitialInvestment) || math.IsInf(c.InitialInvestment, 0) || c.InitialInvestment <= 0 {
		return fmt.Errorf("%w: initial_investment must be a positive number, got %v", ErrInvalidInput, c.InitialInvestment)
	}
	if math.IsNaN(c.WithdrawalRate) || math.IsInf(c.WithdrawalRate, 0) {
		return fmt.Errorf("%w: withdrawal_rate must be finite, got %v", ErrInvalidInput, c.WithdrawalRate)
	}
	if !IsValidPolicy(c.Policy) {
		return fmt.Errorf("%w: unknown withdrawal policy %q (valid: %v)", ErrInvalidInput, c.Policy, PolicyNames())
	}
	return nil
}

// workers returns the effective worker count.
func (c SimulationConfig) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}

// numBlocks returns how many SimulationBlockSize blocks cover NumSims.
func (c SimulationConfig) numBlocks() int {
	return (c.NumSims + SimulationBlockSize - 1) / SimulationBlockSize
}
