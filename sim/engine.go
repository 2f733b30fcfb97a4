package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outcomes holds the per-simulation results of one engine run.
type Outcomes struct {
	EndingValues      []float64 // InitialInvestment * final factor, one per simulation
	FinalFactors      []float64 // final cumulative return factor, index-aligned with EndingValues
	YearlyMeanFactors []float64 // mean factor at the end of each year; nil unless TrackYearly
}

// Run draws cfg.NumSims bootstrap paths of cfg.NumYears annual returns each
// from returns, applies the configured withdrawal policy every year and
// returns the ending asset value and final cumulative factor of each path.
//
// Simulations are grouped in blocks of SimulationBlockSize; block b draws from
// PartitionedRNG.ForSubsystem(SubsystemBlock(b)). Blocks write disjoint ranges
// of the output slices and run on up to cfg.Workers goroutines, so the output
// for a given seed does not depend on the worker count.
//
// An empty or non-finite series fails with ErrDataUnavailable before any
// sampling; invalid parameters fail with ErrInvalidInput. Outcomes that
// overflow float64 fail with ErrComputationDegenerate.
func Run(ctx context.Context, returns []float64, cfg SimulationConfig) (*Outcomes, error) {
	if err := validateReturns(returns); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	policy := LookupPolicy(cfg.Policy)

	numBlocks := cfg.numBlocks()
	partitioned := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	rngs := make([]*rand.Rand, numBlocks)
	for b := range rngs {
		rngs[b] = partitioned.ForSubsystem(SubsystemBlock(b))
	}

	out := &Outcomes{
		EndingValues: make([]float64, cfg.NumSims),
		FinalFactors: make([]float64, cfg.NumSims),
	}
	var yearlySums [][]float64
	if cfg.TrackYearly {
		yearlySums = make([][]float64, numBlocks)
	}

	logrus.Debugf("Bootstrap run: %d sims x %d years over %d historical returns, %d blocks on %d workers, policy=%s, seed=%d",
		cfg.NumSims, cfg.NumYears, len(returns), numBlocks, cfg.workers(), LookupPolicyName(cfg.Policy), partitioned.Key())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for b := 0; b < numBlocks; b++ {
		b := b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lo := b * SimulationBlockSize
			hi := min(lo+SimulationBlockSize, cfg.NumSims)
			var sums []float64
			if cfg.TrackYearly {
				sums = make([]float64, cfg.NumYears)
				yearlySums[b] = sums
			}
			runBlock(rngs[b], returns, cfg, policy, out.EndingValues[lo:hi], out.FinalFactors[lo:hi], sums, b == 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cfg.TrackYearly {
		out.YearlyMeanFactors = reduceYearlySums(yearlySums, cfg.NumYears, cfg.NumSims)
	}
	if err := checkFinite(out, cfg.NumYears); err != nil {
		return nil, err
	}
	return out, nil
}

// checkFinite rejects outcomes that left the float64 range, e.g. a large
// return compounded over thousands of years.
func checkFinite(out *Outcomes, numYears int) error {
	for i, v := range out.EndingValues {
		if !isFinite(v) || !isFinite(out.FinalFactors[i]) {
			return fmt.Errorf("%w: simulation %d overflows float64 after %d years (factor %v, ending value %v)",
				ErrComputationDegenerate, i, numYears, out.FinalFactors[i], v)
		}
	}
	for year, v := range out.YearlyMeanFactors {
		if !isFinite(v) {
			return fmt.Errorf("%w: mean factor of year %d overflows float64", ErrComputationDegenerate, year+1)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// runBlock simulates len(ending) paths with a single RNG.
// yearly, when non-nil, receives the running sum of each year's factor.
func runBlock(rng *rand.Rand, returns []float64, cfg SimulationConfig, policy WithdrawalPolicy,
	ending, factors, yearly []float64, first bool) {
	traceFirst := first && logrus.IsLevelEnabled(logrus.TraceLevel)
	for i := range ending {
		factor := 1.0
		for year := 0; year < cfg.NumYears; year++ {
			r := returns[rng.Intn(len(returns))]
			factor *= 1 + r
			if traceFirst && i == 0 {
				logrus.Tracef("sim 0 year %d: return=%.4f factor=%.6f notional withdrawal=%.2f",
					year+1, r, factor, NotionalWithdrawal(cfg.InitialInvestment, factor, cfg.WithdrawalRate))
			}
			factor = policy(factor, cfg.WithdrawalRate)
			if yearly != nil {
				yearly[year] += factor
			}
		}
		factors[i] = factor
		ending[i] = cfg.InitialInvestment * factor
	}
}

// NotionalWithdrawal is the currency amount a withdrawal at rate would take from
// a portfolio worth initialInvestment * factor. No policy subtracts it directly.
func NotionalWithdrawal(initialInvestment, factor, rate float64) float64 {
	return initialInvestment * factor * rate
}

// reduceYearlySums adds the per-block sums in block order and divides by numSims.
func reduceYearlySums(blockSums [][]float64, numYears, numSims int) []float64 {
	means := make([]float64, numYears)
	for _, sums := range blockSums {
		for year, s := range sums {
			means[year] += s
		}
	}
	for year := range means {
		means[year] /= float64(numSims)
	}
	return means
}

func validateReturns(returns []float64) error {
	if len(returns) == 0 {
		return fmt.Errorf("%w: historical return series is empty", ErrDataUnavailable)
	}
	for i, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: historical return %d is not finite (%v)", ErrDataUnavailable, i, r)
		}
	}
	return nil
}
