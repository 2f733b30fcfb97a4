package sim

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Result is the aggregated output of one Simulate call.
type Result struct {
	Config            SimulationConfig
	Deciles           DecileTable
	Summary           SummaryStatistics
	YearlyMeanFactors []float64 // nil unless Config.TrackYearly
}

// Simulate runs the bootstrap engine over returns and aggregates its outcomes.
//
// ErrDataUnavailable and ErrInvalidInput abort before any simulation.
// A degenerate annualized return does not fail the call: it is reported
// through Result.Summary.Degenerate. Results that do not fit in float64 fail
// with ErrComputationDegenerate.
func Simulate(ctx context.Context, returns []float64, cfg SimulationConfig) (*Result, error) {
	outcomes, err := Run(ctx, returns, cfg)
	if err != nil {
		return nil, err
	}

	deciles, err := ComputeDeciles(outcomes.EndingValues)
	if err != nil {
		return nil, err
	}

	summary, err := ComputeSummary(outcomes.FinalFactors, cfg.NumYears)
	if err != nil {
		if !errors.Is(err, ErrComputationDegenerate) || !isFinite(summary.AverageCumulativeReturnFactor) {
			return nil, err
		}
		logrus.Warnf("Annualized return is undefined: %v", err)
	}

	return &Result{
		Config:            cfg,
		Deciles:           deciles,
		Summary:           summary,
		YearlyMeanFactors: outcomes.YearlyMeanFactors,
	}, nil
}
