package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drawdown-sim/drawdown-sim/sim/internal/testutil"
)

func TestRun_OutputLengthsMatchNumSims(t *testing.T) {
	for _, numSims := range []int{1, 7, SimulationBlockSize, SimulationBlockSize + 1, 1000} {
		cfg := NewSimulationConfig(5, numSims, 1000, 0.04, 42)

		out, err := Run(context.Background(), testutil.SP500Sample, cfg)

		require.NoError(t, err)
		assert.Len(t, out.EndingValues, numSims)
		assert.Len(t, out.FinalFactors, numSims)
		assert.Nil(t, out.YearlyMeanFactors)
	}
}

func TestRun_ZeroReturnZeroWithdrawal_EndingValueEqualsInvestment(t *testing.T) {
	// GIVEN a flat market and no withdrawal
	cfg := NewSimulationConfig(40, 500, 250000, 0, 3)

	// WHEN the engine runs
	out, err := Run(context.Background(), []float64{0.0}, cfg)

	// THEN every path ends where it started
	require.NoError(t, err)
	for i, v := range out.EndingValues {
		if v != 250000 {
			t.Fatalf("sim %d: ending value %v, want 250000", i, v)
		}
	}
}

func TestRun_ConstantReturn_RateIsSubtractedFromFactor(t *testing.T) {
	// GIVEN a constant 10% return, one year, a 4% withdrawal rate
	cfg := NewSimulationConfig(1, 1000, 100000, 0.04, 99)

	// WHEN the engine runs
	out, err := Run(context.Background(), testutil.ConstantSeries(0.10, 30), cfg)

	// THEN every factor is 1.10 - 0.04 and every ending value 106000
	require.NoError(t, err)
	for i := range out.EndingValues {
		assert.InDelta(t, 1.06, out.FinalFactors[i], 1e-12)
		assert.InDelta(t, 106000.0, out.EndingValues[i], 1e-6)
	}
}

func TestRun_MultiYear_AppliesPolicyEveryYear(t *testing.T) {
	// factor: ((1*1.1 - 0.04) * 1.1 - 0.04) = 1.126
	cfg := NewSimulationConfig(2, 3, 1000, 0.04, 1)

	out, err := Run(context.Background(), []float64{0.10}, cfg)

	require.NoError(t, err)
	for _, f := range out.FinalFactors {
		assert.InDelta(t, 1.126, f, 1e-12)
	}
}

func TestRun_EmptySeries_DataUnavailable(t *testing.T) {
	cfg := NewSimulationConfig(10, 10, 1000, 0.04, 1)

	out, err := Run(context.Background(), nil, cfg)

	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ErrDataUnavailable), "got %v", err)
}

func TestRun_EmptySeriesWithInvalidConfig_ReportsDataUnavailableFirst(t *testing.T) {
	cfg := NewSimulationConfig(0, 0, -1, 0.04, 1)

	_, err := Run(context.Background(), []float64{}, cfg)

	assert.True(t, errors.Is(err, ErrDataUnavailable), "got %v", err)
}

func TestRun_NonFiniteReturn_DataUnavailable(t *testing.T) {
	cfg := NewSimulationConfig(10, 10, 1000, 0.04, 1)

	_, err := Run(context.Background(), []float64{0.1, math.NaN()}, cfg)

	assert.True(t, errors.Is(err, ErrDataUnavailable), "got %v", err)
}

func TestRun_InvalidConfig_InvalidInput(t *testing.T) {
	cfg := NewSimulationConfig(10, 0, 1000, 0.04, 1)

	_, err := Run(context.Background(), testutil.SP500Sample, cfg)

	assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
}

func TestRun_SameSeed_BitIdentical(t *testing.T) {
	cfg := NewSimulationConfig(30, 2000, 100000, 0.04, 2024)

	a, err := Run(context.Background(), testutil.SP500Sample, cfg)
	require.NoError(t, err)
	b, err := Run(context.Background(), testutil.SP500Sample, cfg)
	require.NoError(t, err)

	assert.Equal(t, a.EndingValues, b.EndingValues)
	assert.Equal(t, a.FinalFactors, b.FinalFactors)
}

func TestRun_DifferentSeeds_DifferentOutcomes(t *testing.T) {
	cfgA := NewSimulationConfig(30, 100, 100000, 0.04, 1)
	cfgB := NewSimulationConfig(30, 100, 100000, 0.04, 2)

	a, err := Run(context.Background(), testutil.SP500Sample, cfgA)
	require.NoError(t, err)
	b, err := Run(context.Background(), testutil.SP500Sample, cfgB)
	require.NoError(t, err)

	assert.NotEqual(t, a.EndingValues, b.EndingValues)
}

func TestRun_WorkerCount_DoesNotChangeOutput(t *testing.T) {
	// GIVEN a run spanning several blocks
	cfg := NewSimulationConfig(25, 5*SimulationBlockSize+17, 100000, 0.04, 77)
	cfg.TrackYearly = true

	serial, err := Run(context.Background(), testutil.SP500Sample, cfg)
	require.NoError(t, err)

	// WHEN the same run is spread across workers
	for _, workers := range []int{2, 4, 16} {
		cfg.Workers = workers
		parallel, err := Run(context.Background(), testutil.SP500Sample, cfg)
		require.NoError(t, err)

		// THEN outputs are bit-identical
		assert.Equal(t, serial.EndingValues, parallel.EndingValues, "workers=%d", workers)
		assert.Equal(t, serial.FinalFactors, parallel.FinalFactors, "workers=%d", workers)
		assert.Equal(t, serial.YearlyMeanFactors, parallel.YearlyMeanFactors, "workers=%d", workers)
	}
}

func TestRun_EndingValueIsInvestmentTimesFactor(t *testing.T) {
	cfg := NewSimulationConfig(15, 300, 123456.78, 0.035, 5)

	out, err := Run(context.Background(), testutil.SP500Sample, cfg)

	require.NoError(t, err)
	for i := range out.EndingValues {
		assert.Equal(t, cfg.InitialInvestment*out.FinalFactors[i], out.EndingValues[i])
	}
}

func TestRun_TrackYearly_LastYearMatchesMeanFactor(t *testing.T) {
	cfg := NewSimulationConfig(12, 600, 1000, 0.04, 8)
	cfg.TrackYearly = true

	out, err := Run(context.Background(), testutil.SP500Sample, cfg)

	require.NoError(t, err)
	require.Len(t, out.YearlyMeanFactors, 12)
	sum := 0.0
	for _, f := range out.FinalFactors {
		sum += f
	}
	testutil.AssertFloat64Equal(t, "last yearly mean", sum/600, out.YearlyMeanFactors[11], 1e-9)
}

func TestRun_ProportionalPolicy(t *testing.T) {
	// (1 * 1.1) * 0.96 per year
	cfg := NewSimulationConfig(1, 4, 1000, 0.04, 1)
	cfg.Policy = PolicyProportional

	out, err := Run(context.Background(), []float64{0.10}, cfg)

	require.NoError(t, err)
	for _, v := range out.EndingValues {
		assert.InDelta(t, 1056.0, v, 1e-9)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testutil.SP500Sample, NewSimulationConfig(5, 10, 1000, 0.04, 1))

	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func BenchmarkRun_30Years_10000Sims(b *testing.B) {
	cfg := NewSimulationConfig(30, 10000, 100000, 0.04, 1)
	for i := 0; i < b.N; i++ {
		if _, err := Run(context.Background(), testutil.SP500Sample, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func TestRun_FactorOverflow_ComputationDegenerate(t *testing.T) {
	// GIVEN a 50% return compounded for 2000 years, past the float64 range
	cfg := NewSimulationConfig(2000, 10, 1000, 0.04, 1)

	// WHEN run
	out, err := Run(context.Background(), []float64{0.5}, cfg)

	// THEN the overflow is rejected instead of returning infinite outcomes
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ErrComputationDegenerate), "got %v", err)
	assert.Contains(t, err.Error(), "overflows float64 after 2000 years")
}

func TestRun_EndingValueOverflow_ComputationDegenerate(t *testing.T) {
	// GIVEN a finite factor that overflows once multiplied by the investment
	cfg := NewSimulationConfig(1, 3, math.MaxFloat64, 0, 1)

	_, err := Run(context.Background(), []float64{1.0}, cfg)

	assert.True(t, errors.Is(err, ErrComputationDegenerate), "got %v", err)
}

func TestRun_DebugLogCarriesSeed(t *testing.T) {
	// GIVEN debug logging captured by a test hook
	oldHooks := logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	defer logrus.StandardLogger().ReplaceHooks(oldHooks)
	hook := logtest.NewGlobal()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(level)

	// WHEN a seeded run completes
	_, err := Run(context.Background(), testutil.SP500Sample, NewSimulationConfig(3, 5, 1000, 0.04, 777))
	require.NoError(t, err)

	// THEN the run header names the seed that keys the RNG partitions
	require.NotEmpty(t, hook.AllEntries())
	assert.Contains(t, hook.AllEntries()[0].Message, "seed=777")
}
