// Package sim provides the bootstrap Monte Carlo engine for drawdown-sim.
//
// # Reading Guide
//
// Start with these files:
//   - config.go: SimulationConfig and its invariants
//   - engine.go: Run, the per-block bootstrap loop
//   - stats.go: decile and summary aggregation
//   - simulate.go: Simulate, engine plus aggregation in one call
//
// # Determinism
//
// All randomness flows from SimulationConfig.Seed through PartitionedRNG.
// Simulations are grouped in fixed-size blocks, each with its own derived
// RNG, so a seed yields bit-identical results for any worker count.
//
// # Extension Points
//
//   - WithdrawalPolicy: the per-year factor adjustment, selected by name
//   - history.Provider (sim/history): where historical returns come from
//   - sink.Sink (sim/sink): where decile tables are persisted
package sim
