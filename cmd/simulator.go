package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/drawdown-sim/drawdown-sim/sim"
	"github.com/drawdown-sim/drawdown-sim/sim/history"
	"github.com/drawdown-sim/drawdown-sim/sim/sink"
)

// SimulationRequest carries the per-request parameters of the API.
// WithdrawalRate is a percentage (4 means 4%); nil selects the configured default.
type SimulationRequest struct {
	NumYears          int      `form:"num_years" json:"num_years" binding:"required,gte=1"`
	NumSims           int      `form:"num_sims" json:"num_sims" binding:"required,gte=1"`
	InitialInvestment float64  `form:"initial_investment" json:"initial_investment" binding:"required,gt=0"`
	WithdrawalRate    *float64 `form:"withdrawal_rate" json:"withdrawal_rate"`
	Seed              *int64   `form:"seed" json:"seed"`
	Yearly            bool     `form:"yearly" json:"yearly"`
}

// DecileRow is one decile as presented to API clients.
type DecileRow struct {
	Decile           string  `json:"Decile"`
	EndingAssetValue float64 `json:"Ending Asset Value"`
}

// SimulationResponse is the API result. AvgAnnualizedReturn is null when the
// statistic is undefined; AvgAnnualizedReturnStatus then says so.
type SimulationResponse struct {
	Deciles                   []DecileRow `json:"deciles"`
	AvgCumulativeReturn       float64     `json:"avg_cumulative_return"`
	AvgAnnualizedReturn       *float64    `json:"avg_annualized_return"`
	AvgAnnualizedReturnStatus string      `json:"avg_annualized_return_status,omitempty"`
	DepletionProbability      float64     `json:"depletion_probability"`
	YearlyMeanFactors         []float64   `json:"yearly_mean_factors,omitempty"`
	Seed                      int64       `json:"seed"`
	Persisted                 bool        `json:"persisted"`
	PersistenceError          string      `json:"persistence_error,omitempty"`
}

// Simulator wires a return provider, the engine and an optional sink.
// Safe for concurrent use; sink writes are serialized.
type Simulator struct {
	Provider history.Provider
	Query    history.Query
	Sink     sink.Sink // nil disables persistence
	Defaults Config
	NextSeed func() int64 // seed for requests that do not carry one

	sinkMu sync.Mutex
}

// NewSimulator builds a Simulator from a validated Config.
func NewSimulator(cfg Config) (*Simulator, error) {
	q, err := cfg.Query()
	if err != nil {
		return nil, err
	}
	seed := cfg.Seed
	return &Simulator{
		Provider: cfg.Provider(),
		Query:    q,
		Sink:     cfg.Sink(),
		Defaults: cfg,
		NextSeed: func() int64 { return seed },
	}, nil
}

// SimulationConfig converts the request into engine parameters, turning the
// percentage withdrawal rate into a decimal fraction.
func (s *Simulator) SimulationConfig(req SimulationRequest) sim.SimulationConfig {
	ratePercent := s.Defaults.DefaultWithdrawalRate
	if req.WithdrawalRate != nil {
		ratePercent = *req.WithdrawalRate
	}
	seed := s.Defaults.Seed
	if req.Seed != nil {
		seed = *req.Seed
	} else if s.NextSeed != nil {
		seed = s.NextSeed()
	}
	cfg := sim.NewSimulationConfig(req.NumYears, req.NumSims, req.InitialInvestment, ratePercent/100.0, seed)
	cfg.Workers = s.Defaults.Workers
	cfg.Policy = s.Defaults.Policy
	cfg.TrackYearly = req.Yearly
	return cfg
}

// Simulate validates the request, fetches returns, runs the engine and
// persists the deciles. A persistence failure is logged and reported in the
// response; it never discards the computed result.
func (s *Simulator) Simulate(ctx context.Context, req SimulationRequest) (*SimulationResponse, *sim.Result, error) {
	cfg := s.SimulationConfig(req)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := s.Defaults.checkLimits(cfg); err != nil {
		return nil, nil, err
	}

	returns, err := s.Provider.AnnualReturns(ctx, s.Query)
	if err != nil {
		return nil, nil, err
	}
	logrus.Infof("Simulating %d years x %d sims from %d annual returns of %s (withdrawal %.2f%%, seed %d)",
		cfg.NumYears, cfg.NumSims, len(returns), s.Query, cfg.WithdrawalRate*100, cfg.Seed)

	result, err := sim.Simulate(ctx, returns, cfg)
	if err != nil {
		return nil, nil, err
	}

	resp, err := NewSimulationResponse(result)
	if err != nil {
		return nil, nil, err
	}
	if s.Sink != nil {
		s.sinkMu.Lock()
		err := s.Sink.WriteDeciles(result.Deciles)
		s.sinkMu.Unlock()
		if err != nil {
			logrus.Warnf("Deciles were not saved: %v", err)
			resp.PersistenceError = err.Error()
		} else {
			resp.Persisted = true
		}
	}
	return resp, result, nil
}

// NewSimulationResponse rounds the result for presentation: averages to two
// decimals, depletion probability to four. JSON has no encoding for NaN or
// Inf, so any non-finite number other than the annualized return fails with
// sim.ErrComputationDegenerate.
func NewSimulationResponse(result *sim.Result) (*SimulationResponse, error) {
	resp := &SimulationResponse{
		Deciles:              make([]DecileRow, len(result.Deciles)),
		AvgCumulativeReturn:  sim.RoundTo(result.Summary.AverageCumulativeReturnFactor, 2),
		DepletionProbability: sim.RoundTo(result.Summary.DepletionProbability, 4),
		YearlyMeanFactors:    result.YearlyMeanFactors,
		Seed:                 result.Config.Seed,
	}
	for i, d := range result.Deciles {
		resp.Deciles[i] = DecileRow{Decile: d.Label, EndingAssetValue: d.Value}
	}
	annualized := result.Summary.AverageAnnualizedReturnPercent
	if result.Summary.Degenerate || math.IsNaN(annualized) || math.IsInf(annualized, 0) {
		resp.AvgAnnualizedReturnStatus = "undefined"
	} else {
		rounded := sim.RoundTo(annualized, 2)
		resp.AvgAnnualizedReturn = &rounded
	}
	if err := resp.checkFinite(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *SimulationResponse) checkFinite() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", sim.ErrComputationDegenerate, name, v)
		}
		return nil
	}
	if err := check("avg_cumulative_return", r.AvgCumulativeReturn); err != nil {
		return err
	}
	if err := check("depletion_probability", r.DepletionProbability); err != nil {
		return err
	}
	for _, d := range r.Deciles {
		if err := check(d.Decile+" decile", d.EndingAssetValue); err != nil {
			return err
		}
	}
	for year, f := range r.YearlyMeanFactors {
		if err := check(fmt.Sprintf("year %d mean factor", year+1), f); err != nil {
			return err
		}
	}
	return nil
}

// StatusCode maps the error taxonomy onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, sim.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, sim.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, sim.ErrComputationDegenerate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
