package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drawdown-sim/drawdown-sim/sim"
	"github.com/drawdown-sim/drawdown-sim/sim/history"
	"github.com/drawdown-sim/drawdown-sim/sim/sink"
)

// Config holds the settings that are fixed for a deployment rather than
// supplied per request. Loaded from YAML; command-line flags override it.
// All keys must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Symbol                string    `yaml:"symbol"`                  // series selected from the history file
	StartDate             string    `yaml:"start_date"`              // inclusive, YYYY-MM-DD
	EndDate               string    `yaml:"end_date"`                // exclusive, YYYY-MM-DD
	DefaultWithdrawalRate float64   `yaml:"default_withdrawal_rate"` // percent, used when a request omits it
	HistoryFile           string    `yaml:"history_file"`            // CSV of closes (Date,Close[,Symbol])
	Returns               []float64 `yaml:"returns"`                 // inline annual returns, used when no history file
	OutputFile            string    `yaml:"output_file"`             // decile CSV; empty disables saving
	PDFFile               string    `yaml:"pdf_file"`                // optional decile PDF
	Currency              string    `yaml:"currency"`                // ISO code for console display
	Seed                  int64     `yaml:"seed"`
	Workers               int       `yaml:"workers"`
	Policy                string    `yaml:"policy"`
	MaxSims               int       `yaml:"max_sims"`  // per-request ceiling on num_sims; 0 disables it
	MaxYears              int       `yaml:"max_years"` // per-request ceiling on num_years; 0 disables it
}

// Default request ceilings. Run holds two float64 per simulation, so
// DefaultMaxSims bounds a request to about 32 MB of outcomes.
const (
	DefaultMaxSims  = 2_000_000
	DefaultMaxYears = 10_000
)

// DefaultConfig returns the built-in settings: S&P 500, mid-1948 to mid-2024,
// 4% withdrawal, deciles saved to sink.DefaultCSVFileName.
func DefaultConfig() Config {
	return Config{
		Symbol:                "^GSPC",
		StartDate:             "1948-07-01",
		EndDate:               "2024-07-01",
		DefaultWithdrawalRate: 4,
		OutputFile:            sink.DefaultCSVFileName,
		Currency:              "USD",
		Seed:                  42,
		Workers:               1,
		Policy:                sim.PolicyRateSubtraction,
		MaxSims:               DefaultMaxSims,
		MaxYears:              DefaultMaxYears,
	}
}

// LoadConfig reads path over DefaultConfig. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	return parseConfig(cfg, data)
}

// parseConfig decodes data over base with strict field checking (typos must cause errors).
func parseConfig(base Config, data []byte) (Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&base); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := base.Validate(); err != nil {
		return base, err
	}
	return base, nil
}

// Validate checks dates, the policy name and the request ceilings.
func (c Config) Validate() error {
	if _, err := c.Query(); err != nil {
		return err
	}
	if c.MaxSims < 0 || c.MaxYears < 0 {
		return fmt.Errorf("%w: max_sims and max_years must be >= 0, got %d and %d", sim.ErrInvalidInput, c.MaxSims, c.MaxYears)
	}
	if !sim.IsValidPolicy(c.Policy) {
		return fmt.Errorf("%w: unknown withdrawal policy %q (valid: %v)", sim.ErrInvalidInput, c.Policy, sim.PolicyNames())
	}
	return nil
}

// checkLimits rejects requests above the configured ceilings.
func (c Config) checkLimits(cfg sim.SimulationConfig) error {
	if c.MaxSims > 0 && cfg.NumSims > c.MaxSims {
		return fmt.Errorf("%w: num_sims %d exceeds max_sims %d", sim.ErrInvalidInput, cfg.NumSims, c.MaxSims)
	}
	if c.MaxYears > 0 && cfg.NumYears > c.MaxYears {
		return fmt.Errorf("%w: num_years %d exceeds max_years %d", sim.ErrInvalidInput, cfg.NumYears, c.MaxYears)
	}
	return nil
}

// Query returns the history query described by the symbol and date range.
func (c Config) Query() (history.Query, error) {
	q := history.Query{Symbol: c.Symbol}
	var err error
	if c.StartDate != "" {
		if q.Start, err = time.Parse(history.DateLayout, c.StartDate); err != nil {
			return q, fmt.Errorf("%w: start_date %q: %v", sim.ErrInvalidInput, c.StartDate, err)
		}
	}
	if c.EndDate != "" {
		if q.End, err = time.Parse(history.DateLayout, c.EndDate); err != nil {
			return q, fmt.Errorf("%w: end_date %q: %v", sim.ErrInvalidInput, c.EndDate, err)
		}
	}
	if !q.Start.IsZero() && !q.End.IsZero() && !q.Start.Before(q.End) {
		return q, fmt.Errorf("%w: start_date %s must be before end_date %s", sim.ErrInvalidInput, c.StartDate, c.EndDate)
	}
	return q, nil
}

// Provider selects the return source: the history file when set, otherwise
// the inline returns. With neither, the provider reports ErrDataUnavailable.
func (c Config) Provider() history.Provider {
	if c.HistoryFile != "" {
		return history.NewCSVProvider(c.HistoryFile)
	}
	return history.Static(c.Returns)
}

// Sink builds the configured sinks; nil when nothing is to be saved.
func (c Config) Sink() sink.Sink {
	var sinks sink.Multi
	if c.OutputFile != "" {
		sinks = append(sinks, sink.NewCSV(c.OutputFile))
	}
	if c.PDFFile != "" {
		title := fmt.Sprintf("%s Monte Carlo: Ending Asset Value by Decile", c.Symbol)
		sinks = append(sinks, sink.NewPDF(c.PDFFile, title))
	}
	if len(sinks) == 0 {
		return nil
	}
	return sinks
}
