package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drawdown-sim/drawdown-sim/sim"
	"github.com/drawdown-sim/drawdown-sim/sim/history"
	"github.com/drawdown-sim/drawdown-sim/sim/sink"
)

func TestLoadConfig_EmptyPath_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "^GSPC", cfg.Symbol)
	assert.Equal(t, 4.0, cfg.DefaultWithdrawalRate)
	assert.Equal(t, sink.DefaultCSVFileName, cfg.OutputFile)
}

func TestLoadConfig_OverridesOnlyListedKeys(t *testing.T) {
	// GIVEN a file that sets two keys
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: ^IXIC\ndefault_withdrawal_rate: 3.5\n"), 0o644))

	// WHEN loaded
	cfg, err := LoadConfig(path)

	// THEN those keys change and the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, "^IXIC", cfg.Symbol)
	assert.Equal(t, 3.5, cfg.DefaultWithdrawalRate)
	assert.Equal(t, "1948-07-01", cfg.StartDate)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestLoadConfig_UnknownKey_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("withdrawl_rate: 4\n"), 0o644))

	_, err := LoadConfig(path)

	assert.Error(t, err, "typos must cause errors")
}

func TestLoadConfig_EmptyFile_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad start date", func(c *Config) { c.StartDate = "1948/07/01" }},
		{"bad end date", func(c *Config) { c.EndDate = "soon" }},
		{"start after end", func(c *Config) { c.StartDate, c.EndDate = "2024-07-01", "1948-07-01" }},
		{"unknown policy", func(c *Config) { c.Policy = "guyton-klinger" }},
		{"negative max_sims", func(c *Config) { c.MaxSims = -1 }},
		{"negative max_years", func(c *Config) { c.MaxYears = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, sim.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestConfig_Provider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Returns = []float64{0.1}
	assert.Equal(t, history.Static{0.1}, cfg.Provider())

	cfg.HistoryFile = "closes.csv"
	assert.Equal(t, history.NewCSVProvider("closes.csv"), cfg.Provider())
}

func TestConfig_Sink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputFile = ""
	assert.Nil(t, cfg.Sink())

	cfg.OutputFile = "d.csv"
	cfg.PDFFile = "d.pdf"
	sinks, ok := cfg.Sink().(sink.Multi)
	require.True(t, ok)
	assert.Len(t, sinks, 2)
}
