package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/drawdown-sim/drawdown-sim/sim"
	"github.com/drawdown-sim/drawdown-sim/sim/sink"
)

// maxMinorUnits bounds amounts that fit go-money's int64 minor units.
const maxMinorUnits = 1 << 62

// FormatMoney renders v in the given ISO currency, e.g. "$106,000.00".
// Unknown currencies and amounts outside int64 minor units fall back to a plain two-decimal number.
func FormatMoney(v float64, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return sink.FormatValue(v)
	}
	minor := decimal.NewFromFloat(v).Shift(int32(cur.Fraction)).Round(0)
	if minor.Abs().GreaterThan(decimal.NewFromInt(maxMinorUnits)) {
		return sink.FormatValue(v)
	}
	return money.New(minor.IntPart(), cur.Code).Display()
}

// PrintText writes a human-readable report of resp to w.
func PrintText(w io.Writer, cfg sim.SimulationConfig, resp *SimulationResponse, currency string) error {
	fmt.Fprintf(w, "=== Bootstrap Monte Carlo ===\n")
	fmt.Fprintf(w, "Years: %d  Simulations: %d  Initial investment: %s  Withdrawal rate: %.2f%% (%s)  Seed: %d\n\n",
		cfg.NumYears, cfg.NumSims, FormatMoney(cfg.InitialInvestment, currency),
		cfg.WithdrawalRate*100, sim.LookupPolicyName(cfg.Policy), cfg.Seed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t%s\t\n", sink.ColumnDecile, sink.ColumnEndingValue)
	for _, d := range resp.Deciles {
		fmt.Fprintf(tw, "%s\t%s\t\n", d.Decile, FormatMoney(d.EndingAssetValue, currency))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAverage cumulative return factor: %.2f\n", resp.AvgCumulativeReturn)
	if resp.AvgAnnualizedReturn != nil {
		fmt.Fprintf(w, "Approximate average annualized return: %.2f%%\n", *resp.AvgAnnualizedReturn)
	} else {
		fmt.Fprintf(w, "Approximate average annualized return: %s (negative average factor)\n", resp.AvgAnnualizedReturnStatus)
	}
	fmt.Fprintf(w, "Depletion probability: %.2f%%\n", resp.DepletionProbability*100)

	if len(resp.YearlyMeanFactors) > 0 {
		fmt.Fprintf(w, "\nMean cumulative factor by year:\n")
		for year, f := range resp.YearlyMeanFactors {
			fmt.Fprintf(w, "  %3d  %.4f\n", year+1, f)
		}
	}
	if resp.PersistenceError != "" {
		fmt.Fprintf(w, "\nWARNING: deciles were not saved: %s\n", resp.PersistenceError)
	}
	return nil
}

// PrintJSON writes resp as indented JSON.
func PrintJSON(w io.Writer, resp *SimulationResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
