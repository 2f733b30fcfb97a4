package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/drawdown-sim/drawdown-sim/sim"
)

// DefaultCSVFileName is used when no output path is configured.
const DefaultCSVFileName = "sp500_monte_carlo_ending_assets_deciles_withdrawal.csv"

// CSV writes the decile table to a file, replacing any previous content.
type CSV struct {
	Path string
}

// NewCSV creates a CSV sink; an empty path selects DefaultCSVFileName.
func NewCSV(path string) *CSV {
	if path == "" {
		path = DefaultCSVFileName
	}
	return &CSV{Path: path}
}

// WriteDeciles implements Sink.
func (s *CSV) WriteDeciles(table sim.DecileTable) (err error) {
	file, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", sim.ErrPersistence, s.Path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %v", sim.ErrPersistence, s.Path, closeErr)
		}
	}()

	if err := WriteCSV(file, table); err != nil {
		return err
	}
	logrus.Infof("Percentile data saved to: %s", s.Path)
	return nil
}

// WriteCSV writes a header row and one row per decile to w.
func WriteCSV(w io.Writer, table sim.DecileTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ColumnDecile, ColumnEndingValue}); err != nil {
		return fmt.Errorf("%w: writing CSV header: %v", sim.ErrPersistence, err)
	}
	for _, d := range table {
		if err := writer.Write([]string{d.Label, FormatValue(d.Value)}); err != nil {
			return fmt.Errorf("%w: writing CSV row %s: %v", sim.ErrPersistence, d.Label, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("%w: flushing CSV: %v", sim.ErrPersistence, err)
	}
	return nil
}
