package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drawdown-sim/drawdown-sim/sim"
)

// Observation is one closing price.
type Observation struct {
	Date  time.Time
	Close float64
}

// CSVProvider reads closing prices from a CSV file with a header row holding
// at least "Date" and "Close" columns and optionally "Symbol". Dates use
// DateLayout. Rows may be daily, monthly or yearly and in any order.
type CSVProvider struct {
	Path string
}

// NewCSVProvider creates a CSVProvider for path.
func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{Path: path}
}

// AnnualReturns loads the file, keeps the rows matching q, and reduces them to
// annual returns with AnnualReturnsFromCloses.
func (p *CSVProvider) AnnualReturns(ctx context.Context, q Query) ([]float64, error) {
	file, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening price history: %v", sim.ErrDataUnavailable, err)
	}
	defer func() { _ = file.Close() }()

	observations, err := ReadCloses(ctx, file, q)
	if err != nil {
		return nil, err
	}
	returns := AnnualReturnsFromCloses(observations)
	if len(returns) == 0 {
		return nil, fmt.Errorf("%w: %s in %s has fewer than two years of closes",
			sim.ErrDataUnavailable, q, p.Path)
	}
	logrus.Debugf("Loaded %d annual returns for %s from %d closes in %s", len(returns), q, len(observations), p.Path)
	return returns, nil
}

// ReadCloses parses closing prices from r, keeping rows inside q's range and,
// when the file has a Symbol column and q.Symbol is set, rows for that symbol.
func ReadCloses(ctx context.Context, r io.Reader, q Query) ([]Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: price history is empty", sim.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	dateCol, closeCol, symbolCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		case "symbol":
			symbolCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("CSV header %v must contain Date and Close columns", header)
	}

	var observations []Observation
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if symbolCol >= 0 && q.Symbol != "" && row[symbolCol] != q.Symbol {
			continue
		}
		date, err := time.Parse(DateLayout, strings.TrimSpace(row[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing date %q: %w", line, row[dateCol], err)
		}
		if !q.Contains(date) {
			continue
		}
		value := strings.TrimSpace(row[closeCol])
		if value == "" {
			continue // non-trading rows carry no close
		}
		closePrice, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing close %q: %w", line, value, err)
		}
		if closePrice <= 0 {
			return nil, fmt.Errorf("line %d: close must be positive, got %v", line, closePrice)
		}
		observations = append(observations, Observation{Date: date, Close: closePrice})
	}
	return observations, nil
}

// AnnualReturnsFromCloses keeps the last close of each calendar year and
// returns the percentage change between consecutive years present in the
// data, oldest first. Fewer than two distinct years yield an empty result.
func AnnualReturnsFromCloses(observations []Observation) []float64 {
	lastByYear := make(map[int]Observation)
	for _, o := range observations {
		y := o.Date.Year()
		if prev, ok := lastByYear[y]; !ok || !o.Date.Before(prev.Date) {
			lastByYear[y] = o
		}
	}

	years := make([]int, 0, len(lastByYear))
	for y := range lastByYear {
		years = append(years, y)
	}
	sort.Ints(years)

	if len(years) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(years)-1)
	for i := 1; i < len(years); i++ {
		prev := lastByYear[years[i-1]].Close
		cur := lastByYear[years[i]].Close
		returns = append(returns, cur/prev-1)
	}
	return returns
}
