package sim

import "errors"

// Error taxonomy. Callers match with errors.Is; producers wrap with
// fmt.Errorf("%w: ...") to add detail.
var (
	// ErrInvalidInput reports malformed or out-of-range caller parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataUnavailable reports a missing, empty or unusable historical return series.
	ErrDataUnavailable = errors.New("historical data unavailable")

	// ErrComputationDegenerate reports a summary statistic that has no real value,
	// e.g. a fractional root of a negative average cumulative factor.
	ErrComputationDegenerate = errors.New("computation degenerate")

	// ErrPersistence reports a sink that failed to store a result.
	// The in-memory result stays valid.
	ErrPersistence = errors.New("persistence failed")
)
