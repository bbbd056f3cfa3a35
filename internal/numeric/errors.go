package numeric

import "errors"

var (
	// ErrTooFewPoints indicates a sampled function with fewer than two samples.
	ErrTooFewPoints = errors.New("numeric: at least two samples required")

	// ErrLengthMismatch indicates abscissa and ordinate slices of different length.
	ErrLengthMismatch = errors.New("numeric: x and f must have the same length")

	// ErrNotMonotonic indicates an abscissa that is not strictly monotonic.
	ErrNotMonotonic = errors.New("numeric: x must be strictly monotonic")
)
