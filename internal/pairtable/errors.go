package pairtable

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// Domain errors for pair table construction.
var (
	// ErrContactNotResolved indicates an RDF with no point above the contact
	// threshold, so the reliable region cannot be located.
	ErrContactNotResolved = errors.New("pairtable: RDF contact region not resolved")

	// ErrInsufficientData indicates an RDF with fewer than two usable points.
	ErrInsufficientData = errors.New("pairtable: RDF needs at least two points with g(r) > 0")

	// ErrFitNotConverged indicates the reference potential least-squares fit
	// stopped without converging.
	ErrFitNotConverged = errors.New("pairtable: reference potential fit did not converge")

	// ErrLengthMismatch indicates distance, force and energy of different length.
	ErrLengthMismatch = errors.New("pairtable: distance, force and energy lengths differ")

	// ErrNoEntry indicates an index outside the table history.
	ErrNoEntry = errors.New("pairtable: no entry at index")
)

// FitError wraps a fit failure with the optimizer's final state.
type FitError struct {
	Status  optimize.Status
	Params  LJ96
	Wrapped error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%v (status %v, sigma=%g epsilon=%g)", e.Wrapped, e.Status, e.Params.Sigma, e.Params.Epsilon)
}

func (e *FitError) Unwrap() error {
	return e.Wrapped
}
