package ibi

import (
	"errors"
	"fmt"
)

var (
	// ErrSimulationFailed indicates the simulation runner exited abnormally.
	ErrSimulationFailed = errors.New("ibi: simulation failed")

	// ErrMissingTrajectory indicates a finished run without its trajectory.
	ErrMissingTrajectory = errors.New("ibi: trajectory not found after simulation")

	// ErrNotSeeded indicates an iteration requested before entry 0 exists.
	ErrNotSeeded = errors.New("ibi: pair table not seeded with the reference entry")

	// ErrTableOutOfStep indicates a table history that does not hold exactly
	// one entry per started iteration.
	ErrTableOutOfStep = errors.New("ibi: pair table out of step with iteration")
)

// IterationError wraps an error with the iteration and state it occurred in.
type IterationError struct {
	Iteration int
	State     State
	Wrapped   error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("iteration %d, %s: %v", e.Iteration, e.State, e.Wrapped)
}

func (e *IterationError) Unwrap() error {
	return e.Wrapped
}
