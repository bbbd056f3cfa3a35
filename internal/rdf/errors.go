package rdf

import "errors"

var (
	// ErrEmpty indicates a sample or file without any data rows.
	ErrEmpty = errors.New("rdf: no samples")

	// ErrMalformed indicates a row or header that cannot be parsed.
	ErrMalformed = errors.New("rdf: malformed input")

	// ErrGridMismatch indicates samples averaged over different r grids.
	ErrGridMismatch = errors.New("rdf: samples have different r grids")
)
