package numeric

import "gonum.org/v1/gonum/floats"

// Linspace returns n evenly spaced samples from start to end inclusive.
func Linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, end)
}

// Map evaluates fn at every x.
func Map(x []float64, fn func(float64) float64) []float64 {
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = fn(xi)
	}
	return y
}
