package numeric

import (
	"errors"
	"math"
	"testing"
)

func TestCumulativeSimpsonConstant(t *testing.T) {
	x := Linspace(2.0, 20.0, 181)
	c := 3.5
	f := make([]float64, len(x))
	for i := range f {
		f[i] = c
	}

	F, err := CumulativeSimpson(x, f)
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}

	if F[0] != 0 {
		t.Errorf("expected F[0] == 0, got %f", F[0])
	}
	for i := range x {
		expected := c * (x[i] - x[0])
		if math.Abs(F[i]-expected) > 1e-9 {
			t.Errorf("F[%d]: expected %.9f, got %.9f", i, expected, F[i])
		}
	}
}

func TestCumulativeSimpsonCubicExact(t *testing.T) {
	x := Linspace(0, 2, 21)
	f := Map(x, func(v float64) float64 { return v * v * v })

	F, err := CumulativeSimpson(x, f)
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}

	// Simpson's rule is exact for cubics on every even index.
	for i := 2; i < len(x); i += 2 {
		expected := math.Pow(x[i], 4) / 4
		if math.Abs(F[i]-expected) > 1e-12 {
			t.Errorf("F[%d]: expected %.12f, got %.12f", i, expected, F[i])
		}
	}
}

func TestCumulativeSimpsonDescending(t *testing.T) {
	x := Linspace(5, 1, 41)
	f := Map(x, func(v float64) float64 { return 2 * v })

	F, err := CumulativeSimpson(x, f)
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}

	last := len(x) - 1
	expected := x[last]*x[last] - x[0]*x[0]
	if math.Abs(F[last]-expected) > 1e-9 {
		t.Errorf("expected %.9f, got %.9f", expected, F[last])
	}
}

func TestIntegrateFromEnd(t *testing.T) {
	x := Linspace(2, 10, 81)
	f := Map(x, func(v float64) float64 { return 1.0 })

	F, err := IntegrateFromEnd(x, f)
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}
	if F[len(F)-1] != 0 {
		t.Errorf("expected zero at the last sample, got %f", F[len(F)-1])
	}
	// integral from 10 down to 2 of 1
	if math.Abs(F[0]-(-8.0)) > 1e-9 {
		t.Errorf("expected -8, got %f", F[0])
	}
}

func TestCumulativeSimpsonErrors(t *testing.T) {
	tests := []struct {
		name string
		x, f []float64
		want error
	}{
		{"too few", []float64{1}, []float64{1}, ErrTooFewPoints},
		{"length mismatch", []float64{1, 2}, []float64{1}, ErrLengthMismatch},
		{"repeated x", []float64{1, 1, 2}, []float64{1, 1, 1}, ErrNotMonotonic},
		{"zigzag", []float64{1, 2, 1.5}, []float64{1, 1, 1}, ErrNotMonotonic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CumulativeSimpson(tt.x, tt.f)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
