package curve

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// ErrTooFewSamples indicates a fit requested with fewer than two samples.
var ErrTooFewSamples = errors.New("curve: at least two samples required")

// Curve is a smooth function of one variable.
type Curve interface {
	Value(x float64) float64
	Derivative(x float64) float64
}

// Fitter builds a Curve through the given samples. xs must be strictly
// ascending.
type Fitter interface {
	Fit(xs, ys []float64) (Curve, error)
}

type predictor interface {
	Fit(xs, ys []float64) error
	Predict(x float64) float64
	PredictDerivative(x float64) float64
}

type gonumCurve struct {
	p predictor
}

func (c gonumCurve) Value(x float64) float64      { return c.p.Predict(x) }
func (c gonumCurve) Derivative(x float64) float64 { return c.p.PredictDerivative(x) }

// SplineFitter adapts a gonum interp spline to the Fitter interface.
type SplineFitter struct {
	name string
	make func() predictor
}

func (f SplineFitter) Name() string { return f.name }

func (f SplineFitter) Fit(xs, ys []float64) (Curve, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("curve: %s: %d x samples for %d y samples", f.name, len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, ErrTooFewSamples
	}
	p := f.make()
	if err := p.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("curve: %s fit: %w", f.name, err)
	}
	return gonumCurve{p: p}, nil
}

// NewAkima returns a fitter producing Akima splines, which do not overshoot
// around isolated noisy samples.
func NewAkima() SplineFitter {
	return SplineFitter{name: "akima", make: func() predictor { return &interp.AkimaSpline{} }}
}

// NewFritschButland returns a fitter producing monotone piecewise cubics.
func NewFritschButland() SplineFitter {
	return SplineFitter{name: "fritsch-butland", make: func() predictor { return &interp.FritschButland{} }}
}

// NewNaturalCubic returns a fitter producing natural cubic splines.
func NewNaturalCubic() SplineFitter {
	return SplineFitter{name: "natural", make: func() predictor { return &interp.NaturalCubic{} }}
}

// Resample fits ys over xs and evaluates the fit on grid.
func Resample(fitter Fitter, xs, ys, grid []float64) ([]float64, error) {
	c, err := fitter.Fit(xs, ys)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = c.Value(x)
	}
	return out, nil
}
