package pairtable

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// LJ96 is the 9-6 Lennard-Jones reference force law
// F(r) = epsilon * (18 sigma^9 / r^10 - 18 sigma^6 / r^7).
type LJ96 struct {
	Sigma   float64
	Epsilon float64
}

// DefaultGuess is the starting point of the reference fit.
var DefaultGuess = LJ96{Sigma: 5.0, Epsilon: 0.01}

func (p LJ96) Force(r float64) float64 {
	s3 := p.Sigma * p.Sigma * p.Sigma
	s6 := s3 * s3
	return p.Epsilon * (18.0*s6*s3/math.Pow(r, 10) - 18.0*s6/math.Pow(r, 7))
}

// partials returns dF/dsigma and dF/depsilon at r.
func (p LJ96) partials(r float64) (float64, float64) {
	s := p.Sigma
	r7 := math.Pow(r, 7)
	r10 := math.Pow(r, 10)
	dEps := 18.0*math.Pow(s, 9)/r10 - 18.0*math.Pow(s, 6)/r7
	dSigma := p.Epsilon * (162.0*math.Pow(s, 8)/r10 - 108.0*math.Pow(s, 5)/r7)
	return dSigma, dEps
}

func (p LJ96) valid() bool {
	return !math.IsNaN(p.Sigma) && !math.IsInf(p.Sigma, 0) && !math.IsNaN(p.Epsilon) && !math.IsInf(p.Epsilon, 0)
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionThreshold, optimize.FunctionConvergence,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

// FitLJ96 fits the reference force law to (r, f) by nonlinear least squares
// starting from guess. BFGS with the analytic gradient is tried first and
// Nelder-Mead second; an error wrapping ErrFitNotConverged is returned when
// neither converges.
func FitLJ96(r, f []float64, guess LJ96) (LJ96, error) {
	if len(r) != len(f) || len(r) < 2 {
		return guess, ErrInsufficientData
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			p := LJ96{Sigma: x[0], Epsilon: x[1]}
			sum := 0.0
			for i := range r {
				d := f[i] - p.Force(r[i])
				sum += d * d
			}
			return sum
		},
		Grad: func(grad, x []float64) {
			p := LJ96{Sigma: x[0], Epsilon: x[1]}
			grad[0], grad[1] = 0, 0
			for i := range r {
				d := f[i] - p.Force(r[i])
				ds, de := p.partials(r[i])
				grad[0] -= 2 * d * ds
				grad[1] -= 2 * d * de
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   2000,
		GradientThreshold: 1e-12,
	}

	x0 := []float64{guess.Sigma, guess.Epsilon}
	last := &FitError{Params: guess, Wrapped: ErrFitNotConverged}
	for _, method := range []optimize.Method{&optimize.BFGS{}, &optimize.NelderMead{}} {
		result, err := optimize.Minimize(problem, x0, settings, method)
		if result == nil {
			last.Status = optimize.Failure
			if err != nil {
				last.Wrapped = errors.Join(ErrFitNotConverged, err)
			}
			continue
		}
		p := LJ96{Sigma: result.X[0], Epsilon: result.X[1]}
		if err == nil && converged(result.Status) && p.valid() {
			return p, nil
		}
		params := last.Params
		if result.Status != optimize.Failure && p.valid() {
			params = p
		}
		last = &FitError{Status: result.Status, Params: params, Wrapped: ErrFitNotConverged}
		if err != nil {
			last.Wrapped = errors.Join(ErrFitNotConverged, err)
		}
	}
	return guess, last
}
