package pairtable

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ibi/internal/curve"
	"github.com/san-kum/ibi/internal/numeric"
	"github.com/san-kum/ibi/internal/rdf"
)

// Boltzmann is the Boltzmann constant in kcal/mol/K.
const Boltzmann = 0.0019872041

const tailEpsilon = 1e-20

// Options controls the RDF to pair table conversion.
type Options struct {
	Temperature      float64 // K
	FitPoints        int     // uniform grid used for differentiation and smoothing
	TablePoints      int     // final table length
	MinDistance      float64 // Å, smallest tabulated distance
	ContactThreshold float64 // g(r) marking the start of the reliable region
	SmoothWidth      int
	SmoothPasses     int
	Guess            LJ96
}

func DefaultOptions(temperature float64) Options {
	return Options{
		Temperature:      temperature,
		FitPoints:        500,
		TablePoints:      1000,
		MinDistance:      2.0,
		ContactThreshold: 0.25,
		SmoothWidth:      1,
		SmoothPasses:     2,
		Guess:            DefaultGuess,
	}
}

func (o Options) validate() error {
	if o.Temperature <= 0 {
		return fmt.Errorf("pairtable: temperature must be positive, got %f", o.Temperature)
	}
	if o.FitPoints < 2 || o.TablePoints < 2 {
		return fmt.Errorf("pairtable: fit and table points must be at least 2")
	}
	if o.MinDistance <= 0 {
		return fmt.Errorf("pairtable: min distance must be positive, got %f", o.MinDistance)
	}
	return nil
}

// Result is one computed entry together with the fitted reference law.
type Result struct {
	Entry     Entry
	Reference LJ96
}

// Fitter converts RDF samples into pair table entries.
type Fitter struct {
	opts  Options
	curve curve.Fitter
}

func NewFitter(opts Options, c curve.Fitter) *Fitter {
	return &Fitter{opts: opts, curve: c}
}

func (f *Fitter) Options() Options { return f.opts }

// BoltzmannInvert drops zero densities, discards the points before the first
// g(r) above threshold and returns r with e(r) = -kB T ln g(r).
func BoltzmannInvert(s rdf.Sample, temperature, threshold float64) ([]float64, []float64, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	pos := s.Positive()
	if pos.Len() < 2 {
		return nil, nil, ErrInsufficientData
	}

	i0 := -1
	for i, g := range pos.G {
		if g > threshold {
			i0 = i
			break
		}
	}
	if i0 < 0 {
		return nil, nil, fmt.Errorf("%w: no g(r) above %g", ErrContactNotResolved, threshold)
	}

	r := pos.R[i0:]
	e := make([]float64, len(r))
	for i, g := range pos.G[i0:] {
		e[i] = -Boltzmann * temperature * math.Log(g)
	}
	if len(r) < 2 {
		return nil, nil, fmt.Errorf("%w: only one point beyond the contact region", ErrInsufficientData)
	}
	return r, e, nil
}

// Compute derives a force and energy table from an RDF.
func (f *Fitter) Compute(s rdf.Sample) (Result, error) {
	if err := f.opts.validate(); err != nil {
		return Result{}, err
	}
	r, e, err := BoltzmannInvert(s, f.opts.Temperature, f.opts.ContactThreshold)
	if err != nil {
		return Result{}, err
	}

	rr, ff, err := f.rawForce(r, e)
	if err != nil {
		return Result{}, err
	}

	// Subtract the reference law, smooth the residual and add it back.
	ref, err := FitLJ96(rr, ff, f.opts.Guess)
	if err != nil {
		return Result{}, err
	}
	logrus.Debugf("reference fit: sigma=%.4f epsilon=%.6f", ref.Sigma, ref.Epsilon)

	resid := make([]float64, len(ff))
	for i := range ff {
		resid[i] = ff[i] - ref.Force(rr[i])
	}
	resid = numeric.MovingAverage(resid, f.opts.SmoothWidth, f.opts.SmoothPasses)
	for i := range ff {
		ff[i] = resid[i] + ref.Force(rr[i])
	}

	rr, ff = f.padShortRange(rr, ff, ref)
	dampTail(rr, ff)

	grid := numeric.Linspace(f.opts.MinDistance, rr[len(rr)-1], f.opts.TablePoints)
	if grid[0] >= grid[len(grid)-1] {
		return Result{}, fmt.Errorf("pairtable: min distance %g is beyond the RDF range %g", f.opts.MinDistance, rr[len(rr)-1])
	}
	force, err := curve.Resample(f.curve, rr, ff, grid)
	if err != nil {
		return Result{}, err
	}

	energy, err := Integrate(grid, force)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Entry:     Entry{Distance: grid, Force: force, Energy: energy},
		Reference: ref,
	}, nil
}

// rawForce resamples e onto a uniform grid and returns -de/dr there.
func (f *Fitter) rawForce(r, e []float64) ([]float64, []float64, error) {
	c, err := f.curve.Fit(r, e)
	if err != nil {
		return nil, nil, err
	}
	rr := numeric.Linspace(r[0], r[len(r)-1], f.opts.FitPoints)
	ff := make([]float64, len(rr))
	for i, x := range rr {
		ff[i] = -c.Derivative(x)
	}
	return rr, ff, nil
}

// padShortRange extends the curve down to MinDistance with the reference
// law, shifted to meet the computed force at the first sample. The engine
// aborts when a pair distance falls below the table minimum.
func (f *Fitter) padShortRange(rr, ff []float64, ref LJ96) ([]float64, []float64) {
	dr := rr[1] - rr[0]
	offset := ff[0] - ref.Force(rr[0])

	var rpad []float64
	for x := rr[0] - dr; x > f.opts.MinDistance-dr; x -= dr {
		rpad = append(rpad, x)
	}
	if len(rpad) == 0 {
		return rr, ff
	}

	n := len(rpad)
	r := make([]float64, 0, n+len(rr))
	out := make([]float64, 0, n+len(ff))
	for i := n - 1; i >= 0; i-- {
		r = append(r, rpad[i])
		out = append(out, ref.Force(rpad[i])+offset)
	}
	return append(r, rr...), append(out, ff...)
}

// dampTail removes a 1/r term so the force vanishes at the cutoff and then
// applies the envelope exp(-1/(rc - r)), in place.
func dampTail(r, f []float64) {
	last := len(r) - 1
	rc := r[last]
	c := f[last] * rc
	for i := range f {
		f[i] -= c / r[i]
		f[i] *= math.Exp(-1.0 / (rc - r[i] + tailEpsilon))
	}
}

// Integrate returns the energy of a force table, integrating inward from the
// cutoff and shifting so the energy at the cutoff is zero.
func Integrate(r, force []float64) ([]float64, error) {
	F, err := numeric.IntegrateFromEnd(r, force)
	if err != nil {
		return nil, err
	}
	energy := make([]float64, len(F))
	last := F[len(F)-1]
	for i := range F {
		energy[i] = -(F[i] - last)
	}
	return energy, nil
}
