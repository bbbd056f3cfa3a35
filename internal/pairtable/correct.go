package pairtable

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ibi/internal/curve"
	"github.com/san-kum/ibi/internal/rdf"
)

// Correction is the outcome of one corrective update.
type Correction struct {
	Index     int
	Entry     Entry // corrected entry stored at Index
	Fresh     Entry // entry computed from the measured RDF, on entry 0's grid
	Reference LJ96
}

// Corrector applies the iterative update
//
//	df = fresh - table[0]
//	table[latest] = table[latest-1] - df
//
// where fresh is the entry computed from the latest measured RDF.
type Corrector struct {
	table       *Table
	fit         *Fitter
	curve       curve.Fitter
	reintegrate bool
	removeKinks bool
}

// CorrectorOption configures a Corrector.
type CorrectorOption func(*Corrector)

// WithReintegration controls whether the energy of a corrected entry is
// integrated from the corrected force. When disabled the entry keeps the
// energy of the fresh fit.
func WithReintegration(on bool) CorrectorOption {
	return func(c *Corrector) { c.reintegrate = on }
}

// WithKinkRemoval replaces isolated local extrema of df by the mean of their
// neighbours before the update.
func WithKinkRemoval(on bool) CorrectorOption {
	return func(c *Corrector) { c.removeKinks = on }
}

func NewCorrector(table *Table, fit *Fitter, c curve.Fitter, opts ...CorrectorOption) *Corrector {
	cr := &Corrector{table: table, fit: fit, curve: c, reintegrate: true}
	for _, o := range opts {
		o(cr)
	}
	return cr
}

func (c *Corrector) Table() *Table { return c.table }

// Seed computes entry 0 from the target RDF. The table must be empty.
func (c *Corrector) Seed(target rdf.Sample) (Result, error) {
	if n := c.table.Len(); n != 0 {
		return Result{}, fmt.Errorf("pairtable: seed on a table with %d entries", n)
	}
	res, err := c.fit.Compute(target)
	if err != nil {
		return Result{}, err
	}
	if _, err := c.table.Append(res.Entry); err != nil {
		return Result{}, err
	}
	logrus.Debugf("seeded pair table: %d points on [%.3f, %.3f]",
		res.Entry.Len(), res.Entry.Distance[0], res.Entry.Distance[res.Entry.Len()-1])
	return res, nil
}

// Correct appends an entry computed from measured and replaces it with the
// corrected entry. At least one entry must already exist. On error the table
// is left as it was.
func (c *Corrector) Correct(measured rdf.Sample) (Correction, error) {
	n := c.table.Len()
	if n == 0 {
		return Correction{}, fmt.Errorf("%w: correction needs entry 0", ErrNoEntry)
	}
	base, err := c.table.At(0)
	if err != nil {
		return Correction{}, err
	}
	prev, err := c.table.At(n - 1)
	if err != nil {
		return Correction{}, err
	}

	res, err := c.fit.Compute(measured)
	if err != nil {
		return Correction{}, err
	}
	fresh, err := c.onGrid(res.Entry, base.Distance)
	if err != nil {
		return Correction{}, err
	}

	df := make([]float64, base.Len())
	for i := range df {
		df[i] = fresh.Force[i] - base.Force[i]
	}
	if c.removeKinks {
		df = RemoveKinks(df)
	}

	corrected := Entry{
		Distance: base.Distance,
		Force:    make([]float64, base.Len()),
		Energy:   fresh.Energy,
	}
	for i := range df {
		corrected.Force[i] = prev.Force[i] - df[i]
	}
	if c.reintegrate {
		corrected.Energy, err = Integrate(corrected.Distance, corrected.Force)
		if err != nil {
			return Correction{}, err
		}
	}
	if err := corrected.Validate(); err != nil {
		return Correction{}, err
	}

	// Nothing is stored until the corrected entry is known to be valid.
	idx, err := c.table.Append(fresh)
	if err != nil {
		return Correction{}, err
	}
	if err := c.table.Replace(idx, corrected); err != nil {
		_ = c.table.Truncate(idx)
		return Correction{}, err
	}
	return Correction{Index: idx, Entry: corrected.Clone(), Fresh: fresh, Reference: res.Reference}, nil
}

// onGrid resamples e onto grid. Entries that already share the grid are
// returned unchanged.
func (c *Corrector) onGrid(e Entry, grid []float64) (Entry, error) {
	if sameGrid(e.Distance, grid) {
		return e, nil
	}
	force, err := curve.Resample(c.curve, e.Distance, e.Force, grid)
	if err != nil {
		return Entry{}, fmt.Errorf("resample force: %w", err)
	}
	energy, err := curve.Resample(c.curve, e.Distance, e.Energy, grid)
	if err != nil {
		return Entry{}, fmt.Errorf("resample energy: %w", err)
	}
	d := make([]float64, len(grid))
	copy(d, grid)
	return Entry{Distance: d, Force: force, Energy: energy}, nil
}

func sameGrid(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RemoveKinks returns a copy of df where every strict local extremum over
// its two neighbours is replaced by their mean.
func RemoveKinks(df []float64) []float64 {
	out := make([]float64, len(df))
	copy(out, df)
	for i := 1; i < len(df)-1; i++ {
		l, v, r := df[i-1], df[i], df[i+1]
		if (v > l && v > r) || (v < l && v < r) {
			out[i] = 0.5 * (l + r)
		}
	}
	return out
}
