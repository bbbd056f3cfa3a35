// Package compare measures how far a simulated RDF is from the target and
// plots both curves.
package compare

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/ibi/internal/curve"
	"github.com/san-kum/ibi/internal/rdf"
)

// ErrNoOverlap indicates RDFs whose r ranges do not overlap.
var ErrNoOverlap = errors.New("compare: RDF ranges do not overlap")

// Deviation returns the RMS difference between measured and reference g(r)
// over the reference points inside the measured range.
func Deviation(fitter curve.Fitter, reference, measured rdf.Sample) (float64, error) {
	if err := reference.Validate(); err != nil {
		return 0, fmt.Errorf("reference: %w", err)
	}
	if err := measured.Validate(); err != nil {
		return 0, fmt.Errorf("measured: %w", err)
	}
	c, err := fitter.Fit(measured.R, measured.G)
	if err != nil {
		return 0, err
	}

	lo, hi := measured.R[0], measured.R[measured.Len()-1]
	sum := 0.0
	n := 0
	for i, r := range reference.R {
		if r < lo || r > hi {
			continue
		}
		d := c.Value(r) - reference.G[i]
		sum += d * d
		n++
	}
	if n == 0 {
		return 0, ErrNoOverlap
	}
	return math.Sqrt(sum / float64(n)), nil
}

func line(s rdf.Sample, c color.Color, dashed bool) (*plotter.Line, error) {
	pts := make(plotter.XYs, s.Len())
	for i := range pts {
		pts[i].X = s.R[i]
		pts[i].Y = s.G[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.Color = c
	l.Width = vg.Points(1.5)
	if dashed {
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	}
	return l, nil
}

// Plot writes a PNG with the reference and measured RDFs. The format follows
// the extension of path.
func Plot(iteration int, reference, measured rdf.Sample, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("RDF, iteration %d", iteration)
	p.X.Label.Text = "r (Å)"
	p.Y.Label.Text = "g(r)"
	p.Add(plotter.NewGrid())

	ref, err := line(reference, color.RGBA{B: 200, A: 255}, false)
	if err != nil {
		return fmt.Errorf("reference line: %w", err)
	}
	meas, err := line(measured, color.RGBA{R: 200, A: 255}, true)
	if err != nil {
		return fmt.Errorf("measured line: %w", err)
	}
	p.Add(ref, meas)
	p.Legend.Add("target", ref)
	p.Legend.Add(fmt.Sprintf("cg-%02d", iteration), meas)
	p.Legend.Top = true

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// Comparator computes the deviation and writes the comparison plot.
type Comparator struct {
	Fitter curve.Fitter
}

func New(fitter curve.Fitter) *Comparator {
	return &Comparator{Fitter: fitter}
}

// Compare returns the RMS deviation of measured from reference and writes
// the plot to imagePath.
func (c *Comparator) Compare(iteration int, reference, measured rdf.Sample, imagePath string) (float64, error) {
	dev, err := Deviation(c.Fitter, reference, measured)
	if err != nil {
		return 0, err
	}
	if err := Plot(iteration, reference, measured, imagePath); err != nil {
		return dev, fmt.Errorf("plot %s: %w", imagePath, err)
	}
	return dev, nil
}
