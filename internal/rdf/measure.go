package rdf

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Range is a histogram range (min, max, bin width).
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
	Bin float64 `yaml:"bin"`
}

func (r Range) Bins() int {
	if r.Bin <= 0 || r.Max <= r.Min {
		return 0
	}
	return int(math.Round((r.Max - r.Min) / r.Bin))
}

// Centers returns the midpoint of every bin.
func (r Range) Centers() []float64 {
	n := r.Bins()
	c := make([]float64, n)
	for i := range c {
		c[i] = r.Min + (float64(i)+0.5)*r.Bin
	}
	return c
}

func (r Range) index(v float64) int {
	if v < r.Min || v >= r.Max {
		return -1
	}
	i := int((v - r.Min) / r.Bin)
	if i >= r.Bins() {
		return -1
	}
	return i
}

func (r Range) Validate() error {
	if r.Bins() == 0 {
		return fmt.Errorf("invalid range (%g, %g, %g)", r.Min, r.Max, r.Bin)
	}
	return nil
}

// Request describes one RDF measurement on a simulated trajectory.
type Request struct {
	DataFile   string
	Trajectory string
	Tag        string
	OutDir     string
	Pair       Range
	Bond       Range
	Angle      Range
}

// Result holds the measured distributions.
type Result struct {
	Pair   Sample
	Bond   Sample
	Angle  Sample
	Frames int
}

// Measurer computes distributions from a LAMMPS data file and trajectory.
type Measurer struct{}

func NewMeasurer() *Measurer { return &Measurer{} }

// Measure reads the trajectory, writes <tag>.rdf, <tag>.bond and <tag>.angle
// into OutDir and returns the pair RDF over non-bonded pairs.
func (m *Measurer) Measure(ctx context.Context, req Request) (Sample, error) {
	res, err := m.MeasureAll(ctx, req)
	if err != nil {
		return Sample{}, err
	}
	return res.Pair, nil
}

func (m *Measurer) MeasureAll(ctx context.Context, req Request) (*Result, error) {
	for name, r := range map[string]Range{"pair": req.Pair, "bond": req.Bond, "angle": req.Angle} {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%s %w", name, err)
		}
	}

	top, err := ReadTopologyFile(req.DataFile)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(req.Trajectory)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	acc := newAccumulator(req, top)
	tr := NewTrajectoryReader(f)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		frame, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req.Trajectory, err)
		}
		acc.add(frame)
	}
	if acc.frames == 0 {
		return nil, fmt.Errorf("%w: %s has no frames", ErrEmpty, req.Trajectory)
	}

	res := acc.result()
	if req.OutDir != "" && req.Tag != "" {
		for ext, s := range map[string]Sample{".rdf": res.Pair, ".bond": res.Bond, ".angle": res.Angle} {
			if err := WriteFile(filepath.Join(req.OutDir, req.Tag+ext), s); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

type accumulator struct {
	req    Request
	bonded map[pairKey]bool
	bonds  [][2]int
	angles [][3]int

	pair  []float64
	bond  []float64
	angle []float64

	norm   []float64 // ideal-gas pair counts per bin, summed over frames
	frames int
}

func newAccumulator(req Request, top *Topology) *accumulator {
	return &accumulator{
		req:    req,
		bonded: top.bondSet(),
		bonds:  top.Bonds,
		angles: top.angles(),
		pair:   make([]float64, req.Pair.Bins()),
		bond:   make([]float64, req.Bond.Bins()),
		angle:  make([]float64, req.Angle.Bins()),
		norm:   make([]float64, req.Pair.Bins()),
	}
}

func minImage(d [3]float64, l [3]float64) [3]float64 {
	for k := 0; k < 3; k++ {
		if l[k] <= 0 {
			continue
		}
		d[k] -= l[k] * math.Round(d[k]/l[k])
	}
	return d
}

func norm3(d [3]float64) float64 {
	return math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
}

func (a *accumulator) add(f *Frame) {
	l := f.Lengths()
	index := make(map[int]int, len(f.IDs))
	for i, id := range f.IDs {
		index[id] = i
	}

	delta := func(i, j int) [3]float64 {
		var d [3]float64
		for k := 0; k < 3; k++ {
			d[k] = f.Pos[j][k] - f.Pos[i][k]
		}
		return minImage(d, l)
	}

	n := len(f.IDs)
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if a.bonded[newPairKey(f.IDs[i], f.IDs[j])] {
				continue
			}
			pairs++
			if b := a.req.Pair.index(norm3(delta(i, j))); b >= 0 {
				a.pair[b]++
			}
		}
	}

	density := float64(pairs) / f.Volume()
	for b := range a.norm {
		r1 := a.req.Pair.Min + float64(b)*a.req.Pair.Bin
		r2 := r1 + a.req.Pair.Bin
		a.norm[b] += density * 4.0 / 3.0 * math.Pi * (r2*r2*r2 - r1*r1*r1)
	}

	for _, bd := range a.bonds {
		i, ok1 := index[bd[0]]
		j, ok2 := index[bd[1]]
		if !ok1 || !ok2 {
			continue
		}
		if b := a.req.Bond.index(norm3(delta(i, j))); b >= 0 {
			a.bond[b]++
		}
	}

	for _, ang := range a.angles {
		i, ok1 := index[ang[0]]
		c, ok2 := index[ang[1]]
		j, ok3 := index[ang[2]]
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		u, v := delta(c, i), delta(c, j)
		nu, nv := norm3(u), norm3(v)
		if nu == 0 || nv == 0 {
			continue
		}
		cos := (u[0]*v[0] + u[1]*v[1] + u[2]*v[2]) / (nu * nv)
		cos = math.Max(-1, math.Min(1, cos))
		if b := a.req.Angle.index(math.Acos(cos) * 180 / math.Pi); b >= 0 {
			a.angle[b]++
		}
	}

	a.frames++
}

func unitArea(h []float64, bin float64) []float64 {
	out := make([]float64, len(h))
	sum := 0.0
	for _, v := range h {
		sum += v
	}
	if sum == 0 {
		return out
	}
	for i, v := range h {
		out[i] = v / (sum * bin)
	}
	return out
}

func (a *accumulator) result() *Result {
	g := make([]float64, len(a.pair))
	for i := range g {
		if a.norm[i] > 0 {
			g[i] = a.pair[i] / a.norm[i]
		}
	}
	return &Result{
		Pair:   Sample{R: a.req.Pair.Centers(), G: g},
		Bond:   Sample{R: a.req.Bond.Centers(), G: unitArea(a.bond, a.req.Bond.Bin)},
		Angle:  Sample{R: a.req.Angle.Centers(), G: unitArea(a.angle, a.req.Angle.Bin)},
		Frames: a.frames,
	}
}
