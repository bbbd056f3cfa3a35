package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ibi/internal/pairtable"
)

// Downsample picks n evenly spaced values of ys, always including the last.
func Downsample(ys []float64, n int) []float64 {
	if n <= 0 || len(ys) <= n {
		return ys
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = ys[i*(len(ys)-1)/(n-1)]
	}
	return out
}

// clip limits ys to [lo, hi] so the repulsive core does not flatten the
// rest of the chart.
func clip(ys []float64, lo, hi float64) []float64 {
	out := make([]float64, len(ys))
	for i, y := range ys {
		out[i] = max(lo, min(y, hi))
	}
	return out
}

// ChartOptions controls TablePlot.
type ChartOptions struct {
	Width  int
	Height int
	Clip   float64 // |y| limit, 0 for none
}

func (o ChartOptions) series(ys []float64) []float64 {
	ys = Downsample(ys, o.Width)
	if o.Clip > 0 {
		ys = clip(ys, -o.Clip, o.Clip)
	}
	return ys
}

// ForcePlot charts the force column of e.
func ForcePlot(e pairtable.Entry, o ChartOptions) string {
	return asciigraph.Plot(o.series(e.Force),
		asciigraph.Height(o.Height),
		asciigraph.Caption(fmt.Sprintf("force (kcal/mol/Å), r = %.2f .. %.2f Å", e.Distance[0], e.Distance[e.Len()-1])))
}

// EnergyPlot charts the energy column of e.
func EnergyPlot(e pairtable.Entry, o ChartOptions) string {
	return asciigraph.Plot(o.series(e.Energy),
		asciigraph.Height(o.Height),
		asciigraph.Caption(fmt.Sprintf("energy (kcal/mol), r = %.2f .. %.2f Å", e.Distance[0], e.Distance[e.Len()-1])))
}

// TablePlot renders both charts of e, one below the other.
func TablePlot(e pairtable.Entry, o ChartOptions) string {
	return GraphStyle.Render(ForcePlot(e, o)) + "\n" + GraphStyle.Render(EnergyPlot(e, o))
}
