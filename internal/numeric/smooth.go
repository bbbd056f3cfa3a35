package numeric

// MovingAverage applies a centered moving average of half-width w, passes
// times. The first and last w samples are left untouched on every pass.
// The input is not modified.
func MovingAverage(y []float64, w, passes int) []float64 {
	out := make([]float64, len(y))
	copy(out, y)
	if w <= 0 || len(y) <= 2*w {
		return out
	}

	prev := make([]float64, len(y))
	n := float64(2*w + 1)
	for p := 0; p < passes; p++ {
		copy(prev, out)
		for i := w; i < len(y)-w; i++ {
			sum := 0.0
			for j := i - w; j <= i+w; j++ {
				sum += prev[j]
			}
			out[i] = sum / n
		}
	}
	return out
}
