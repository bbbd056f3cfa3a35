package rdf

import "fmt"

// Sample is a radial distribution function: g(r) at strictly ascending r.
type Sample struct {
	R []float64
	G []float64
}

func (s Sample) Len() int { return len(s.R) }

func (s Sample) Clone() Sample {
	c := Sample{R: make([]float64, len(s.R)), G: make([]float64, len(s.G))}
	copy(c.R, s.R)
	copy(c.G, s.G)
	return c
}

// Validate checks the shape invariants of a sample.
func (s Sample) Validate() error {
	if len(s.R) == 0 {
		return ErrEmpty
	}
	if len(s.R) != len(s.G) {
		return fmt.Errorf("%w: %d distances for %d densities", ErrMalformed, len(s.R), len(s.G))
	}
	for i := range s.R {
		if s.G[i] < 0 {
			return fmt.Errorf("%w: negative g(r) %f at r=%f", ErrMalformed, s.G[i], s.R[i])
		}
		if i > 0 && s.R[i] <= s.R[i-1] {
			return fmt.Errorf("%w: r not ascending at index %d", ErrMalformed, i)
		}
	}
	return nil
}

// Positive returns the sample restricted to points with g(r) > 0.
func (s Sample) Positive() Sample {
	out := Sample{R: make([]float64, 0, len(s.R)), G: make([]float64, 0, len(s.G))}
	for i := range s.R {
		if s.G[i] > 0 {
			out.R = append(out.R, s.R[i])
			out.G = append(out.G, s.G[i])
		}
	}
	return out
}

// Average returns the mean g(r) of samples that share one r grid.
func Average(samples ...Sample) (Sample, error) {
	if len(samples) == 0 {
		return Sample{}, ErrEmpty
	}
	base := samples[0]
	if err := base.Validate(); err != nil {
		return Sample{}, err
	}

	out := Sample{R: make([]float64, base.Len()), G: make([]float64, base.Len())}
	copy(out.R, base.R)
	for k, s := range samples {
		if s.Len() != base.Len() {
			return Sample{}, fmt.Errorf("%w: sample %d has %d points, expected %d", ErrGridMismatch, k, s.Len(), base.Len())
		}
		for i := range s.R {
			if diff := s.R[i] - base.R[i]; diff > 1e-9 || diff < -1e-9 {
				return Sample{}, fmt.Errorf("%w: sample %d differs at r=%f", ErrGridMismatch, k, base.R[i])
			}
			out.G[i] += s.G[i]
		}
	}
	n := float64(len(samples))
	for i := range out.G {
		out.G[i] /= n
	}
	return out, nil
}
