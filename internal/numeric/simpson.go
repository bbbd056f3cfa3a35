package numeric

// CumulativeSimpson returns the running integral of f over x. F[0] is zero,
// F[1] uses the trapezoid rule over the first interval and every later value
// extends F[i-2] by Simpson's rule over the pair of intervals ending at i.
//
// x must be strictly monotonic in either direction. Integrating over a
// descending x yields the integral taken from x[0] towards smaller values.
func CumulativeSimpson(x, f []float64) ([]float64, error) {
	if len(x) != len(f) {
		return nil, ErrLengthMismatch
	}
	if len(x) < 2 {
		return nil, ErrTooFewPoints
	}
	if !StrictlyMonotonic(x) {
		return nil, ErrNotMonotonic
	}

	F := make([]float64, len(f))
	F[1] = 0.5 * (f[0] + f[1]) * (x[1] - x[0])
	for i := 2; i < len(f); i++ {
		F[i] = F[i-2] + (f[i-2]+4.0*f[i-1]+f[i])*(x[i]-x[i-2])/6.0
	}
	return F, nil
}

// IntegrateFromEnd integrates f inward from the last sample so that the
// result is zero at x[len-1]. The returned slice is aligned with x.
func IntegrateFromEnd(x, f []float64) ([]float64, error) {
	rx := Reversed(x)
	rf := Reversed(f)
	F, err := CumulativeSimpson(rx, rf)
	if err != nil {
		return nil, err
	}
	return Reversed(F), nil
}

// StrictlyMonotonic reports whether x is strictly ascending or strictly
// descending.
func StrictlyMonotonic(x []float64) bool {
	if len(x) < 2 {
		return true
	}
	asc := x[1] > x[0]
	for i := 1; i < len(x); i++ {
		d := x[i] - x[i-1]
		if d == 0 || (d > 0) != asc {
			return false
		}
	}
	return true
}

// Reversed returns a reversed copy of s.
func Reversed(s []float64) []float64 {
	r := make([]float64, len(s))
	for i, v := range s {
		r[len(s)-1-i] = v
	}
	return r
}
