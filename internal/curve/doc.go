// Package curve provides the interpolation capability used to resample and
// differentiate sampled functions.
//
//   - [Curve]: a smooth function fitted to (x, y) samples
//   - [Fitter]: builds a Curve from samples
//   - [Registry]: named fitters selectable from configuration
//
// # Example
//
//	fit, _ := curve.NewRegistry().Get("akima")
//	c, err := fit.Fit(r, e)
//	force := -c.Derivative(5.0)
//
// Values outside the sampled range are clamped to the nearest end sample.
package curve
