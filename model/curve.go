package model

import (
	"gonum.org/v1/gonum/interp"

	carbonmeter "github.com/greenops/carbonmeter"
	"github.com/greenops/carbonmeter/internal/must"
)

// Curve is the piecewise-linear interpolation of CPU utilization
// percent to TDP power ratio. Control points are configuration; the
// default points come from the Teads EC2 power measurement study.
// Immutable once built, safe for concurrent readers.
type Curve struct {
	xs        []float64
	ys        []float64
	predictor interp.PiecewiseLinear
}

// NewCurve fits a curve to the given control points. The x values must
// be strictly increasing, start at 0 and hold at least two points.
func NewCurve(xs, ys []float64) (*Curve, error) {
	if len(xs) != len(ys) {
		return nil, carbonmeter.Configf("curve needs as many ratios as utilization points, got %d and %d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, carbonmeter.Configf("curve needs at least two control points")
	}
	if xs[0] != 0 {
		return nil, carbonmeter.Configf("curve must start at utilization 0, starts at %g", xs[0])
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, carbonmeter.Configf("curve utilization points must be strictly increasing")
		}
	}

	curve := &Curve{xs: xs, ys: ys}
	if err := curve.predictor.Fit(xs, ys); err != nil {
		return nil, carbonmeter.Configf("failed to fit utilization curve: %s", err)
	}
	return curve, nil
}

// DefaultCurve returns the Teads curve (0->0.12, 10->0.32, 50->0.75,
// 100->1.02).
func DefaultCurve() *Curve {
	curve, err := NewCurve(
		[]float64{0, 10, 50, 100},
		[]float64{0.12, 0.32, 0.75, 1.02},
	)
	must.NoError(err)
	return curve
}

// Ratio interpolates the TDP ratio for a utilization percentage.
// Values outside the curve domain clamp to the boundary ratio, there
// is no extrapolation.
func (c *Curve) Ratio(utilizationPct float64) float64 {
	clamped := min(max(utilizationPct, c.xs[0]), c.xs[len(c.xs)-1])
	return c.predictor.Predict(clamped)
}
