package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCurveRatio(t *testing.T) {
	curve := DefaultCurve()

	assert.InDelta(t, 0.12, curve.Ratio(0), 1e-9)
	assert.InDelta(t, 0.32, curve.Ratio(10), 1e-9)
	assert.InDelta(t, 0.75, curve.Ratio(50), 1e-9)
	assert.InDelta(t, 1.02, curve.Ratio(100), 1e-9)

	// linear between control points
	assert.InDelta(t, 0.535, curve.Ratio(30), 1e-9)
	assert.InDelta(t, 0.22, curve.Ratio(5), 1e-9)
}

func TestCurveClampsOutOfDomain(t *testing.T) {
	curve := DefaultCurve()

	assert.InDelta(t, 0.12, curve.Ratio(-40), 1e-9)
	assert.InDelta(t, 1.02, curve.Ratio(250), 1e-9)
}

func TestNewCurveRejectsMalformedPoints(t *testing.T) {
	_, err := NewCurve([]float64{0, 50}, []float64{0.1})
	assert.Error(t, err)

	_, err = NewCurve([]float64{0}, []float64{0.1})
	assert.Error(t, err)

	_, err = NewCurve([]float64{10, 50}, []float64{0.1, 0.5})
	assert.Error(t, err)

	_, err = NewCurve([]float64{0, 50, 50}, []float64{0.1, 0.5, 0.6}) // not strictly increasing
	assert.Error(t, err)

	_, err = NewCurve([]float64{0, 100}, []float64{0.1, 1.0})
	assert.NoError(t, err)
}
