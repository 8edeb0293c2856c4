package scan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtremes(t *testing.T) {
	f := &Frame{
		Ranges:         []float64{3.0, 0.4, math.NaN(), 7.2, 0},
		AngleMin:       -0.02,
		AngleMax:       0.02,
		AngleIncrement: 0.01,
	}
	nearest, farthest, ok := Extremes(f)
	require.True(t, ok)
	assert.InDelta(t, 0.4, nearest.Distance, 1e-12)
	assert.InDelta(t, -0.01, nearest.Angle, 1e-12)
	assert.InDelta(t, 7.2, farthest.Distance, 1e-12)
	assert.InDelta(t, 0.01, farthest.Angle, 1e-12)
}

func TestExtremesSingleValidBeam(t *testing.T) {
	f := &Frame{
		Ranges:         []float64{math.Inf(1), 1.5, -2},
		AngleMin:       0,
		AngleMax:       0.02,
		AngleIncrement: 0.01,
	}
	nearest, farthest, ok := Extremes(f)
	require.True(t, ok)
	assert.Equal(t, nearest, farthest)
	assert.InDelta(t, 1.5, nearest.Distance, 1e-12)
}

func TestExtremesNoValidBeams(t *testing.T) {
	f := &Frame{Ranges: []float64{math.NaN(), 0, -1}, AngleIncrement: 0.01, AngleMax: 0.02}
	_, _, ok := Extremes(f)
	assert.False(t, ok)
}
