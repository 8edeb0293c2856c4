// Package wallfollow implements the wall-following steering controller: a
// two-beam lateral-offset estimator feeding a PID loop that steers toward a
// target distance from the left wall. It shares the scan frame model with
// the safety engine but is otherwise independent of the brake path and is
// not safety-critical.
package wallfollow

import (
	"fmt"
	"math"

	"github.com/banshee-data/safety.monitor/internal/safety"
	"github.com/banshee-data/safety.monitor/internal/scan"
)

// DefaultBeamSeparation is the nominal angle between the two wall beams,
// radians. Must stay inside (0, ~70 degrees) for the trigonometry to be
// well conditioned.
const DefaultBeamSeparation = math.Pi / 4

// Offset is one lateral-offset estimate against the left wall.
type Offset struct {
	Alpha     float64 `json:"alpha"`     // wall angle relative to heading, radians
	Wall      float64 `json:"wall"`      // current orthogonal distance to the wall, meters
	Projected float64 `json:"projected"` // distance projected lookahead meters ahead
}

// Estimator estimates the vehicle's lateral offset from the left wall using
// two beams: beam b orthogonally left of the vehicle (pi/2) and beam a
// rotated forward of it by the configured separation. Beam indices are
// resolved once from the sensor geometry; the separation is then corrected
// for index rounding so the trigonometry uses the true angle between the
// chosen beams.
type Estimator struct {
	aIdx, bIdx int
	theta      float64 // actual angular separation between beams a and b
	lookahead  float64 // meters ahead to project the offset
}

// NewEstimator resolves the beam indices for the given sensor layout.
// separation is the requested angle between the beams; lookahead is how far
// ahead of the vehicle the offset is projected.
func NewEstimator(lidar safety.SensorGeometry, separation, lookahead float64) (*Estimator, error) {
	if separation <= 0 || separation >= 70*math.Pi/180 {
		return nil, fmt.Errorf("beam separation %f out of range (0, 70deg)", separation)
	}
	if lookahead < 0 {
		return nil, fmt.Errorf("lookahead must not be negative, got %f", lookahead)
	}

	bIdx := int(math.Round((math.Pi/2 - lidar.AngleMin) / lidar.AngleIncrement))
	aIdx := int(math.Round((math.Pi/2 - separation - lidar.AngleMin) / lidar.AngleIncrement))
	if aIdx < 0 || bIdx >= lidar.Beams {
		return nil, fmt.Errorf("wall beams [%d, %d] outside sensor field of view (%d beams)", aIdx, bIdx, lidar.Beams)
	}
	if aIdx == bIdx {
		return nil, fmt.Errorf("beam separation %f below angular resolution %f", separation, lidar.AngleIncrement)
	}

	return &Estimator{
		aIdx:      aIdx,
		bIdx:      bIdx,
		theta:     lidar.AngleIncrement * float64(bIdx-aIdx),
		lookahead: lookahead,
	}, nil
}

// Theta returns the rounding-corrected angular separation between the beams.
func (e *Estimator) Theta() float64 { return e.theta }

// Estimate computes the lateral offset from one frame. A non-finite or
// non-positive reading on either beam invalidates the estimate for this
// frame; the previous steering command simply persists upstream.
func (e *Estimator) Estimate(f *scan.Frame) (Offset, error) {
	if n := f.Beams(); e.aIdx >= n || e.bIdx >= n {
		return Offset{}, fmt.Errorf("frame has %d beams, wall beams are [%d, %d]", n, e.aIdx, e.bIdx)
	}
	a := f.Ranges[e.aIdx]
	b := f.Ranges[e.bIdx]
	if !scan.ValidRange(a) || !scan.ValidRange(b) {
		return Offset{}, fmt.Errorf("invalid wall beam readings a=%f b=%f", a, b)
	}

	alpha := math.Atan((a*math.Cos(e.theta) - b) / (a * math.Sin(e.theta)))
	wall := b * math.Cos(alpha)
	return Offset{
		Alpha:     alpha,
		Wall:      wall,
		Projected: wall + e.lookahead*math.Sin(alpha),
	}, nil
}
