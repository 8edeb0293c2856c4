package safety

import (
	"fmt"
	"math"

	"github.com/banshee-data/safety.monitor/internal/scan"
)

// BeamTTC is the projected time until the obstacle along one beam reaches
// the vehicle body, assuming constant closing velocity.
type BeamTTC struct {
	Beam  int     `json:"beam"`
	Angle float64 `json:"angle"` // radians
	Range float64 `json:"range"` // meters
	TTC   float64 `json:"ttc"`   // seconds
}

// GeometryMismatchError reports a scan frame whose beam count disagrees with
// the cached perimeter profile. The frame is dropped; steady-state operation
// continues.
type GeometryMismatchError struct {
	Want int // beams in the perimeter profile
	Got  int // beams in the offending frame
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("scan frame has %d beams, perimeter profile has %d", e.Got, e.Want)
}

// Evaluate computes per-beam time-to-collision estimates for one frame.
//
// Beams whose closing rate speed*cos(theta) is not positive are skipped: the
// obstacle along that ray is not approaching, so it cannot trigger a brake.
// Beams with non-finite or non-positive range readings are sensor faults and
// are likewise excluded rather than letting NaN or Inf reach the decision.
// A beam-count mismatch fails the whole frame with no partial output.
func Evaluate(frame *scan.Frame, perim PerimeterProfile, speed float64) ([]BeamTTC, error) {
	if frame.Beams() != len(perim) {
		return nil, &GeometryMismatchError{Want: len(perim), Got: frame.Beams()}
	}

	var out []BeamTTC
	for i, r := range frame.Ranges {
		if !scan.ValidRange(r) {
			continue
		}
		theta := frame.Angle(i)
		rhat := speed * math.Cos(theta)
		if rhat <= 0 {
			continue
		}
		out = append(out, BeamTTC{
			Beam:  i,
			Angle: theta,
			Range: r,
			TTC:   (r - perim[i]) / rhat,
		})
	}
	return out, nil
}
