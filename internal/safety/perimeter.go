// Package safety implements the collision-risk assessment and emergency
// braking engine: a per-beam vehicle perimeter model, a last-value forward
// velocity tracker, a time-to-collision evaluator, and the brake decision
// that ties them together.
package safety

import (
	"fmt"
	"math"

	"github.com/banshee-data/safety.monitor/internal/scan"
)

// VehicleGeometry describes the static footprint of the vehicle in its own
// frame. BaseLink is the longitudinal offset from the rear axle (base link)
// to the range sensor. Immutable after construction.
type VehicleGeometry struct {
	Width     float64 `json:"width"`     // meters
	Wheelbase float64 `json:"wheelbase"` // meters
	BaseLink  float64 `json:"base_link"` // meters, sensor offset from base link
}

// Validate checks that all dimensions are positive and that the sensor sits
// on the vehicle (base link offset within the wheelbase).
func (g VehicleGeometry) Validate() error {
	if g.Width <= 0 {
		return fmt.Errorf("vehicle width must be positive, got %f", g.Width)
	}
	if g.Wheelbase <= 0 {
		return fmt.Errorf("vehicle wheelbase must be positive, got %f", g.Wheelbase)
	}
	if g.BaseLink <= 0 {
		return fmt.Errorf("base link offset must be positive, got %f", g.BaseLink)
	}
	if g.BaseLink >= g.Wheelbase {
		return fmt.Errorf("base link offset %f must be less than wheelbase %f", g.BaseLink, g.Wheelbase)
	}
	return nil
}

// SensorGeometry describes the angular layout of the range sensor. It is
// derived once, from the first observed scan frame or from explicit
// configuration, and is immutable thereafter.
type SensorGeometry struct {
	Beams          int     `json:"beams"`
	AngleMin       float64 `json:"angle_min"`       // radians
	AngleMax       float64 `json:"angle_max"`       // radians
	AngleIncrement float64 `json:"angle_increment"` // radians
}

// SensorGeometryFromFrame derives the sensor layout from an observed frame.
func SensorGeometryFromFrame(f *scan.Frame) (SensorGeometry, error) {
	g := SensorGeometry{
		Beams:          f.Beams(),
		AngleMin:       f.AngleMin,
		AngleMax:       f.AngleMax,
		AngleIncrement: f.AngleIncrement,
	}
	if err := g.Validate(); err != nil {
		return SensorGeometry{}, err
	}
	return g, nil
}

// Validate checks the layout for internal consistency.
func (g SensorGeometry) Validate() error {
	if g.Beams <= 0 {
		return fmt.Errorf("sensor must have at least one beam, got %d", g.Beams)
	}
	if g.AngleIncrement <= 0 {
		return fmt.Errorf("angle increment must be positive, got %f", g.AngleIncrement)
	}
	if g.AngleMax <= g.AngleMin {
		return fmt.Errorf("angle range [%f, %f] is empty", g.AngleMin, g.AngleMax)
	}
	return nil
}

// Angle returns the bearing of beam i.
func (g SensorGeometry) Angle(i int) float64 {
	return g.AngleMin + float64(i)*g.AngleIncrement
}

// Quadrant identifies which quarter of the vehicle body a beam points into.
type Quadrant int

const (
	FrontRight Quadrant = iota
	FrontLeft
	RearLeft
	RearRight
)

func (q Quadrant) String() string {
	switch q {
	case FrontRight:
		return "front-right"
	case FrontLeft:
		return "front-left"
	case RearLeft:
		return "rear-left"
	case RearRight:
		return "rear-right"
	}
	return "unknown"
}

// NormalizeAngle wraps theta into the signed range (-pi, pi].
func NormalizeAngle(theta float64) float64 {
	t := math.Mod(theta, 2*math.Pi)
	if t <= -math.Pi {
		t += 2 * math.Pi
	} else if t > math.Pi {
		t -= 2 * math.Pi
	}
	return t
}

// ClassifyAngle maps a normalized angle to its quadrant. The half-open
// intervals cover (-pi, pi] exactly once: FrontLeft (0, pi/2),
// RearLeft [pi/2, pi], RearRight (-pi, -pi/2], FrontRight (-pi/2, 0].
// Zero is straight ahead; positive angles are to the left.
func ClassifyAngle(theta float64) Quadrant {
	switch {
	case theta > 0 && theta < math.Pi/2:
		return FrontLeft
	case theta >= math.Pi/2:
		return RearLeft
	case theta <= -math.Pi/2:
		return RearRight
	default:
		return FrontRight
	}
}

// PerimeterProfile holds one clearance distance per beam index: how close an
// obstacle along that beam may be before it touches the vehicle body.
// Read-only after construction; aligned with the SensorGeometry that built it.
type PerimeterProfile []float64

// BuildPerimeter computes the per-beam clearance profile from the vehicle
// footprint and the sensor layout. Pure function of its inputs; called once
// at startup and again only if the geometry changes.
//
// Each beam's clearance is the minimum of two projections: the lateral
// half-width of the body and the longitudinal extent (nose ahead of the
// sensor on the left half, tail behind it on the right half), each divided
// by the cosine of the beam's angle to the respective body face. The
// denominators are taken as absolute values so a projection is always a
// distance; at the exact quadrant boundaries one denominator degenerates
// toward zero and the resulting huge quotient simply loses the min to the
// other term, so no division guard is needed.
func BuildPerimeter(car VehicleGeometry, lidar SensorGeometry) PerimeterProfile {
	profile := make(PerimeterProfile, lidar.Beams)
	for i := range profile {
		profile[i] = clearanceAt(car, NormalizeAngle(lidar.Angle(i)))
	}
	return profile
}

func clearanceAt(car VehicleGeometry, theta float64) float64 {
	halfWidth := car.Width / 2
	nose := car.Wheelbase - car.BaseLink // forward extent ahead of the sensor
	tail := car.BaseLink                 // rearward extent behind the sensor

	switch ClassifyAngle(theta) {
	case FrontLeft:
		side := halfWidth / math.Abs(math.Cos(theta))
		long := nose / math.Abs(math.Cos(math.Pi/2-theta))
		return math.Min(side, long)
	case RearLeft:
		long := nose / math.Abs(math.Cos(theta-math.Pi/2))
		side := halfWidth / math.Abs(math.Cos(math.Pi-theta))
		return math.Min(side, long)
	case RearRight:
		side := halfWidth / math.Abs(math.Cos(math.Pi+theta))
		long := tail / math.Abs(math.Cos(-theta-math.Pi/2))
		return math.Min(side, long)
	default: // FrontRight
		long := tail / math.Abs(math.Cos(math.Pi/2-theta))
		side := halfWidth / math.Abs(math.Cos(-theta))
		return math.Min(side, long)
	}
}
