package wallfollow

import (
	"fmt"
	"math"

	"github.com/banshee-data/safety.monitor/internal/scan"
)

// PID is a textbook PID loop over the wall-offset error with a clamped
// integral term. Not goroutine safe; the controller drives it from the scan
// handler only.
type PID struct {
	Kp, Ki, Kd float64

	integralLimit float64 // absolute clamp on the accumulated integral
	integral      float64
	prevErr       float64
	primed        bool // true once a previous error exists for the D term
}

// NewPID creates a PID loop. integralLimit bounds the accumulated integral
// term; zero disables the clamp.
func NewPID(kp, ki, kd, integralLimit float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd, integralLimit: integralLimit}
}

// Update advances the loop with the current error and timestep and returns
// the control output. The derivative term is suppressed on the first sample.
func (p *PID) Update(err, dt float64) float64 {
	if dt <= 0 {
		return p.Kp * err
	}

	p.integral += err * dt
	if p.integralLimit > 0 {
		p.integral = math.Max(-p.integralLimit, math.Min(p.integralLimit, p.integral))
	}

	var deriv float64
	if p.primed {
		deriv = (err - p.prevErr) / dt
	}
	p.prevErr = err
	p.primed = true

	return p.Kp*err + p.Ki*p.integral + p.Kd*deriv
}

// Reset clears the accumulated state.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.primed = false
}

// Controller closes the loop: estimator output against a target wall
// distance, PID correction, clamped steering angle out.
type Controller struct {
	est      *Estimator
	pid      *PID
	target   float64 // desired distance from the left wall, meters
	maxSteer float64 // steering clamp, radians
}

// NewController wires an estimator and a PID loop to a target wall distance.
func NewController(est *Estimator, pid *PID, target, maxSteer float64) (*Controller, error) {
	if target <= 0 {
		return nil, fmt.Errorf("target wall distance must be positive, got %f", target)
	}
	if maxSteer <= 0 {
		return nil, fmt.Errorf("steering clamp must be positive, got %f", maxSteer)
	}
	return &Controller{est: est, pid: pid, target: target, maxSteer: maxSteer}, nil
}

// OnScan produces a steering command from one frame. dt is the time since
// the previous frame. A frame with unusable wall beams returns an error and
// leaves the loop state untouched; the caller keeps the previous command.
func (c *Controller) OnScan(f *scan.Frame, dt float64) (float64, error) {
	off, err := c.est.Estimate(f)
	if err != nil {
		return 0, err
	}

	// Positive error means we are closer to the wall than desired and
	// should steer right (negative angle, mirroring the sensor convention).
	e := c.target - off.Projected
	steer := -c.pid.Update(e, dt)
	return math.Max(-c.maxSteer, math.Min(c.maxSteer, steer)), nil
}
