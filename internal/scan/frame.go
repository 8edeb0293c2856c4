// Package scan defines the range-scan frame model shared by the safety
// engine, the wall follower, and the transport adapters.
package scan

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Frame is one complete sweep of the range sensor: an ordered sequence of
// range readings plus the angular metadata used to produce it. Frames are
// transient; each one is created by a transport adapter, consumed by exactly
// one evaluation cycle, and discarded.
type Frame struct {
	Ranges         []float64 // meters; may contain non-finite or non-positive readings
	AngleMin       float64   // radians, angle of beam 0
	AngleMax       float64   // radians, angle of the last beam
	AngleIncrement float64   // radians between adjacent beams
	Stamp          time.Time // ingest wall time
}

// Beams returns the number of range readings in the frame.
func (f *Frame) Beams() int {
	return len(f.Ranges)
}

// Angle returns the bearing of beam i relative to the vehicle's forward
// axis (positive left, matching the sensor's angular convention).
func (f *Frame) Angle(i int) float64 {
	return f.AngleMin + float64(i)*f.AngleIncrement
}

// ValidRange reports whether r is a usable measurement. Non-finite readings
// are sensor faults or out-of-range returns; non-positive readings are
// physically meaningless for a beam.
func ValidRange(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r > 0
}

// Stats summarises the usable readings of a frame for status reporting.
type Stats struct {
	Total  int     `json:"total_beams"`
	Valid  int     `json:"valid_beams"`
	Min    float64 `json:"min_range"`
	Max    float64 `json:"max_range"`
	Mean   float64 `json:"mean_range"`
	StdDev float64 `json:"stddev_range"`
}

// ComputeStats computes range statistics over the valid beams of a frame.
// Min/Max/Mean/StdDev are zero when the frame has no valid readings.
func ComputeStats(f *Frame) Stats {
	s := Stats{Total: f.Beams()}

	valid := make([]float64, 0, len(f.Ranges))
	for _, r := range f.Ranges {
		if ValidRange(r) {
			valid = append(valid, r)
		}
	}
	s.Valid = len(valid)
	if len(valid) == 0 {
		return s
	}

	s.Min = valid[0]
	s.Max = valid[0]
	for _, r := range valid[1:] {
		if r < s.Min {
			s.Min = r
		}
		if r > s.Max {
			s.Max = r
		}
	}

	mean, std := stat.MeanStdDev(valid, nil)
	s.Mean = mean
	if !math.IsNaN(std) { // single-sample frames have undefined stddev
		s.StdDev = std
	}
	return s
}
