// Package scansource receives range-scan frames over UDP. Each datagram is
// one JSON-encoded frame from the sensor bridge; the listener parses it and
// hands the frame to a callback.
package scansource

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/safety.monitor/internal/scan"
)

var nan = math.NaN()

// frameDatagram is the wire shape of one scan frame. Ranges may contain
// nulls for dropped beams; they decode to NaN so downstream invalid-beam
// handling applies uniformly.
type frameDatagram struct {
	AngleMin       float64    `json:"angle_min"`
	AngleMax       float64    `json:"angle_max"`
	AngleIncrement float64    `json:"angle_increment"`
	Ranges         []*float64 `json:"ranges"`
}

// ParseFrame decodes one datagram into a scan frame.
func ParseFrame(data []byte, stamp time.Time) (*scan.Frame, error) {
	var d frameDatagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan datagram: %w", err)
	}
	if len(d.Ranges) == 0 {
		return nil, fmt.Errorf("scan datagram has no ranges")
	}
	if d.AngleIncrement <= 0 {
		return nil, fmt.Errorf("scan datagram has non-positive angle increment %f", d.AngleIncrement)
	}

	ranges := make([]float64, len(d.Ranges))
	for i, r := range d.Ranges {
		if r == nil {
			ranges[i] = nan
			continue
		}
		ranges[i] = *r
	}

	return &scan.Frame{
		Ranges:         ranges,
		AngleMin:       d.AngleMin,
		AngleMax:       d.AngleMax,
		AngleIncrement: d.AngleIncrement,
		Stamp:          stamp,
	}, nil
}
