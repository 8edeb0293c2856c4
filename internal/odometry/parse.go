package odometry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sample is one odometry report: the device uptime and the instantaneous
// forward speed, sign-consistent with the vehicle's forward axis.
type Sample struct {
	Uptime float64 `json:"uptime"` // seconds since device boot
	Speed  float64 `json:"speed"`  // m/s, negative when reversing
}

// Parse decodes one odometry line. Two wire shapes are accepted: the CSV
// form "O,<uptime_s>,<speed_mps>" emitted by the firmware in streaming mode,
// and a JSON object {"uptime":..., "speed":...} emitted in command mode.
func Parse(line string) (Sample, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Sample{}, fmt.Errorf("empty odometry line")
	}

	if strings.HasPrefix(line, "{") {
		var s Sample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return Sample{}, fmt.Errorf("failed to unmarshal odometry JSON: %w", err)
		}
		if !finite(s.Speed) {
			return Sample{}, fmt.Errorf("non-finite speed %f", s.Speed)
		}
		return s, nil
	}

	segments := strings.Split(line, ",")
	if len(segments) != 3 || segments[0] != "O" {
		return Sample{}, fmt.Errorf("malformed odometry line %q", line)
	}

	uptime, err := strconv.ParseFloat(segments[1], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to parse uptime: %w", err)
	}
	speed, err := strconv.ParseFloat(segments[2], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to parse speed: %w", err)
	}
	if !finite(speed) {
		return Sample{}, fmt.Errorf("non-finite speed %f", speed)
	}

	return Sample{Uptime: uptime, Speed: speed}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
