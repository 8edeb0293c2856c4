package safety

// DefaultTTCThreshold is the time-to-collision below which the emergency
// brake engages, in seconds.
const DefaultTTCThreshold = 0.01

// Decision is the outcome of evaluating one scan frame: whether to engage
// the emergency brake and the speed setpoint to command. This engine only
// ever commands a stop or abstains; it never computes a non-zero setpoint.
type Decision struct {
	Brake bool    `json:"brake"`
	Speed float64 `json:"speed"` // forced to 0 when Brake is true

	// Trigger is the beam with the smallest TTC below the threshold,
	// nil when the brake is not engaged.
	Trigger *BeamTTC `json:"trigger,omitempty"`
}

// Decide reduces the per-beam TTC values of one frame to a brake decision.
// The brake engages if any TTC is strictly below the threshold; a TTC
// exactly at the threshold does not trigger. There is no hysteresis or
// debounce here; latching is the monitor's concern.
func Decide(ttcs []BeamTTC, threshold float64) Decision {
	best := -1
	for i := range ttcs {
		if ttcs[i].TTC >= threshold {
			continue
		}
		if best < 0 || ttcs[i].TTC < ttcs[best].TTC {
			best = i
		}
	}
	if best < 0 {
		return Decision{}
	}
	trigger := ttcs[best]
	return Decision{Brake: true, Speed: 0, Trigger: &trigger}
}
