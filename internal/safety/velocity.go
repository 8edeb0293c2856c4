package safety

import (
	"math"
	"sync/atomic"
)

// VelocityTracker holds the most recently observed forward speed. The scan
// handler and the odometry handler run on separate goroutines, so the slot
// is an atomic over the float bits: last writer wins, a reader may see a
// value stale by one sample but never a torn one. No averaging or filtering
// is applied; freshness is deliberately favored over noise rejection.
type VelocityTracker struct {
	bits atomic.Uint64
}

// Update overwrites the tracked forward speed unconditionally.
func (v *VelocityTracker) Update(speed float64) {
	v.bits.Store(math.Float64bits(speed))
}

// Current returns the latest observed speed, zero if none has arrived yet.
func (v *VelocityTracker) Current() float64 {
	return math.Float64frombits(v.bits.Load())
}
