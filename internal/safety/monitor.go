package safety

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/safety.monitor/internal/monitoring"
	"github.com/banshee-data/safety.monitor/internal/scan"
	"github.com/banshee-data/safety.monitor/internal/timeutil"
)

// State is the monitor's braking state. There is no path back from
// StateBraking to StateArmed: once the emergency brake engages it stays
// engaged until the process is restarted.
type State int32

const (
	StateArmed State = iota
	StateBraking
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateBraking:
		return "braking"
	}
	return "unknown"
}

// MarshalJSON renders the state as its string form for the status API.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ErrIntrinsicsTimeout is returned when no initial scan frame arrives within
// the startup window. Without sensor intrinsics no perimeter profile can be
// built, so this is fatal to initialization.
var ErrIntrinsicsTimeout = errors.New("timed out waiting for initial scan frame")

// WaitForIntrinsics blocks until the first scan frame arrives on frames and
// derives the sensor geometry from it, or fails when the timeout elapses or
// ctx is cancelled. expectBeams, when non-zero, is checked against the
// derived beam count as a configuration consistency guard.
func WaitForIntrinsics(ctx context.Context, clock timeutil.Clock, frames <-chan *scan.Frame, timeout time.Duration, expectBeams int) (SensorGeometry, error) {
	timer := clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-frames:
		g, err := SensorGeometryFromFrame(f)
		if err != nil {
			return SensorGeometry{}, fmt.Errorf("bad initial scan frame: %w", err)
		}
		if expectBeams != 0 && g.Beams != expectBeams {
			return SensorGeometry{}, fmt.Errorf("first scan reported %d beams, configuration expects %d", g.Beams, expectBeams)
		}
		return g, nil
	case <-timer.C():
		return SensorGeometry{}, ErrIntrinsicsTimeout
	case <-ctx.Done():
		return SensorGeometry{}, ctx.Err()
	}
}

// Recorder persists brake events. The monitor calls it inline on the scan
// path, so implementations should be quick; errors are logged and dropped.
type Recorder interface {
	RecordBrakeEvent(stamp time.Time, speed float64, d Decision) error
}

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	Car   VehicleGeometry
	Lidar SensorGeometry

	// TTCThreshold in seconds; DefaultTTCThreshold when zero.
	TTCThreshold float64

	// Publish is invoked with each brake-engaged decision. Callers must
	// treat the absence of a call as "no change", not as a release; this
	// engine never emits an explicit release.
	Publish func(Decision)

	// Recorder, when set, receives brake events for persistence.
	Recorder Recorder
}

// Monitor is the collision monitor: it owns the perimeter profile and the
// velocity tracker and turns scan frames into brake decisions. Scan and
// odometry callbacks may run on different goroutines.
type Monitor struct {
	car       VehicleGeometry
	lidar     SensorGeometry
	perimeter PerimeterProfile
	threshold float64
	publish   func(Decision)
	recorder  Recorder

	tracker VelocityTracker
	state   atomic.Int32

	framesSeen    atomic.Int64
	framesDropped atomic.Int64

	mu           sync.Mutex
	lastStamp    time.Time
	lastStats    scan.Stats
	lastNearest  scan.Point
	lastFarthest scan.Point
	lastDecision Decision
}

// NewMonitor validates the geometry, builds the perimeter profile, and
// returns an armed monitor.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if err := cfg.Car.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vehicle geometry: %w", err)
	}
	if err := cfg.Lidar.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sensor geometry: %w", err)
	}
	threshold := cfg.TTCThreshold
	if threshold == 0 {
		threshold = DefaultTTCThreshold
	}
	if threshold < 0 {
		return nil, fmt.Errorf("ttc threshold must be positive, got %f", threshold)
	}
	return &Monitor{
		car:       cfg.Car,
		lidar:     cfg.Lidar,
		perimeter: BuildPerimeter(cfg.Car, cfg.Lidar),
		threshold: threshold,
		publish:   cfg.Publish,
		recorder:  cfg.Recorder,
	}, nil
}

// OnOdometry records a new forward speed sample. Last writer wins.
func (m *Monitor) OnOdometry(speed float64) {
	m.tracker.Update(speed)
}

// Speed returns the most recently tracked forward speed.
func (m *Monitor) Speed() float64 {
	return m.tracker.Current()
}

// State returns the current braking state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Threshold returns the configured TTC threshold in seconds.
func (m *Monitor) Threshold() float64 {
	return m.threshold
}

// Perimeter returns a copy of the perimeter profile.
func (m *Monitor) Perimeter() PerimeterProfile {
	out := make(PerimeterProfile, len(m.perimeter))
	copy(out, m.perimeter)
	return out
}

// Lidar returns the sensor geometry the monitor was built with.
func (m *Monitor) Lidar() SensorGeometry {
	return m.lidar
}

// OnScan evaluates one scan frame and returns the resulting decision.
//
// A frame whose beam count disagrees with the perimeter profile is dropped
// with a GeometryMismatchError; the prior brake state persists and no
// decision is emitted for that cycle. A brake-engaged decision latches the
// monitor into StateBraking and is forwarded to the publisher and recorder.
func (m *Monitor) OnScan(frame *scan.Frame) (Decision, error) {
	m.framesSeen.Add(1)

	speed := m.tracker.Current()
	ttcs, err := Evaluate(frame, m.perimeter, speed)
	if err != nil {
		m.framesDropped.Add(1)
		return Decision{}, err
	}

	d := Decide(ttcs, m.threshold)

	stamp := frame.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	nearest, farthest, _ := scan.Extremes(frame)

	m.mu.Lock()
	m.lastStamp = stamp
	m.lastStats = scan.ComputeStats(frame)
	m.lastNearest = nearest
	m.lastFarthest = farthest
	m.lastDecision = d
	m.mu.Unlock()

	if d.Brake {
		if m.state.CompareAndSwap(int32(StateArmed), int32(StateBraking)) {
			monitoring.Logf("emergency brake engaged: beam=%d angle=%.3f range=%.3fm ttc=%.4fs speed=%.2fm/s",
				d.Trigger.Beam, d.Trigger.Angle, d.Trigger.Range, d.Trigger.TTC, speed)
		}
		if m.publish != nil {
			m.publish(d)
		}
		if m.recorder != nil {
			if err := m.recorder.RecordBrakeEvent(stamp, speed, d); err != nil {
				monitoring.Logf("failed to record brake event: %v", err)
			}
		}
	}
	return d, nil
}

// Snapshot is a point-in-time view of the monitor for status reporting.
type Snapshot struct {
	State         State      `json:"state"`
	Speed         float64    `json:"speed"` // m/s
	TTCThreshold  float64    `json:"ttc_threshold"`
	FramesSeen    int64      `json:"frames_seen"`
	FramesDropped int64      `json:"frames_dropped"`
	LastStamp     time.Time  `json:"last_frame_at"`
	LastStats     scan.Stats `json:"last_frame_stats"`
	Nearest       scan.Point `json:"nearest_point"`
	Farthest      scan.Point `json:"farthest_point"`
	LastDecision  Decision   `json:"last_decision"`
}

// Snapshot returns the current status of the monitor.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:         m.State(),
		Speed:         m.tracker.Current(),
		TTCThreshold:  m.threshold,
		FramesSeen:    m.framesSeen.Load(),
		FramesDropped: m.framesDropped.Load(),
		LastStamp:     m.lastStamp,
		LastStats:     m.lastStats,
		Nearest:       m.lastNearest,
		Farthest:      m.lastFarthest,
		LastDecision:  m.lastDecision,
	}
}
