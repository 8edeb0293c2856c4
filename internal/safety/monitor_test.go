package safety

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/safety.monitor/internal/scan"
	"github.com/banshee-data/safety.monitor/internal/testutil"
	"github.com/banshee-data/safety.monitor/internal/timeutil"
)

// narrowSensor is a three-beam forward-facing layout; every beam's clearance
// works out to the half-width (0.1 m) of testCar.
var narrowSensor = SensorGeometry{
	Beams:          3,
	AngleMin:       -0.01,
	AngleMax:       0.01,
	AngleIncrement: 0.01,
}

func narrowFrame(r float64) *scan.Frame {
	f := testutil.UniformFrame(narrowSensor.Beams, narrowSensor.AngleMin, narrowSensor.AngleMax, r)
	f.Stamp = time.Now()
	return f
}

func newTestMonitor(t *testing.T, publish func(Decision)) *Monitor {
	t.Helper()
	m, err := NewMonitor(MonitorConfig{
		Car:          testCar,
		Lidar:        narrowSensor,
		TTCThreshold: 0.01,
		Publish:      publish,
	})
	require.NoError(t, err)
	return m
}

func TestNewMonitorValidates(t *testing.T) {
	_, err := NewMonitor(MonitorConfig{Car: VehicleGeometry{}, Lidar: narrowSensor})
	assert.Error(t, err)

	_, err = NewMonitor(MonitorConfig{Car: testCar, Lidar: SensorGeometry{}})
	assert.Error(t, err)

	_, err = NewMonitor(MonitorConfig{Car: testCar, Lidar: narrowSensor, TTCThreshold: -1})
	assert.Error(t, err)
}

func TestMonitorDefaultThreshold(t *testing.T) {
	m, err := NewMonitor(MonitorConfig{Car: testCar, Lidar: narrowSensor})
	require.NoError(t, err)
	assert.Equal(t, DefaultTTCThreshold, m.Threshold())
}

func TestMonitorBrakesOnImminentCollision(t *testing.T) {
	var published []Decision
	m := newTestMonitor(t, func(d Decision) { published = append(published, d) })

	m.OnOdometry(2.0)

	// Far obstacle: ttc = (0.5-0.1)/2.0 = 0.2 s, no brake.
	d, err := m.OnScan(narrowFrame(0.5))
	require.NoError(t, err)
	assert.False(t, d.Brake)
	assert.Equal(t, StateArmed, m.State())
	assert.Empty(t, published)

	// Near obstacle: ttc = (0.11-0.1)/2.0 = 0.005 s, brake.
	d, err = m.OnScan(narrowFrame(0.11))
	require.NoError(t, err)
	require.True(t, d.Brake)
	assert.Zero(t, d.Speed)
	assert.Equal(t, StateBraking, m.State())
	require.Len(t, published, 1)
	require.NotNil(t, published[0].Trigger)
	assert.InDelta(t, 0.005, published[0].Trigger.TTC, 1e-4)
}

// Once braking, the monitor never returns to armed: there is no release
// signal, only the absence of further engagements.
func TestMonitorBrakeLatches(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.OnOdometry(2.0)

	_, err := m.OnScan(narrowFrame(0.105))
	require.NoError(t, err)
	require.Equal(t, StateBraking, m.State())

	// A benign frame afterwards does not re-arm.
	d, err := m.OnScan(narrowFrame(10.0))
	require.NoError(t, err)
	assert.False(t, d.Brake)
	assert.Equal(t, StateBraking, m.State())
}

func TestMonitorStationaryNeverBrakes(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.OnOdometry(0)

	for _, r := range []float64{0.01, 0.11, 5.0} {
		d, err := m.OnScan(narrowFrame(r))
		require.NoError(t, err)
		assert.False(t, d.Brake, "range %f", r)
	}
	assert.Equal(t, StateArmed, m.State())
}

// Each evaluation uses exactly the speed most recently reported; no
// blending across samples.
func TestMonitorUsesLatestSpeed(t *testing.T) {
	m := newTestMonitor(t, nil)

	frame := narrowFrame(0.115) // 0.015 m outside the perimeter

	m.OnOdometry(1.0) // ttc 0.015 s, above threshold
	d, err := m.OnScan(frame)
	require.NoError(t, err)
	assert.False(t, d.Brake)

	m.OnOdometry(-0.5) // reversing, nothing closes
	d, err = m.OnScan(frame)
	require.NoError(t, err)
	assert.False(t, d.Brake)

	m.OnOdometry(3.0) // ttc 0.005 s, brake
	d, err = m.OnScan(frame)
	require.NoError(t, err)
	assert.True(t, d.Brake)
}

func TestMonitorDropsMismatchedFrame(t *testing.T) {
	var published []Decision
	m := newTestMonitor(t, func(d Decision) { published = append(published, d) })
	m.OnOdometry(2.0)

	bad := &scan.Frame{
		Ranges:         make([]float64, 500),
		AngleMin:       -0.01,
		AngleMax:       0.01,
		AngleIncrement: 0.01,
	}
	_, err := m.OnScan(bad)
	require.Error(t, err)
	assert.Empty(t, published)
	assert.Equal(t, StateArmed, m.State())

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.FramesSeen)
	assert.Equal(t, int64(1), snap.FramesDropped)
}

type captureRecorder struct {
	stamps []time.Time
	speeds []float64
	events []Decision
}

func (r *captureRecorder) RecordBrakeEvent(stamp time.Time, speed float64, d Decision) error {
	r.stamps = append(r.stamps, stamp)
	r.speeds = append(r.speeds, speed)
	r.events = append(r.events, d)
	return nil
}

func TestMonitorRecordsBrakeEvents(t *testing.T) {
	rec := &captureRecorder{}
	m, err := NewMonitor(MonitorConfig{
		Car:          testCar,
		Lidar:        narrowSensor,
		TTCThreshold: 0.01,
		Recorder:     rec,
	})
	require.NoError(t, err)

	m.OnOdometry(2.0)
	_, err = m.OnScan(narrowFrame(0.105))
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	assert.Equal(t, 2.0, rec.speeds[0])
	require.NotNil(t, rec.events[0].Trigger)
}

func TestMonitorSnapshotTracksExtremes(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.OnOdometry(0)

	f := narrowFrame(1.0)
	f.Ranges[0] = 0.4
	f.Ranges[2] = 2.5
	_, err := m.OnScan(f)
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.InDelta(t, 0.4, snap.Nearest.Distance, 1e-9)
	assert.InDelta(t, 2.5, snap.Farthest.Distance, 1e-9)
	assert.Equal(t, 3, snap.LastStats.Total)
	assert.Equal(t, 3, snap.LastStats.Valid)
}

func TestWaitForIntrinsicsDerivesGeometry(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	frames := make(chan *scan.Frame, 1)
	frames <- narrowFrame(1.0)

	g, err := WaitForIntrinsics(context.Background(), clock, frames, time.Second, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Beams)
	assert.InDelta(t, narrowSensor.AngleIncrement, g.AngleIncrement, 1e-12)
}

func TestWaitForIntrinsicsBeamCountCheck(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	frames := make(chan *scan.Frame, 1)
	frames <- narrowFrame(1.0)

	_, err := WaitForIntrinsics(context.Background(), clock, frames, time.Second, 1080)
	require.Error(t, err)
}

func TestWaitForIntrinsicsTimeout(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	frames := make(chan *scan.Frame)

	done := make(chan error, 1)
	go func() {
		_, err := WaitForIntrinsics(context.Background(), clock, frames, 10*time.Second, 0)
		done <- err
	}()

	// Give the waiter a moment to arm its timer, then expire it.
	time.Sleep(10 * time.Millisecond)
	clock.Advance(11 * time.Second)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrIntrinsicsTimeout)
	case <-time.After(time.Second):
		t.Fatal("waiter did not observe the timeout")
	}
}

func TestWaitForIntrinsicsCancelled(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WaitForIntrinsics(ctx, clock, make(chan *scan.Frame), time.Second, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
