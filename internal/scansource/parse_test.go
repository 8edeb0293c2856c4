package scansource

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	payload := []byte(`{
		"angle_min": -3.141592653589793,
		"angle_max": 3.141592653589793,
		"angle_increment": 0.005823,
		"ranges": [1.5, 2.25, 0.75]
	}`)
	stamp := time.Now()

	f, err := ParseFrame(payload, stamp)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Beams())
	assert.Equal(t, []float64{1.5, 2.25, 0.75}, f.Ranges)
	assert.InDelta(t, -math.Pi, f.AngleMin, 1e-9)
	assert.InDelta(t, 0.005823, f.AngleIncrement, 1e-12)
	assert.Equal(t, stamp, f.Stamp)
}

func TestParseFrameNullBeamsBecomeNaN(t *testing.T) {
	payload := []byte(`{"angle_min": 0, "angle_max": 0.02, "angle_increment": 0.01, "ranges": [1.0, null, 2.0]}`)

	f, err := ParseFrame(payload, time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, f.Beams())
	assert.Equal(t, 1.0, f.Ranges[0])
	assert.True(t, math.IsNaN(f.Ranges[1]))
	assert.Equal(t, 2.0, f.Ranges[2])
}

func TestParseFrameErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "not json at all"},
		{"empty ranges", `{"angle_min": 0, "angle_max": 1, "angle_increment": 0.01, "ranges": []}`},
		{"missing ranges", `{"angle_min": 0, "angle_max": 1, "angle_increment": 0.01}`},
		{"zero increment", `{"angle_min": 0, "angle_max": 1, "angle_increment": 0, "ranges": [1.0]}`},
		{"negative increment", `{"angle_min": 0, "angle_max": 1, "angle_increment": -0.01, "ranges": [1.0]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFrame([]byte(tc.payload), time.Now())
			assert.Error(t, err)
		})
	}
}

func TestPacketStatsSnapshot(t *testing.T) {
	var s PacketStats
	s.Packets.Add(10)
	s.Bytes.Add(4096)
	s.Frames.Add(9)
	s.ParseErrors.Add(1)

	snap := s.Snapshot()
	assert.Equal(t, int64(10), snap.Packets)
	assert.Equal(t, int64(4096), snap.Bytes)
	assert.Equal(t, int64(9), snap.Frames)
	assert.Equal(t, int64(1), snap.ParseErrors)
}
