package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "safety.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	c := EmptySafetyConfig()

	assert.Equal(t, 0.2032, c.GetVehicleWidth())
	assert.Equal(t, 0.3302, c.GetWheelbase())
	assert.Equal(t, 0.275, c.GetBaseLink())
	assert.Equal(t, 0.01, c.GetTTCThreshold())
	assert.Equal(t, 1080, c.GetScanBeams())
	assert.Equal(t, 10*time.Second, c.GetIntrinsicsWait())
	assert.Equal(t, ":8308", c.GetScanListenAddr())
	assert.Equal(t, "/dev/ttyACM0", c.GetSerialPort())
	assert.Equal(t, 115200, c.GetSerialBaud())
	assert.Equal(t, "safety_data.db", c.GetDBPath())
	assert.Equal(t, 5*time.Second, c.GetSummaryInterval())
	assert.Equal(t, "mps", c.GetUnits())
	assert.True(t, c.GetWallFollow())
	assert.Equal(t, 0.8, c.GetWallKp())
	assert.Equal(t, 0.0, c.GetWallKi())
	assert.Equal(t, 0.05, c.GetWallKd())
	assert.Equal(t, 0.9, c.GetWallTargetDistance())
	assert.Equal(t, math.Pi/4, c.GetWallBeamSeparation())
	assert.Equal(t, 0.5, c.GetWallLookahead())
	assert.Equal(t, 0.4189, c.GetMaxSteer())
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{"ttc_threshold": 0.05, "scan_listen_addr": ":9000", "wall_follow": false}`)

	c, err := LoadSafetyConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.05, c.GetTTCThreshold())
	assert.Equal(t, ":9000", c.GetScanListenAddr())
	assert.False(t, c.GetWallFollow())

	// Everything the file does not name stays at its default.
	assert.Equal(t, 0.2032, c.GetVehicleWidth())
	assert.Equal(t, 1080, c.GetScanBeams())
	assert.Equal(t, "mps", c.GetUnits())
}

func TestLoadConfigRejectsBadExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safety.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err := LoadSafetyConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadSafetyConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadConfigBadJSON(t *testing.T) {
	_, err := LoadSafetyConfig(writeConfig(t, `{"ttc_threshold": `))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []string{
		`{"vehicle_width": 0}`,
		`{"wheelbase": -0.3}`,
		`{"base_link": 0}`,
		`{"ttc_threshold": 0}`,
		`{"ttc_threshold": -0.01}`,
		`{"scan_beams": -1}`,
		`{"intrinsics_wait": "ten seconds"}`,
		`{"summary_interval": "5 parsecs"}`,
		`{"wall_beam_separation": 0}`,
		`{"wall_beam_separation": 1.4}`,
	}
	for _, body := range cases {
		_, err := LoadSafetyConfig(writeConfig(t, body))
		assert.Error(t, err, "config %s", body)
	}
}

// The shipped defaults file must agree with the accessor defaults, so a
// deployment that passes -config config/safety.defaults.json behaves
// identically to one that passes no config at all.
func TestDefaultsFileMatchesAccessors(t *testing.T) {
	c, err := LoadSafetyConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)

	empty := EmptySafetyConfig()
	assert.Equal(t, empty.GetVehicleWidth(), c.GetVehicleWidth())
	assert.Equal(t, empty.GetWheelbase(), c.GetWheelbase())
	assert.Equal(t, empty.GetBaseLink(), c.GetBaseLink())
	assert.Equal(t, empty.GetTTCThreshold(), c.GetTTCThreshold())
	assert.Equal(t, empty.GetScanBeams(), c.GetScanBeams())
	assert.Equal(t, empty.GetIntrinsicsWait(), c.GetIntrinsicsWait())
	assert.Equal(t, empty.GetScanListenAddr(), c.GetScanListenAddr())
	assert.Equal(t, empty.GetSerialPort(), c.GetSerialPort())
	assert.Equal(t, empty.GetSerialBaud(), c.GetSerialBaud())
	assert.Equal(t, empty.GetDBPath(), c.GetDBPath())
	assert.Equal(t, empty.GetSummaryInterval(), c.GetSummaryInterval())
	assert.Equal(t, empty.GetUnits(), c.GetUnits())
	assert.Equal(t, empty.GetWallFollow(), c.GetWallFollow())
	assert.Equal(t, empty.GetWallKp(), c.GetWallKp())
	assert.Equal(t, empty.GetWallKi(), c.GetWallKi())
	assert.Equal(t, empty.GetWallKd(), c.GetWallKd())
	assert.Equal(t, empty.GetWallTargetDistance(), c.GetWallTargetDistance())
	assert.Equal(t, empty.GetWallLookahead(), c.GetWallLookahead())
	assert.Equal(t, empty.GetMaxSteer(), c.GetMaxSteer())
	assert.InDelta(t, empty.GetWallBeamSeparation(), c.GetWallBeamSeparation(), 1e-9)
}
