// Package config loads the static monitor configuration: vehicle footprint,
// sensor expectations, brake threshold, transport endpoints, and the
// wall-follow tuning. Fields are pointers so a partial JSON file overrides
// only what it names; the Get* accessors supply defaults for the rest.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file, the single
// source of truth for all default values.
const DefaultConfigPath = "config/safety.defaults.json"

// SafetyConfig is the root configuration. The schema matches the
// /api/config endpoint so the same JSON serves startup configuration and
// runtime inspection.
type SafetyConfig struct {
	// Vehicle footprint
	VehicleWidth *float64 `json:"vehicle_width,omitempty"`  // meters
	Wheelbase    *float64 `json:"wheelbase,omitempty"`      // meters
	BaseLink     *float64 `json:"base_link,omitempty"`      // meters, sensor offset from base link

	// Brake engine
	TTCThreshold   *float64 `json:"ttc_threshold,omitempty"`   // seconds
	ScanBeams      *int     `json:"scan_beams,omitempty"`      // consistency check; 0 disables
	IntrinsicsWait *string  `json:"intrinsics_wait,omitempty"` // duration string like "10s"

	// Transports
	ScanListenAddr *string `json:"scan_listen_addr,omitempty"`
	SerialPort     *string `json:"serial_port,omitempty"`
	SerialBaud     *int    `json:"serial_baud,omitempty"`

	// Persistence and reporting
	DBPath          *string `json:"db_path,omitempty"`
	SummaryInterval *string `json:"summary_interval,omitempty"` // duration string like "5s"
	Units           *string `json:"units,omitempty"`            // mps, mph, kmph, kph

	// Wall follower
	WallFollow         *bool    `json:"wall_follow,omitempty"`
	WallKp             *float64 `json:"wall_kp,omitempty"`
	WallKi             *float64 `json:"wall_ki,omitempty"`
	WallKd             *float64 `json:"wall_kd,omitempty"`
	WallTargetDistance *float64 `json:"wall_target_distance,omitempty"` // meters
	WallBeamSeparation *float64 `json:"wall_beam_separation,omitempty"` // radians
	WallLookahead      *float64 `json:"wall_lookahead,omitempty"`       // meters
	MaxSteer           *float64 `json:"max_steer,omitempty"`            // radians
}

// EmptySafetyConfig returns a SafetyConfig with all fields unset.
func EmptySafetyConfig() *SafetyConfig {
	return &SafetyConfig{}
}

// LoadSafetyConfig loads a SafetyConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
func LoadSafetyConfig(path string) (*SafetyConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySafetyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *SafetyConfig) Validate() error {
	if c.VehicleWidth != nil && *c.VehicleWidth <= 0 {
		return fmt.Errorf("vehicle_width must be positive, got %f", *c.VehicleWidth)
	}
	if c.Wheelbase != nil && *c.Wheelbase <= 0 {
		return fmt.Errorf("wheelbase must be positive, got %f", *c.Wheelbase)
	}
	if c.BaseLink != nil && *c.BaseLink <= 0 {
		return fmt.Errorf("base_link must be positive, got %f", *c.BaseLink)
	}
	if c.TTCThreshold != nil && *c.TTCThreshold <= 0 {
		return fmt.Errorf("ttc_threshold must be positive, got %f", *c.TTCThreshold)
	}
	if c.ScanBeams != nil && *c.ScanBeams < 0 {
		return fmt.Errorf("scan_beams must not be negative, got %d", *c.ScanBeams)
	}
	if c.IntrinsicsWait != nil && *c.IntrinsicsWait != "" {
		if _, err := time.ParseDuration(*c.IntrinsicsWait); err != nil {
			return fmt.Errorf("invalid intrinsics_wait '%s': %w", *c.IntrinsicsWait, err)
		}
	}
	if c.SummaryInterval != nil && *c.SummaryInterval != "" {
		if _, err := time.ParseDuration(*c.SummaryInterval); err != nil {
			return fmt.Errorf("invalid summary_interval '%s': %w", *c.SummaryInterval, err)
		}
	}
	if c.WallBeamSeparation != nil {
		if s := *c.WallBeamSeparation; s <= 0 || s >= 70*math.Pi/180 {
			return fmt.Errorf("wall_beam_separation %f out of range (0, 70deg)", s)
		}
	}
	return nil
}

// GetVehicleWidth returns the vehicle width or the default.
func (c *SafetyConfig) GetVehicleWidth() float64 {
	if c.VehicleWidth == nil {
		return 0.2032
	}
	return *c.VehicleWidth
}

// GetWheelbase returns the wheelbase or the default.
func (c *SafetyConfig) GetWheelbase() float64 {
	if c.Wheelbase == nil {
		return 0.3302
	}
	return *c.Wheelbase
}

// GetBaseLink returns the sensor-to-base-link offset or the default.
func (c *SafetyConfig) GetBaseLink() float64 {
	if c.BaseLink == nil {
		return 0.275
	}
	return *c.BaseLink
}

// GetTTCThreshold returns the ttc_threshold value or the default.
func (c *SafetyConfig) GetTTCThreshold() float64 {
	if c.TTCThreshold == nil {
		return 0.01
	}
	return *c.TTCThreshold
}

// GetScanBeams returns the expected beam count, 0 when unchecked.
func (c *SafetyConfig) GetScanBeams() int {
	if c.ScanBeams == nil {
		return 1080
	}
	return *c.ScanBeams
}

// GetIntrinsicsWait parses and returns the startup wait for the first frame.
func (c *SafetyConfig) GetIntrinsicsWait() time.Duration {
	if c.IntrinsicsWait == nil || *c.IntrinsicsWait == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(*c.IntrinsicsWait)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetScanListenAddr returns the scan UDP listen address or the default.
func (c *SafetyConfig) GetScanListenAddr() string {
	if c.ScanListenAddr == nil || *c.ScanListenAddr == "" {
		return ":8308"
	}
	return *c.ScanListenAddr
}

// GetSerialPort returns the odometry serial device or the default.
func (c *SafetyConfig) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return "/dev/ttyACM0"
	}
	return *c.SerialPort
}

// GetSerialBaud returns the odometry baud rate or the default.
func (c *SafetyConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

// GetDBPath returns the sqlite database path or the default.
func (c *SafetyConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "safety_data.db"
	}
	return *c.DBPath
}

// GetSummaryInterval parses and returns the frame-summary flush cadence.
func (c *SafetyConfig) GetSummaryInterval() time.Duration {
	if c.SummaryInterval == nil || *c.SummaryInterval == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.SummaryInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetUnits returns the reporting speed units or the default.
func (c *SafetyConfig) GetUnits() string {
	if c.Units == nil || *c.Units == "" {
		return "mps"
	}
	return *c.Units
}

// GetWallFollow returns whether the wall follower is enabled.
func (c *SafetyConfig) GetWallFollow() bool {
	if c.WallFollow == nil {
		return true
	}
	return *c.WallFollow
}

// GetWallKp returns the wall-follow proportional gain or the default.
func (c *SafetyConfig) GetWallKp() float64 {
	if c.WallKp == nil {
		return 0.8
	}
	return *c.WallKp
}

// GetWallKi returns the wall-follow integral gain or the default.
func (c *SafetyConfig) GetWallKi() float64 {
	if c.WallKi == nil {
		return 0
	}
	return *c.WallKi
}

// GetWallKd returns the wall-follow derivative gain or the default.
func (c *SafetyConfig) GetWallKd() float64 {
	if c.WallKd == nil {
		return 0.05
	}
	return *c.WallKd
}

// GetWallTargetDistance returns the target wall distance or the default.
func (c *SafetyConfig) GetWallTargetDistance() float64 {
	if c.WallTargetDistance == nil {
		return 0.9
	}
	return *c.WallTargetDistance
}

// GetWallBeamSeparation returns the wall beam separation or the default.
func (c *SafetyConfig) GetWallBeamSeparation() float64 {
	if c.WallBeamSeparation == nil {
		return math.Pi / 4
	}
	return *c.WallBeamSeparation
}

// GetWallLookahead returns the wall lookahead distance or the default.
func (c *SafetyConfig) GetWallLookahead() float64 {
	if c.WallLookahead == nil {
		return 0.5
	}
	return *c.WallLookahead
}

// GetMaxSteer returns the steering clamp or the default (24 degrees).
func (c *SafetyConfig) GetMaxSteer() float64 {
	if c.MaxSteer == nil {
		return 0.4189
	}
	return *c.MaxSteer
}
