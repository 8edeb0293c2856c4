// Package safetydb persists monitor sessions, brake events, and periodic
// frame summaries to sqlite for post-run analysis and the report tooling.
package safetydb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/safety.monitor/internal/safety"
	"github.com/banshee-data/safety.monitor/internal/scan"
)

// DB wraps the sqlite handle.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the sqlite database at path. Run MigrateUp before
// first use.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer with concurrent readers; the monitor writes from the
	// scan path while the API reads.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	return &DB{db}, nil
}

// SessionInfo describes one recorded monitor run.
type SessionInfo struct {
	ID           string    `json:"session_id"`
	StartedAt    time.Time `json:"started_at"`
	Width        float64   `json:"width"`
	Wheelbase    float64   `json:"wheelbase"`
	BaseLink     float64   `json:"base_link"`
	Beams        int       `json:"beams"`
	TTCThreshold float64   `json:"ttc_threshold"`
	Notes        string    `json:"notes"`
}

// StartSession records a new monitor run and returns a recorder bound to it.
func (db *DB) StartSession(car safety.VehicleGeometry, lidar safety.SensorGeometry, threshold float64, notes string) (*Session, error) {
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO sessions (session_id, vehicle_width, wheelbase, base_link, beams, ttc_threshold, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, car.Width, car.Wheelbase, car.BaseLink, lidar.Beams, threshold, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return &Session{db: db, ID: id}, nil
}

// Sessions lists recorded sessions, newest first.
func (db *DB) Sessions() ([]SessionInfo, error) {
	rows, err := db.Query(`
		SELECT session_id, started_at, vehicle_width, wheelbase, base_link, beams, ttc_threshold, notes
		FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var s SessionInfo
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.Width, &s.Wheelbase, &s.BaseLink, &s.Beams, &s.TTCThreshold, &s.Notes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Session is a recorder bound to one monitor run. It implements
// safety.Recorder.
type Session struct {
	db *DB
	ID string
}

// RecordBrakeEvent persists one brake-engaged decision.
func (s *Session) RecordBrakeEvent(stamp time.Time, speed float64, d safety.Decision) error {
	if d.Trigger == nil {
		return fmt.Errorf("brake event without trigger beam")
	}
	_, err := s.db.Exec(`
		INSERT INTO brake_events (session_id, stamp, speed, beam, angle, range, ttc)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, stamp, speed, d.Trigger.Beam, d.Trigger.Angle, d.Trigger.Range, d.Trigger.TTC)
	if err != nil {
		return fmt.Errorf("failed to insert brake event: %w", err)
	}
	return nil
}

// RecordFrameSummary persists one periodic snapshot of the monitor.
func (s *Session) RecordFrameSummary(snap safety.Snapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO frame_summaries (
			session_id, stamp, state, speed,
			total_beams, valid_beams, min_range, max_range, mean_range, stddev_range,
			nearest_distance, nearest_angle, farthest_distance, farthest_angle)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, snap.LastStamp, snap.State.String(), snap.Speed,
		snap.LastStats.Total, snap.LastStats.Valid,
		snap.LastStats.Min, snap.LastStats.Max, snap.LastStats.Mean, snap.LastStats.StdDev,
		snap.Nearest.Distance, snap.Nearest.Angle, snap.Farthest.Distance, snap.Farthest.Angle)
	if err != nil {
		return fmt.Errorf("failed to insert frame summary: %w", err)
	}
	return nil
}

// BrakeEvent is one persisted brake engagement.
type BrakeEvent struct {
	SessionID string    `json:"session_id"`
	Stamp     time.Time `json:"stamp"`
	Speed     float64   `json:"speed"`
	Beam      int       `json:"beam"`
	Angle     float64   `json:"angle"`
	Range     float64   `json:"range"`
	TTC       float64   `json:"ttc"`
}

// BrakeEvents returns the brake events of a session, oldest first. limit
// bounds the result when positive.
func (db *DB) BrakeEvents(sessionID string, limit int) ([]BrakeEvent, error) {
	query := `
		SELECT session_id, stamp, speed, beam, angle, range, ttc
		FROM brake_events WHERE session_id = ? ORDER BY stamp`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query brake events: %w", err)
	}
	defer rows.Close()

	var out []BrakeEvent
	for rows.Next() {
		var e BrakeEvent
		if err := rows.Scan(&e.SessionID, &e.Stamp, &e.Speed, &e.Beam, &e.Angle, &e.Range, &e.TTC); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FrameSummary is one persisted monitor snapshot.
type FrameSummary struct {
	SessionID string     `json:"session_id"`
	Stamp     time.Time  `json:"stamp"`
	State     string     `json:"state"`
	Speed     float64    `json:"speed"`
	Stats     scan.Stats `json:"stats"`
	Nearest   scan.Point `json:"nearest"`
	Farthest  scan.Point `json:"farthest"`
}

// FrameSummaries returns the periodic snapshots of a session, oldest first.
func (db *DB) FrameSummaries(sessionID string, limit int) ([]FrameSummary, error) {
	query := `
		SELECT session_id, stamp, state, speed,
			total_beams, valid_beams, min_range, max_range, mean_range, stddev_range,
			nearest_distance, nearest_angle, farthest_distance, farthest_angle
		FROM frame_summaries WHERE session_id = ? ORDER BY stamp`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query frame summaries: %w", err)
	}
	defer rows.Close()

	var out []FrameSummary
	for rows.Next() {
		var f FrameSummary
		if err := rows.Scan(&f.SessionID, &f.Stamp, &f.State, &f.Speed,
			&f.Stats.Total, &f.Stats.Valid, &f.Stats.Min, &f.Stats.Max, &f.Stats.Mean, &f.Stats.StdDev,
			&f.Nearest.Distance, &f.Nearest.Angle, &f.Farthest.Distance, &f.Farthest.Angle); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
