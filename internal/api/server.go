// Package api serves the monitor's HTTP status surface: live engine state,
// the perimeter profile, recorded brake events, and the active
// configuration.
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/safety.monitor/internal/config"
	"github.com/banshee-data/safety.monitor/internal/httputil"
	"github.com/banshee-data/safety.monitor/internal/monitoring"
	"github.com/banshee-data/safety.monitor/internal/safety"
	"github.com/banshee-data/safety.monitor/internal/safetydb"
	"github.com/banshee-data/safety.monitor/internal/scansource"
	"github.com/banshee-data/safety.monitor/internal/units"
	"github.com/banshee-data/safety.monitor/internal/version"
)

// Server exposes the monitor over HTTP.
type Server struct {
	monitor   *safety.Monitor
	stats     *scansource.PacketStats
	db        *safetydb.DB
	sessionID string
	cfg       *config.SafetyConfig
}

// NewServer creates an API server. db may be nil when persistence is
// disabled; /api/events then reports 503.
func NewServer(monitor *safety.Monitor, stats *scansource.PacketStats, db *safetydb.DB, sessionID string, cfg *config.SafetyConfig) *Server {
	return &Server{
		monitor:   monitor,
		stats:     stats,
		db:        db,
		sessionID: sessionID,
		cfg:       cfg,
	}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/perimeter", s.handlePerimeter)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/", s.handleHome)
	return mux
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "safety.monitor %s: collision monitor status API\n", version.String())
}

// statusResponse is the /status payload. Speed is converted to the
// requested units; everything else stays in SI.
type statusResponse struct {
	safety.Snapshot
	Units     string                   `json:"units"`
	SessionID string                   `json:"session_id,omitempty"`
	Listener  scansource.StatsSnapshot `json:"listener"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	unit := r.URL.Query().Get("units")
	if unit == "" {
		unit = s.cfg.GetUnits()
	}
	if !units.IsValid(unit) {
		httputil.BadRequest(w, "invalid units (want mps, mph, kmph or kph)")
		return
	}

	snap := s.monitor.Snapshot()
	snap.Speed = units.ConvertSpeed(snap.Speed, unit)

	httputil.WriteJSONOK(w, statusResponse{
		Snapshot:  snap,
		Units:     unit,
		SessionID: s.sessionID,
		Listener:  s.stats.Snapshot(),
	})
}

type perimeterResponse struct {
	Lidar     safety.SensorGeometry   `json:"lidar"`
	Threshold float64                 `json:"ttc_threshold"`
	Profile   safety.PerimeterProfile `json:"profile"`
}

func (s *Server) handlePerimeter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, perimeterResponse{
		Lidar:     s.monitor.Lidar(),
		Threshold: s.monitor.Threshold(),
		Profile:   s.monitor.Perimeter(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.ServiceUnavailable(w, "persistence disabled")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 0 {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = v
	}

	events, err := s.db.BrakeEvents(s.sessionID, limit)
	if err != nil {
		monitoring.Logf("failed to query brake events: %v", err)
		httputil.InternalServerError(w, "failed to query brake events")
		return
	}
	if events == nil {
		events = []safetydb.BrakeEvent{}
	}
	httputil.WriteJSONOK(w, events)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.cfg)
}
