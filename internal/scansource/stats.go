package scansource

import "sync/atomic"

// PacketStats tracks listener health counters. All fields are updated
// atomically from the receive loop and read by the stats logger and the
// status API.
type PacketStats struct {
	Packets     atomic.Int64 // datagrams received
	Bytes       atomic.Int64 // payload bytes received
	Frames      atomic.Int64 // frames successfully parsed
	ParseErrors atomic.Int64 // datagrams that failed to parse
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Packets     int64 `json:"packets"`
	Bytes       int64 `json:"bytes"`
	Frames      int64 `json:"frames"`
	ParseErrors int64 `json:"parse_errors"`
}

// Snapshot copies the current counter values.
func (s *PacketStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Packets:     s.Packets.Load(),
		Bytes:       s.Bytes.Load(),
		Frames:      s.Frames.Load(),
		ParseErrors: s.ParseErrors.Load(),
	}
}
