package scansource

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/banshee-data/safety.monitor/internal/monitoring"
	"github.com/banshee-data/safety.monitor/internal/scan"
)

// maxDatagram bounds a single scan datagram: a few thousand beams of JSON
// floats fit comfortably under 64 KiB.
const maxDatagram = 64 * 1024

// Listener receives scan datagrams over UDP, parses them, and hands each
// frame to the configured callback. The callback runs on the receive
// goroutine and must not block.
type Listener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	stats       *PacketStats
	onFrame     func(*scan.Frame)
}

// ListenerConfig configures a Listener.
type ListenerConfig struct {
	Address     string            // UDP listen address, e.g. ":8308"
	RcvBuf      int               // socket receive buffer size, 0 for OS default
	LogInterval time.Duration     // periodic stats log interval, 0 to disable
	Stats       *PacketStats      // shared counters; allocated when nil
	OnFrame     func(*scan.Frame) // required frame callback
}

// NewListener creates a Listener with the provided configuration.
func NewListener(cfg ListenerConfig) *Listener {
	if cfg.Stats == nil {
		cfg.Stats = &PacketStats{}
	}
	return &Listener{
		address:     cfg.Address,
		rcvBuf:      cfg.RcvBuf,
		logInterval: cfg.LogInterval,
		stats:       cfg.Stats,
		onFrame:     cfg.OnFrame,
	}
}

// Stats returns the listener's counters.
func (l *Listener) Stats() *PacketStats {
	return l.stats
}

// Start binds the UDP socket and runs the receive loop until the context is
// cancelled.
func (l *Listener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("warning: failed to set UDP receive buffer to %d bytes: %v", l.rcvBuf, err)
		}
	}

	monitoring.Logf("listening for scan frames on %s", l.address)

	if l.logInterval > 0 {
		go l.logStats(ctx)
	}

	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("scan listener shutting down")
			return ctx.Err()
		default:
		}

		// A short read deadline keeps the loop responsive to cancellation.
		if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return fmt.Errorf("UDP read failed: %w", err)
		}

		l.stats.Packets.Add(1)
		l.stats.Bytes.Add(int64(n))

		frame, err := ParseFrame(buf[:n], time.Now())
		if err != nil {
			l.stats.ParseErrors.Add(1)
			continue
		}
		l.stats.Frames.Add(1)

		if l.onFrame != nil {
			l.onFrame(frame)
		}
	}
}

func (l *Listener) logStats(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()
	var last StatsSnapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := l.stats.Snapshot()
			monitoring.Logf("scan listener: %d frames (%d new), %d packets, %d parse errors",
				s.Frames, s.Frames-last.Frames, s.Packets, s.ParseErrors)
			last = s
		}
	}
}
