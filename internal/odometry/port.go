// Package odometry delivers forward-speed samples from the vehicle's
// odometry feed, a line-oriented serial device. A Mux owns the port and fans
// incoming lines out to subscribers; Parse turns a line into a speed sample.
package odometry

import (
	"io"

	"go.bug.st/serial"
)

// Porter is the minimal interface the mux needs from a serial port. The
// abstraction enables unit testing without odometry hardware.
type Porter interface {
	io.Reader
	io.Closer
}

// PortMode holds the serial parameters for the odometry feed.
type PortMode struct {
	BaudRate int
}

// DefaultPortMode returns the default mode for the odometry feed.
func DefaultPortMode() PortMode {
	return PortMode{BaudRate: 115200}
}

// OpenPort opens the real serial device at path.
func OpenPort(path string, mode PortMode) (Porter, error) {
	return serial.Open(path, &serial.Mode{BaudRate: mode.BaudRate})
}
