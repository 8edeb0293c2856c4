package odometry

import (
	"io"
	"time"
)

// MockPort implements Porter by replaying fixture bytes on a fixed cadence,
// for dev mode and tests without odometry hardware.
type MockPort struct {
	r    *io.PipeReader
	w    *io.PipeWriter
	done chan struct{}
}

// NewMockPort creates a port that emits line every interval until closed.
func NewMockPort(line []byte, interval time.Duration) *MockPort {
	r, w := io.Pipe()
	p := &MockPort{r: r, w: w, done: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := w.Write(line); err != nil {
					return
				}
			case <-p.done:
				return
			}
		}
	}()

	return p
}

func (p *MockPort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Close stops the replay goroutine and closes the pipe.
func (p *MockPort) Close() error {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	p.w.Close()
	return p.r.Close()
}
