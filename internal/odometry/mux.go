package odometry

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/banshee-data/safety.monitor/internal/monitoring"
)

// Mux owns the odometry port and fans incoming lines out to subscribers.
// Subscribers that fall behind lose lines rather than stall the read loop;
// only the freshest speed sample matters downstream.
type Mux struct {
	port Porter

	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool

	dropped int64
}

// NewMux creates a Mux over an open port.
func NewMux(port Porter) *Mux {
	return &Mux{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random subscriber ID (8 random bytes, hex encoded).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new line channel. The returned ID identifies the
// channel for Unsubscribe.
func (m *Mux) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, 8)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (m *Mux) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Monitor reads lines from the port and distributes them until the context
// is cancelled or the port fails.
func (m *Mux) Monitor(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(m.port)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case line := <-lines:
			m.distribute(line)
		case err := <-errc:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Mux) distribute(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return
	}
	for _, ch := range m.subscribers {
		select {
		case ch <- line:
		default:
			m.dropped++
			if m.dropped%1000 == 1 {
				monitoring.Logf("odometry: slow subscriber, %d lines dropped so far", m.dropped)
			}
		}
	}
}

// Close closes all subscriber channels and the underlying port.
func (m *Mux) Close() error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return nil
	}
	m.closing = true
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	m.mu.Unlock()
	return m.port.Close()
}
