package transport

import "sync"

// Loopback records frames instead of sending them. It backs headless tests
// and the console simulator the same way the real sender backs hardware.
type Loopback struct {
	mu     sync.Mutex
	last   map[uint16]Frame
	counts map[uint16]int
	closed bool
}

// NewLoopback returns an empty recording sender.
func NewLoopback() *Loopback {
	return &Loopback{
		last:   make(map[uint16]Frame),
		counts: make(map[uint16]int),
	}
}

func (l *Loopback) Send(universe uint16, frame Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[universe] = frame
	l.counts[universe]++
	return nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Last returns the most recent frame sent to a universe.
func (l *Loopback) Last(universe uint16) (Frame, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.last[universe]
	return f, ok
}

// Sends returns how many frames a universe has received.
func (l *Loopback) Sends(universe uint16) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[universe]
}

// Closed reports whether Close was called.
func (l *Loopback) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
