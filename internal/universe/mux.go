package universe

import (
	"fmt"

	"github.com/emberworks/candlefire/internal/fire"
	"github.com/emberworks/candlefire/internal/transport"
)

// Mux accumulates per-universe 512-byte buffers for one frame. Every buffer
// is fully rewritten each frame: zeroed first, then each rendered pixel's
// three channel bytes land at its fixed offset. Nothing is ever partially
// stale.
type Mux struct {
	topo    *Topology
	order   []uint16
	buffers map[uint16]*[ChannelsPerUniverse]byte
}

// NewMux allocates a buffer per universe in the topology.
func NewMux(t *Topology) *Mux {
	m := &Mux{
		topo:    t,
		order:   t.Universes(),
		buffers: make(map[uint16]*[ChannelsPerUniverse]byte, t.NumUniverses()),
	}
	for _, u := range m.order {
		m.buffers[u] = &[ChannelsPerUniverse]byte{}
	}
	return m
}

// Render zeroes all buffers and writes the frame's pixel colors. Pixels
// outside the topology are ignored; unassigned regions stay zero.
func (m *Mux) Render(colors map[int]fire.RGB) {
	for _, buf := range m.buffers {
		*buf = [ChannelsPerUniverse]byte{}
	}
	for pixel, c := range colors {
		univ, offset, ok := m.topo.Locate(pixel)
		if !ok {
			continue
		}
		buf := m.buffers[univ]
		buf[offset] = c.R
		buf[offset+1] = c.G
		buf[offset+2] = c.B
	}
}

// Flush hands every universe buffer to the sender in ascending universe
// order. The send is connectionless fire-and-forget; an error here means the
// transport itself is broken, not that delivery failed.
func (m *Mux) Flush(s transport.Sender) error {
	for _, u := range m.order {
		if err := s.Send(u, *m.buffers[u]); err != nil {
			return fmt.Errorf("universe %d: %w", u, err)
		}
	}
	return nil
}

// Blackout zeroes every universe and flushes once. The shutdown path calls
// this before releasing the transport so fixtures are never left
// mid-animation.
func (m *Mux) Blackout(s transport.Sender) error {
	for _, buf := range m.buffers {
		*buf = [ChannelsPerUniverse]byte{}
	}
	return m.Flush(s)
}

// Buffer returns a copy of one universe buffer, for tests and diagnostics.
func (m *Mux) Buffer(univ uint16) ([ChannelsPerUniverse]byte, bool) {
	buf, ok := m.buffers[univ]
	if !ok {
		return [ChannelsPerUniverse]byte{}, false
	}
	return *buf, true
}
