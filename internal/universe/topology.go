// Package universe maps the flat pixel space onto fixed-size sACN transport
// frames and routes each universe to its destination.
package universe

import (
	"fmt"
	"net"

	"github.com/emberworks/candlefire/internal/transport"
)

const (
	// ChannelsPerUniverse is the DMX universe size.
	ChannelsPerUniverse = 512

	channelsPerPixel = 3

	// PixelsPerUniverse is how many RGB pixels pack into one universe:
	// 512/3 floored, leaving two channels unused per universe.
	PixelsPerUniverse = ChannelsPerUniverse / channelsPerPixel
)

// DestinationSpec names a unicast target and the inclusive pixel range it
// serves. Ranges may leave gaps (dark regions between physical strings);
// gap pixels stay zeroed forever.
type DestinationSpec struct {
	Address    string
	FirstPixel int
	LastPixel  int
}

// Topology is the static pixel-to-universe mapping derived once at startup.
type Topology struct {
	totalPixels int
	start       uint16
	count       int
	multicast   bool

	// owner[i] is the destination address for universe index i (unicast
	// modes only). Universes covered by no range fall back to the first
	// destination; they only ever carry zeros.
	owner []string
}

// NewTopology validates the configuration and derives the universe layout.
// Any fault here is fatal before the frame loop starts.
func NewTopology(totalPixels int, startUniverse uint16, dests []DestinationSpec, multicast bool) (*Topology, error) {
	if totalPixels < 1 || totalPixels > 10000 {
		return nil, fmt.Errorf("total pixels %d out of range [1,10000]", totalPixels)
	}
	if startUniverse < 1 {
		return nil, fmt.Errorf("start universe must be >= 1")
	}
	if len(dests) < 1 || len(dests) > 2 {
		return nil, fmt.Errorf("need 1 or 2 destinations, got %d", len(dests))
	}

	count := (totalPixels + PixelsPerUniverse - 1) / PixelsPerUniverse
	t := &Topology{
		totalPixels: totalPixels,
		start:       startUniverse,
		count:       count,
		multicast:   multicast,
		owner:       make([]string, count),
	}

	lastOwned := -1
	for i, d := range dests {
		if net.ParseIP(d.Address) == nil {
			return nil, fmt.Errorf("destination %d: invalid address %q", i+1, d.Address)
		}
		if d.FirstPixel < 0 || d.LastPixel >= totalPixels || d.FirstPixel > d.LastPixel {
			return nil, fmt.Errorf("destination %d: pixel range %d-%d invalid for %d pixels",
				i+1, d.FirstPixel, d.LastPixel, totalPixels)
		}
		firstU := d.FirstPixel / PixelsPerUniverse
		lastU := d.LastPixel / PixelsPerUniverse
		if firstU <= lastOwned {
			return nil, fmt.Errorf("destination %d: pixel range %d-%d shares universe %d with the previous destination",
				i+1, d.FirstPixel, d.LastPixel, firstU)
		}
		for u := firstU; u <= lastU; u++ {
			t.owner[u] = d.Address
		}
		lastOwned = lastU
	}

	// Universes inside a gap that no range touches still get sent (all
	// zero) so fixtures listening there blank out; route them to the
	// first destination.
	for u := range t.owner {
		if t.owner[u] == "" {
			t.owner[u] = dests[0].Address
		}
	}

	return t, nil
}

// TotalPixels returns the size of the flat pixel space.
func (t *Topology) TotalPixels() int { return t.totalPixels }

// NumUniverses returns how many universes the pixel space occupies.
func (t *Topology) NumUniverses() int { return t.count }

// Universes lists the universe numbers in ascending order.
func (t *Topology) Universes() []uint16 {
	out := make([]uint16, t.count)
	for i := range out {
		out[i] = t.start + uint16(i)
	}
	return out
}

// Locate maps a pixel index to its universe number and channel offset.
// ok is false for pixels outside the topology.
func (t *Topology) Locate(pixel int) (univ uint16, offset int, ok bool) {
	if pixel < 0 || pixel >= t.totalPixels {
		return 0, 0, false
	}
	return t.start + uint16(pixel/PixelsPerUniverse), (pixel % PixelsPerUniverse) * channelsPerPixel, true
}

// Multicast reports whether universes are broadcast to their multicast
// groups instead of unicast targets.
func (t *Topology) Multicast() bool { return t.multicast }

// Routes describes every universe for the transport layer.
func (t *Topology) Routes() []transport.UniverseRoute {
	routes := make([]transport.UniverseRoute, t.count)
	for i := range routes {
		routes[i] = transport.UniverseRoute{
			Universe:  t.start + uint16(i),
			Multicast: t.multicast,
		}
		if !t.multicast {
			routes[i].Destinations = []string{t.owner[i]}
		}
	}
	return routes
}
