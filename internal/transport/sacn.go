package transport

import (
	"fmt"

	"github.com/Hundemeier/go-sacn/sacn"
)

// SACN streams universes through a go-sacn transmitter. Each activated
// universe has a send channel; closing it emits the protocol's
// stream-terminated packets so receivers release the source cleanly.
type SACN struct {
	outs  map[uint16]chan<- [512]byte
	order []uint16
}

// NewSACN builds a transmitter bound to bindAddr (empty for the default
// interface) and activates every routed universe. The CID is derived from
// the source name so restarts present the same source identity.
func NewSACN(bindAddr, sourceName string, routes []UniverseRoute) (*SACN, error) {
	var cid [16]byte
	copy(cid[:], sourceName)

	trans, err := sacn.NewTransmitter(bindAddr, cid, sourceName)
	if err != nil {
		return nil, fmt.Errorf("sacn transmitter: %w", err)
	}

	s := &SACN{outs: make(map[uint16]chan<- [512]byte, len(routes))}
	for _, r := range routes {
		ch, err := trans.Activate(r.Universe)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("activate universe %d: %w", r.Universe, err)
		}
		s.outs[r.Universe] = ch
		s.order = append(s.order, r.Universe)
		if r.Multicast {
			trans.SetMulticast(r.Universe, true)
			continue
		}
		// Destinations are pre-validated as IP literals, so resolution
		// failing here is a startup fault, not a steady-state condition.
		if errs := trans.SetDestinations(r.Universe, r.Destinations); len(errs) > 0 {
			s.Close()
			return nil, fmt.Errorf("universe %d destinations: %v", r.Universe, errs[0])
		}
	}
	return s, nil
}

// Send hands one universe frame to the transmitter. There is no delivery
// feedback by design.
func (s *SACN) Send(universe uint16, frame Frame) error {
	ch, ok := s.outs[universe]
	if !ok {
		return fmt.Errorf("universe %d not activated", universe)
	}
	ch <- frame
	return nil
}

// Close deactivates every universe.
func (s *SACN) Close() error {
	for _, u := range s.order {
		if ch, ok := s.outs[u]; ok {
			close(ch)
			delete(s.outs, u)
		}
	}
	return nil
}
