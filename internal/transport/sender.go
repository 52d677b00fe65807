// Package transport abstracts the outbound lighting network. The real
// implementation speaks sACN (E1.31) over UDP; a loopback sender stands in
// for headless tests.
package transport

// Frame is one universe worth of channel data.
type Frame = [512]byte

// UniverseRoute tells a sender where one universe goes. With Multicast set
// the universe is sent to its E1.31 multicast group and Destinations is
// ignored; otherwise every listed unicast address receives it.
type UniverseRoute struct {
	Universe     uint16
	Destinations []string
	Multicast    bool
}

// Sender pushes universe frames onto the network. Sends are connectionless
// and unacknowledged: a send is complete once handed to the transport.
type Sender interface {
	Send(universe uint16, frame Frame) error
	Close() error
}
