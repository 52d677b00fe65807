package enttec

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud is the widget's fixed rate.
const DefaultBaud = 115200

// readTimeout bounds every byte read so the frame loop never stalls waiting
// on a silent or unplugged device.
const readTimeout = time.Millisecond

// Open opens the ENTTEC widget on the named serial port (8N1) and returns a
// ready Input. A failure here is a startup fault; once open, transport
// errors are absorbed by Poll.
func Open(portName string, baud int) (*Input, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", portName, err)
	}
	in, err := NewInput(port)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("enable always-send mode on %s: %w", portName, err)
	}
	return in, nil
}
