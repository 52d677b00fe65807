// Package enttec decodes the framed serial protocol of the ENTTEC DMX USB Pro
// and keeps the most recently received 512-channel DMX frame.
//
// Wire format: [0x7E] [label:1] [length:2 LE] [payload:length] [0xE7].
// The device is put into always-send mode at open so received-DMX messages
// (label 0x05) arrive continuously without per-frame requests.
package enttec

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	startDelimiter = 0x7E
	endDelimiter   = 0xE7

	// LabelReceivedDMX carries [status:1][start-code:1][channels...].
	LabelReceivedDMX = 0x05

	labelSetReceiveMode = 0x08

	// Channels is the size of one DMX universe.
	Channels = 512

	// startScanAttempts bounds the hunt for a start delimiter so a poll
	// with no device attached returns quickly.
	startScanAttempts = 5

	// maxMessagesPerPoll caps how much buffered input one Poll drains.
	maxMessagesPerPoll = 10
)

// Message is one decoded protocol frame.
type Message struct {
	Label   byte
	Payload []byte
}

// Input decodes messages from a serial port and holds the last known DMX
// frame. It is owned by a single goroutine; none of its methods lock.
type Input struct {
	port io.ReadWriteCloser

	data          [Channels]byte
	packets       uint64
	framingFaults uint64
	lastStatus    byte
	lastPacket    time.Time
}

// NewInput wraps an open port and enables the device's always-send mode.
// The port's reads must be bounded by a short timeout (a timed-out read
// returns n == 0 with a nil error); Open configures this for real hardware.
func NewInput(port io.ReadWriteCloser) (*Input, error) {
	in := &Input{port: port}
	if err := in.enableAlwaysSend(); err != nil {
		return nil, err
	}
	return in, nil
}

// enableAlwaysSend sends label 8 with mode 0 so the widget forwards every
// received DMX packet without being asked.
func (in *Input) enableAlwaysSend() error {
	msg := []byte{startDelimiter, labelSetReceiveMode, 0x01, 0x00, 0x00, endDelimiter}
	if _, err := in.port.Write(msg); err != nil {
		return err
	}
	return nil
}

// Poll drains up to maxMessagesPerPoll buffered messages and applies any
// received-DMX payloads to the channel array. It returns the number of DMX
// packets applied. A transport fault aborts the drain; the caller keeps
// rendering from the last known frame.
func (in *Input) Poll() int {
	received := 0
	for i := 0; i < maxMessagesPerPoll; i++ {
		msg, err := in.readMessage()
		if err != nil {
			log.Warn().Err(err).Msg("serial read failed; keeping last DMX frame")
			return received
		}
		if msg == nil || msg.Label != LabelReceivedDMX {
			break
		}
		if in.applyDMX(msg.Payload) {
			received++
		}
	}
	return received
}

// readMessage decodes a single frame. It returns (nil, nil) when no complete
// message is available within the port's read timeout, and an error only for
// transport faults.
func (in *Input) readMessage() (*Message, error) {
	var b [1]byte

	found := false
	for i := 0; i < startScanAttempts; i++ {
		n, err := in.port.Read(b[:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		if b[0] == startDelimiter {
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}

	n, err := in.port.Read(b[:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		in.framingFaults++
		return nil, nil
	}
	label := b[0]

	var lenBuf [2]byte
	ok, err := in.readFull(lenBuf[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		in.framingFaults++
		return nil, nil
	}
	length := binary.LittleEndian.Uint16(lenBuf[:])

	payload := make([]byte, length)
	ok, err = in.readFull(payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		in.framingFaults++
		return nil, nil
	}

	// The end delimiter is read but not enforced; some widget firmware
	// omits it under load and the message is still good.
	if _, err := in.port.Read(b[:]); err != nil {
		return nil, err
	}

	return &Message{Label: label, Payload: payload}, nil
}

// readFull reads len(buf) bytes, treating a timed-out (zero byte) read as an
// incomplete frame rather than a fault.
func (in *Input) readFull(buf []byte) (bool, error) {
	got := 0
	for got < len(buf) {
		n, err := in.port.Read(buf[got:])
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
		got += n
	}
	return true, nil
}

// applyDMX copies a received-DMX payload into the channel array. Byte 0 is
// the widget status (kept for diagnostics, never a reason to drop data),
// byte 1 the DMX start code, the rest channel values. Channels past 512 are
// dropped.
func (in *Input) applyDMX(payload []byte) bool {
	if len(payload) < 1 {
		return false
	}
	in.lastStatus = payload[0]
	if len(payload) < 2 {
		return false
	}
	channels := payload[2:]
	if len(channels) == 0 {
		return false
	}
	copy(in.data[:], channels)
	in.packets++
	in.lastPacket = time.Now()
	return true
}

// Channel returns the last received value for a 1-indexed DMX channel.
// Out-of-range channels read as 0.
func (in *Input) Channel(ch int) byte {
	if ch < 1 || ch > Channels {
		return 0
	}
	return in.data[ch-1]
}

// Packets returns the number of DMX packets applied since open.
func (in *Input) Packets() uint64 { return in.packets }

// FramingFaults returns the count of discarded malformed frames.
func (in *Input) FramingFaults() uint64 { return in.framingFaults }

// LastStatus returns the status byte of the most recent DMX packet.
func (in *Input) LastStatus() byte { return in.lastStatus }

// Staleness reports how long ago the last DMX packet arrived. Before any
// packet it reports the time since the zero Time, which reads as "very
// stale".
func (in *Input) Staleness(now time.Time) time.Duration {
	return now.Sub(in.lastPacket)
}

// Close releases the serial port.
func (in *Input) Close() error { return in.port.Close() }

// FrameDMX encodes channel values as a received-DMX message, the frame the
// widget emits toward the host. consolesim uses it to stand in for the real
// interface on a virtual serial pair.
func FrameDMX(channels []byte) []byte {
	if len(channels) > Channels {
		channels = channels[:Channels]
	}
	length := uint16(len(channels) + 2) // status + start code
	out := make([]byte, 0, int(length)+5)
	out = append(out, startDelimiter, LabelReceivedDMX, byte(length), byte(length>>8))
	out = append(out, 0x00, 0x00) // status ok, null start code
	out = append(out, channels...)
	return append(out, endDelimiter)
}
