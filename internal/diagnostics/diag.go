// Package diagnostics defines the structured fault reports the engine and
// monitor exchange: serial link loss, framing faults, stale DMX input.
package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Well-known diagnostic codes.
const (
	CodeSerialOpen    = "serial_open_failed"
	CodeSerialFault   = "serial_fault"
	CodeFramingFault  = "framing_fault"
	CodeInputStale    = "input_stale"
	CodeFrameOverrun  = "frame_overrun"
	CodeTransportSend = "transport_send_failed"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	At             time.Time      `json:"at"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// InputStale reports that no DMX frame has arrived for the given duration.
// The show keeps running on the last smoothed parameters.
func InputStale(age time.Duration) Diagnostic {
	return Diagnostic{
		Severity: Warn,
		Code:     CodeInputStale,
		Summary:  "no DMX received recently",
		Detail:   "holding last parameter values",
		At:       time.Now(),
		LikelyCauses: []string{
			"lighting console stopped transmitting",
			"USB interface unplugged",
		},
		SuggestedFixes: []string{
			"check the console output",
			"check the USB cable and re-run portscan",
		},
		Evidence: map[string]any{"age_seconds": age.Seconds()},
	}
}

// SerialFault reports a read error on the DMX interface.
func SerialFault(err error) Diagnostic {
	return Diagnostic{
		Severity: Err,
		Code:     CodeSerialFault,
		Summary:  "serial read failed",
		Detail:   err.Error(),
		At:       time.Now(),
		LikelyCauses: []string{
			"USB interface unplugged",
			"port opened by another process",
		},
		SuggestedFixes: []string{"reconnect the interface and restart"},
	}
}

// TransportFault reports an sACN send failure for one universe.
func TransportFault(universe uint16, err error) Diagnostic {
	return Diagnostic{
		Severity: Err,
		Code:     CodeTransportSend,
		Summary:  "sACN send failed",
		Detail:   err.Error(),
		At:       time.Now(),
		Evidence: map[string]any{"universe": universe},
	}
}
