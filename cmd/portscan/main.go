// portscan lists serial ports and probes each for an ENTTEC DMX USB Pro by
// enabling always-send mode and waiting briefly for a framed message.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/emberworks/candlefire/internal/enttec"
)

func main() {
	var (
		baud  = flag.Int("baud", enttec.DefaultBaud, "serial baud rate")
		probe = flag.Bool("probe", true, "open each port and wait for DMX traffic")
		wait  = flag.Duration("wait", 2*time.Second, "how long to listen per port")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	ports, err := serial.GetPortsList()
	if err != nil {
		log.Fatal().Err(err).Msg("listing serial ports failed")
	}
	if len(ports) == 0 {
		log.Warn().Msg("no serial ports found")
		return
	}

	for _, name := range ports {
		if !*probe {
			log.Info().Str("port", name).Msg("found")
			continue
		}
		probePort(name, *baud, *wait)
	}
}

func probePort(name string, baud int, wait time.Duration) {
	in, err := enttec.Open(name, baud)
	if err != nil {
		log.Warn().Err(err).Str("port", name).Msg("open failed")
		return
	}
	defer in.Close()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if in.Poll() > 0 {
			log.Info().
				Str("port", name).
				Uint8("status", in.LastStatus()).
				Uint8("ch1", in.Channel(1)).
				Msg("ENTTEC interface with live DMX")
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	if in.Packets() > 0 {
		log.Info().Str("port", name).Msg("ENTTEC interface, no DMX input")
		return
	}
	log.Info().Str("port", name).Msg("serial port, no ENTTEC traffic")
}
