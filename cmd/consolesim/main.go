// consolesim plays a lighting console: it writes framed DMX messages to a
// serial port the way an ENTTEC DMX USB Pro hands them to the host. Point it
// at one end of a virtual serial pair (socat) to exercise the controller
// without hardware.
package main

import (
	"flag"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/emberworks/candlefire/internal/enttec"
)

func main() {
	var (
		port      = flag.String("port", "", "serial port to write to (required)")
		baud      = flag.Int("baud", enttec.DefaultBaud, "serial baud rate")
		rate      = flag.Int("rate", 40, "DMX frames per second")
		intensity = flag.Int("intensity", 255, "bank intensity value (channel 1)")
		flicker   = flag.Int("flicker", 128, "flicker value (channel 2)")
		shift     = flag.Int("shift", 0, "color shift value (channel 3)")
		blue      = flag.Int("blue", 0, "blue amount value (channel 4)")
		wind      = flag.Int("wind", 0, "wind value (channel 5)")
		master    = flag.Int("master", 255, "master value (channel 6)")
		breathe   = flag.Bool("breathe", false, "slowly oscillate the intensity channel")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if *port == "" {
		log.Fatal().Msg("-port is required")
	}

	sp, err := serial.Open(*port, &serial.Mode{
		BaudRate: *baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		log.Fatal().Err(err).Str("port", *port).Msg("open failed")
	}
	defer sp.Close()

	var channels [512]byte
	channels[0] = byte(*intensity)
	channels[1] = byte(*flicker)
	channels[2] = byte(*shift)
	channels[3] = byte(*blue)
	channels[4] = byte(*wind)
	channels[5] = byte(*master)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	log.Info().Str("port", *port).Int("rate", *rate).Msg("sending DMX")
	start := time.Now()
	for {
		select {
		case <-stop:
			log.Info().Msg("stopping")
			return
		case <-ticker.C:
		}
		if *breathe {
			t := time.Since(start).Seconds()
			channels[0] = byte(127.5 + 127.5*math.Sin(t/3))
		}
		if _, err := sp.Write(enttec.FrameDMX(channels[:])); err != nil {
			log.Fatal().Err(err).Msg("write failed")
		}
	}
}
