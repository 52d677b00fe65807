package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/emberworks/candlefire/internal/config"
	"github.com/emberworks/candlefire/internal/engine"
	"github.com/emberworks/candlefire/internal/enttec"
	"github.com/emberworks/candlefire/internal/monitor"
	"github.com/emberworks/candlefire/internal/transport"
)

func main() {
	var (
		configPath = flag.String("config", "show.yaml", "path to the show config")
		port       = flag.String("port", "", "serial port override (e.g. /dev/ttyUSB0)")
		addr       = flag.String("addr", "", "monitor listen address override (e.g. :8080)")
		writeCfg   = flag.Bool("write-config", false, "write the default config to -config and exit")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *writeCfg {
		if err := config.Save(*configPath, config.Default()); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("write config failed")
		}
		log.Info().Str("path", *configPath).Msg("default config written")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *addr != "" {
		cfg.Monitor.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config invalid")
	}

	input, err := enttec.Open(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Serial.Port).Msg("DMX interface open failed; try portscan")
	}

	eng, err := buildEngine(cfg, input)
	if err != nil {
		_ = input.Close()
		log.Fatal().Err(err).Msg("engine init failed")
	}

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Monitor.Addr != "" {
		mon := monitor.New(cfg.TotalPixels, eng.Topology().NumUniverses(), log.Logger)
		eng.OnStats = mon.PushStats
		eng.OnDiag = mon.PushDiag
		go func() {
			if err := mon.Serve(ctx, cfg.Monitor.Addr); err != nil {
				log.Warn().Err(err).Msg("monitor server stopped")
			}
		}()
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		s := <-ch
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
	}()

	if err := eng.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("show crashed")
	}
}

// buildEngine derives the universe topology once, opens the sACN transmitter
// on its routes and hands both to the engine, which owns them from then on.
func buildEngine(cfg *config.Config, input *enttec.Input) (*engine.Engine, error) {
	topo, err := cfg.Topology()
	if err != nil {
		return nil, err
	}
	sender, err := transport.NewSACN(cfg.BindAddr, cfg.SourceName, topo.Routes())
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg, topo, input, sender, log.Logger)
	if err != nil {
		_ = sender.Close()
		return nil, err
	}
	return eng, nil
}
