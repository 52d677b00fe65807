// Package engine runs the show: one goroutine polls DMX, synthesizes flame
// colors and flushes sACN at a fixed frame rate. All mutable state lives on
// that goroutine; the only concurrency is the cooperative ctx cancel.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/emberworks/candlefire/internal/config"
	"github.com/emberworks/candlefire/internal/control"
	"github.com/emberworks/candlefire/internal/diagnostics"
	"github.com/emberworks/candlefire/internal/fire"
	"github.com/emberworks/candlefire/internal/transport"
	"github.com/emberworks/candlefire/internal/universe"
)

// DMXSource abstracts the ENTTEC input so tests can script channel values.
type DMXSource interface {
	Poll() int
	Channel(ch int) byte
	Packets() uint64
	FramingFaults() uint64
	Staleness(now time.Time) time.Duration
	Close() error
}

// Parameter defaults used while a channel is unassigned (channel 0).
const (
	defaultFlicker = 0.5
	defaultMaster  = 1.0
)

// staleAfter is how long without a DMX packet before the engine raises a
// warning. The show keeps running on the last smoothed values either way.
const staleAfter = 5 * time.Second

const statsEvery = 5 * time.Second

// Stats is a periodic snapshot of loop health.
type Stats struct {
	FPS           float64   `json:"fps"`
	Frames        uint64    `json:"frames"`
	Packets       uint64    `json:"packets"`
	FramingFaults uint64    `json:"framing_faults"`
	StalenessS    float64   `json:"staleness_s"`
	Banks         []float64 `json:"banks"` // smoothed intensity per bank
	At            time.Time `json:"at"`
}

type bankBinding struct {
	bank    *fire.Bank
	channel int
}

type Engine struct {
	cfg    *config.Config
	src    DMXSource
	sender transport.Sender
	mux    *universe.Mux
	topo   *universe.Topology
	model  fire.ColorModel

	banks []bankBinding

	flicker *control.Param
	shift   *control.Param
	blue    *control.Param
	wind    *control.Param
	master  *control.Param

	colors map[int]fire.RGB

	log zerolog.Logger

	// OnStats and OnDiag, when set, receive periodic snapshots and fault
	// reports. Both are called from the frame goroutine and must not block.
	OnStats func(Stats)
	OnDiag  func(diagnostics.Diagnostic)

	frames    uint64
	stale     bool
	lastStats time.Time
	statsBase uint64
}

// New wires the pipeline together. The topology is derived once by the
// caller and shared with the transport's routes, so the two can never
// disagree. The source and sender are owned by the engine from here on; Run
// closes both on exit.
func New(cfg *config.Config, topo *universe.Topology, src DMXSource, sender transport.Sender, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	model := cfg.Color
	if err := model.Compile(); err != nil {
		return nil, fmt.Errorf("color model: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		src:    src,
		sender: sender,
		mux:    universe.NewMux(topo),
		topo:   topo,
		model:  model,
		colors: make(map[int]fire.RGB, cfg.TotalPixels),
		log:    log.With().Str("component", "engine").Logger(),

		flicker: control.NewParam(cfg.Smoothing.Hysteresis, cfg.Smoothing.Factor),
		shift:   control.NewParam(cfg.Smoothing.Hysteresis, cfg.Smoothing.Factor),
		blue:    control.NewParam(cfg.Smoothing.Hysteresis, cfg.Smoothing.Factor),
		wind:    control.NewParam(cfg.Smoothing.Hysteresis, cfg.Smoothing.Factor),
		master:  control.NewParam(cfg.Smoothing.Hysteresis, cfg.Smoothing.Factor),
	}

	now := time.Now()
	seed := fire.Params{Flicker: defaultFlicker, Master: defaultMaster}
	for i, b := range cfg.Banks {
		indices := make([]int, 0, (b.LastPixel-b.FirstPixel)/cfg.Spacing+1)
		for px := b.FirstPixel; px <= b.LastPixel; px += cfg.Spacing {
			indices = append(indices, px)
		}
		intensity := control.NewParam(cfg.Smoothing.Hysteresis, cfg.Smoothing.Factor)
		e.banks = append(e.banks, bankBinding{
			bank:    fire.NewBank(i, indices, &e.model, intensity, seed, now),
			channel: b.Channel,
		})
	}

	return e, nil
}

// Topology exposes the derived universe layout, mainly for startup logging.
func (e *Engine) Topology() *universe.Topology { return e.topo }

// Run drives frames until ctx is cancelled, then blacks out the fixtures and
// closes the transport and the DMX source.
func (e *Engine) Run(ctx context.Context) error {
	frameDur := time.Second / time.Duration(e.cfg.FPS)
	e.log.Info().
		Int("fps", e.cfg.FPS).
		Int("pixels", e.cfg.TotalPixels).
		Int("universes", e.topo.NumUniverses()).
		Int("banks", len(e.banks)).
		Msg("show running")

	defer e.shutdown()

	e.lastStats = time.Now()
	next := time.Now().Add(frameDur)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := time.Now()
		e.frame(now)
		e.frames++

		if now.Sub(e.lastStats) >= statsEvery {
			e.reportStats(now)
		}

		next = e.paceSleep(ctx, next, frameDur)
	}
}

// frame is one full pass: DMX in, parameter smoothing, flame synthesis,
// sACN out.
func (e *Engine) frame(now time.Time) {
	e.src.Poll()

	p := e.params()
	e.checkStale(now)

	for _, bb := range e.banks {
		bb.bank.SetIntensity(e.src.Channel(bb.channel))
		bb.bank.Update(now, p, e.colors)
	}

	e.mux.Render(e.colors)
	if err := e.mux.Flush(e.sender); err != nil {
		e.log.Warn().Err(err).Msg("sACN flush failed")
		e.diag(diagnostics.TransportFault(0, err))
	}
}

// params reads the shared show channels through their smoothers. Channel 0
// means unassigned and yields the fixed default instead.
func (e *Engine) params() fire.Params {
	read := func(p *control.Param, ch int, def float64) float64 {
		if ch == 0 {
			return def
		}
		return p.Update(e.src.Channel(ch))
	}
	return fire.Params{
		Flicker:    read(e.flicker, e.cfg.Channels.Flicker, defaultFlicker),
		ColorShift: read(e.shift, e.cfg.Channels.ColorShift, 0),
		Blue:       read(e.blue, e.cfg.Channels.Blue, 0),
		Wind:       read(e.wind, e.cfg.Channels.Wind, 0),
		Master:     read(e.master, e.cfg.Channels.Master, defaultMaster),
	}
}

func (e *Engine) checkStale(now time.Time) {
	age := e.src.Staleness(now)
	if age >= staleAfter && !e.stale {
		e.stale = true
		e.log.Warn().Dur("age", age).Msg("DMX input stale, holding last values")
		e.diag(diagnostics.InputStale(age))
	} else if age < staleAfter && e.stale {
		e.stale = false
		e.log.Info().Msg("DMX input recovered")
	}
}

// paceSleep holds the loop to the frame rate. A late frame resets the
// schedule from now instead of bursting to catch up; output pacing matters
// more than frame count.
func (e *Engine) paceSleep(ctx context.Context, next time.Time, frameDur time.Duration) time.Time {
	now := time.Now()
	if now.After(next) {
		return now.Add(frameDur)
	}
	t := time.NewTimer(next.Sub(now))
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	return next.Add(frameDur)
}

func (e *Engine) reportStats(now time.Time) {
	elapsed := now.Sub(e.lastStats).Seconds()
	frames := e.frames - e.statsBase
	s := Stats{
		FPS:           float64(frames) / elapsed,
		Frames:        e.frames,
		Packets:       e.src.Packets(),
		FramingFaults: e.src.FramingFaults(),
		StalenessS:    e.src.Staleness(now).Seconds(),
		At:            now,
	}
	for _, bb := range e.banks {
		s.Banks = append(s.Banks, bb.bank.Intensity())
	}
	e.log.Info().
		Float64("fps", s.FPS).
		Uint64("packets", s.Packets).
		Uint64("framing_faults", s.FramingFaults).
		Float64("staleness_s", s.StalenessS).
		Msg("stats")
	if e.OnStats != nil {
		e.OnStats(s)
	}
	e.lastStats = now
	e.statsBase = e.frames
}

func (e *Engine) diag(d diagnostics.Diagnostic) {
	if e.OnDiag != nil {
		e.OnDiag(d)
	}
}

// shutdown blacks out every universe before tearing the transport down so
// fixtures never hold the last frame.
func (e *Engine) shutdown() {
	if err := e.mux.Blackout(e.sender); err != nil {
		e.log.Warn().Err(err).Msg("blackout flush failed")
	}
	if err := e.sender.Close(); err != nil {
		e.log.Warn().Err(err).Msg("transport close failed")
	}
	if err := e.src.Close(); err != nil {
		e.log.Warn().Err(err).Msg("serial close failed")
	}
	e.log.Info().Uint64("frames", e.frames).Msg("show stopped")
}
