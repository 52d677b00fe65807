package fire

import (
	"math"
	"math/rand"
	"time"
)

// Pixel is the per-flame state machine. Two nested cycles run off the wall
// clock (not the frame count, so behavior is frame-rate independent): a
// color transition cycle easing between procedurally drawn targets, and a
// slow sinusoidal intensity oscillation. An optional wind gust dips the
// intensity along a triangular envelope.
type Pixel struct {
	index int
	rng   *rand.Rand
	model *ColorModel

	current         RGB
	target          RGB
	transitionStart time.Time
	transitionDur   time.Duration

	baseIntensity float64
	phase         float64
	speed         float64

	gust gust
}

type gust struct {
	active bool
	start  time.Time
	dur    time.Duration
	trough float64
}

// NewPixel builds a pixel seeded with its own index, so a rebuilt topology
// reproduces the identical flame.
func NewPixel(index int, model *ColorModel, p Params, now time.Time) *Pixel {
	px := &Pixel{
		index: index,
		rng:   rand.New(rand.NewSource(int64(index))),
		model: model,
	}
	px.target, _ = model.generate(px.rng, p)
	px.transitionStart = now
	px.transitionDur = seconds(uniform(px.rng, 0.2, 1.5))
	px.baseIntensity = uniform(px.rng, 0.4, 0.9)
	px.phase = uniform(px.rng, 0, 2*math.Pi)
	px.speed = uniform(px.rng, 0.5, 3.0)
	return px
}

// Index returns the pixel's position in the flat pixel space.
func (px *Pixel) Index() int { return px.index }

// Update advances the state machine to now and returns the frame color.
func (px *Pixel) Update(now time.Time, p Params) RGB {
	elapsed := now.Sub(px.transitionStart)
	if elapsed >= px.transitionDur {
		px.current = px.target
		px.transitionStart = now
		elapsed = 0

		var flash bool
		px.target, flash = px.model.generate(px.rng, p)
		if flash {
			px.transitionDur = seconds(uniform(px.rng, px.model.FlashMinS, px.model.FlashMaxS))
		} else {
			px.transitionDur = seconds(px.drawDuration(p.Flicker))
		}
	}

	t := 1.0
	if px.transitionDur > 0 {
		t = elapsed.Seconds() / px.transitionDur.Seconds()
	}
	t = clamp(t, 0, 1)
	t = t * t * (3.0 - 2.0*t) // smoothstep
	c := lerp(px.current, px.target, t)

	px.phase += px.speed * 0.01
	osc := (math.Sin(px.phase) + 1.0) / 2.0
	mult := px.baseIntensity * (0.6 + 0.4*osc)
	mult *= px.gustMultiplier(now, p)

	return scale(c, mult)
}

// drawDuration picks a transition length from three buckets (quick flicker,
// medium, slow slide) and scales it by the commanded flicker speed: flicker 1
// halves durations, flicker 0 doubles them.
func (px *Pixel) drawDuration(flicker float64) float64 {
	var lo, hi float64
	switch r := px.rng.Float64(); {
	case r < 0.3:
		lo, hi = 0.05, 0.2
	case r < 0.7:
		lo, hi = 0.3, 0.8
	default:
		lo, hi = 1.0, 2.5
	}
	return uniform(px.rng, lo, hi) * (2.0 - flicker)
}

// gustMultiplier advances gust state and returns the intensity factor for
// this frame. When idle and wind is commanded, a gust starts with
// probability wind*0.05 per frame.
func (px *Pixel) gustMultiplier(now time.Time, p Params) float64 {
	g := &px.gust
	if g.active {
		progress := now.Sub(g.start).Seconds() / g.dur.Seconds()
		if progress >= 1 {
			g.active = false
			return 1
		}
		return GustEnvelope(progress, g.trough)
	}
	if p.Wind <= 0.01 {
		return 1
	}
	if px.rng.Float64() < p.Wind*0.05 {
		g.active = true
		g.start = now
		g.dur = seconds(uniform(px.rng, 0.05, 0.4))
		g.trough = uniform(px.rng, 0.1, 0.8)
	}
	return 1
}

// GustEnvelope is the triangular gust shape: 1 at progress 0, linearly down
// to trough at 0.5, linearly back to 1 at progress 1.
func GustEnvelope(progress, trough float64) float64 {
	if progress <= 0 || progress >= 1 {
		return 1
	}
	if progress < 0.5 {
		return 1 - (1-trough)*(progress/0.5)
	}
	return trough + (1-trough)*((progress-0.5)/0.5)
}

func lerp(a, b RGB, t float64) RGB {
	return RGB{
		R: quantize(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: quantize(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: quantize(float64(a.B) + (float64(b.B)-float64(a.B))*t),
	}
}

func scale(c RGB, f float64) RGB {
	return RGB{
		R: quantize(float64(c.R) * f),
		G: quantize(float64(c.G) * f),
		B: quantize(float64(c.B) * f),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
