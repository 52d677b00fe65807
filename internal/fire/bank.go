package fire

import (
	"time"

	"github.com/emberworks/candlefire/internal/control"
)

// Bank is a named group of flame pixels sharing one commanded intensity.
// Banks own disjoint pixel index sets; config validation enforces that at
// setup and nothing checks it at runtime.
type Bank struct {
	id        int
	pixels    []*Pixel
	intensity *control.Param
}

// NewBank creates the bank's pixels, one seeded synthesizer per index.
func NewBank(id int, indices []int, model *ColorModel, intensity *control.Param, p Params, now time.Time) *Bank {
	b := &Bank{
		id:        id,
		pixels:    make([]*Pixel, 0, len(indices)),
		intensity: intensity,
	}
	for _, idx := range indices {
		b.pixels = append(b.pixels, NewPixel(idx, model, p, now))
	}
	return b
}

// ID returns the bank number as configured.
func (b *Bank) ID() int { return b.id }

// Size returns the number of owned pixels.
func (b *Bank) Size() int { return len(b.pixels) }

// SetIntensity feeds the bank's raw DMX intensity byte through its smoother.
func (b *Bank) SetIntensity(raw byte) {
	b.intensity.Update(raw)
}

// Intensity returns the current smoothed intensity.
func (b *Bank) Intensity() float64 { return b.intensity.Current() }

// Update renders every owned pixel into out, scaled by the bank intensity
// and the master gain. A bank settled at zero writes exact black without
// touching the synthesizers: off means off, not nearly off.
func (b *Bank) Update(now time.Time, p Params, out map[int]RGB) {
	if b.intensity.Off() {
		for _, px := range b.pixels {
			out[px.index] = RGB{}
		}
		return
	}
	gain := b.intensity.Current() * p.Master
	for _, px := range b.pixels {
		out[px.index] = scale(px.Update(now, p), gain)
	}
}
