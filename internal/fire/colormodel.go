// Package fire synthesizes per-pixel candle flame colors. Every pixel owns
// its own seeded random generator so runs are reproducible and neighbouring
// flames never correlate through shared generator state.
package fire

import (
	"fmt"
	"math"
	"math/rand"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is one output pixel, already quantized to the wire range.
type RGB struct {
	R, G, B uint8
}

// Params are the frame-global control values handed into every pixel update.
// Passing them explicitly (instead of writing shared fields) guarantees no
// pixel ever observes a half-updated parameter set within a frame.
type Params struct {
	Flicker    float64 // 0 slow transitions .. 1 fast
	ColorShift float64 // 0 yellow .. 1 red
	Blue       float64 // 0 none .. 1 white-hot blue component
	Wind       float64 // gust probability drive; <= 0.01 disables gusts
	Master     float64 // overall output gain
}

// Flash is a rare accent color with a selection weight.
type Flash struct {
	Color  string `yaml:"color"` // hex, e.g. "#FFFFC8"
	Weight int    `yaml:"weight"`
}

// ColorModel parameterizes flame color generation. The observed installations
// differ only in these constants, so the model is configuration rather than
// one hard-coded variant.
type ColorModel struct {
	RedMin float64 `yaml:"red_min"`
	RedMax float64 `yaml:"red_max"`

	GreenMean float64 `yaml:"green_mean"`
	GreenStd  float64 `yaml:"green_std"`
	GreenMin  float64 `yaml:"green_min"`
	GreenMax  float64 `yaml:"green_max"`

	// ShiftSensitivity scales how strongly the color-shift parameter pulls
	// green down (yellow toward red).
	ShiftSensitivity float64 `yaml:"shift_sensitivity"`

	IntensityMin   float64 `yaml:"intensity_min"`
	IntensityMax   float64 `yaml:"intensity_max"`
	IntensityCurve float64 `yaml:"intensity_curve"`

	// Blue byte range, scaled by the blue-amount parameter.
	BlueMin float64 `yaml:"blue_min"`
	BlueMax float64 `yaml:"blue_max"`

	FlashChance float64 `yaml:"flash_chance"`
	FlashMinS   float64 `yaml:"flash_min_s"`
	FlashMaxS   float64 `yaml:"flash_max_s"`
	Flashes     []Flash `yaml:"flashes"`

	// weight-expanded flash palette, built by Compile
	flashes []RGB
}

// DefaultColorModel returns the classic warm candle model: near-saturated
// red, gaussian green centered on orange-yellow, no blue unless commanded,
// and a 1% white-hot/blue-flame flash weighted 2:1.
func DefaultColorModel() ColorModel {
	return ColorModel{
		RedMin:           0.90,
		RedMax:           1.0,
		GreenMean:        0.55,
		GreenStd:         0.15,
		GreenMin:         0.30,
		GreenMax:         0.80,
		ShiftSensitivity: 0.7,
		IntensityMin:     0.6,
		IntensityMax:     1.0,
		IntensityCurve:   1.1,
		BlueMin:          30,
		BlueMax:          100,
		FlashChance:      0.01,
		FlashMinS:        0.1,
		FlashMaxS:        0.25,
		Flashes: []Flash{
			{Color: "#FFFFC8", Weight: 2}, // white-hot
			{Color: "#6496FF", Weight: 1}, // blue flame
		},
	}
}

// Compile parses the flash hex colors and expands their weights. It must be
// called once before the model is used; bad hex strings are startup faults.
func (m *ColorModel) Compile() error {
	m.flashes = m.flashes[:0]
	for _, f := range m.Flashes {
		c, err := colorful.Hex(f.Color)
		if err != nil {
			return fmt.Errorf("flash color %q: %w", f.Color, err)
		}
		r, g, b := c.RGB255()
		if f.Weight < 1 {
			return fmt.Errorf("flash color %q: weight must be >= 1", f.Color)
		}
		for i := 0; i < f.Weight; i++ {
			m.flashes = append(m.flashes, RGB{r, g, b})
		}
	}
	return nil
}

// Validate checks the model's ranges and flash palette without mutating it.
func (m *ColorModel) Validate() error {
	check := func(name string, lo, hi float64) error {
		if lo < 0 || hi > 1 || lo > hi {
			return fmt.Errorf("%s range %g-%g invalid", name, lo, hi)
		}
		return nil
	}
	if err := check("red", m.RedMin, m.RedMax); err != nil {
		return err
	}
	if err := check("green", m.GreenMin, m.GreenMax); err != nil {
		return err
	}
	if err := check("intensity", m.IntensityMin, m.IntensityMax); err != nil {
		return err
	}
	if m.BlueMin < 0 || m.BlueMax > 255 || m.BlueMin > m.BlueMax {
		return fmt.Errorf("blue range %g-%g invalid", m.BlueMin, m.BlueMax)
	}
	if m.FlashChance < 0 || m.FlashChance > 1 {
		return fmt.Errorf("flash_chance %g out of range [0,1]", m.FlashChance)
	}
	if m.FlashMinS <= 0 || m.FlashMaxS < m.FlashMinS {
		return fmt.Errorf("flash duration range %g-%g invalid", m.FlashMinS, m.FlashMaxS)
	}
	probe := *m
	probe.flashes = nil
	return probe.Compile()
}

// generate draws the next target color. The bool result marks a flash, which
// uses the short flash transition duration.
func (m *ColorModel) generate(rng *rand.Rand, p Params) (RGB, bool) {
	if len(m.flashes) > 0 && rng.Float64() < m.FlashChance {
		return m.flashes[rng.Intn(len(m.flashes))], true
	}

	intensity := uniform(rng, m.IntensityMin, m.IntensityMax)

	red := 255 * uniform(rng, m.RedMin, m.RedMax)

	green := rng.NormFloat64()*m.GreenStd + m.GreenMean
	green = clamp(green, m.GreenMin, m.GreenMax)
	green *= 1.0 - p.ColorShift*m.ShiftSensitivity
	green = 255 * green * math.Pow(intensity, m.IntensityCurve)

	blue := uniform(rng, m.BlueMin, m.BlueMax) * p.Blue

	return RGB{quantize(red), quantize(green), quantize(blue)}, false
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// quantize truncates to the byte range the way the fixtures expect.
func quantize(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
