// Package control turns raw 8-bit DMX channel values into stable control
// parameters. Each parameter keeps a hysteresis-filtered target and an
// exponentially smoothed current value so single-LSB console jitter never
// reaches the renderer and 8-bit steps fade in over a few frames.
package control

import "math"

const (
	// DefaultHysteresis ignores raw changes under 5/255 of full scale.
	DefaultHysteresis = 5.0 / 255.0

	// DefaultSmoothing moves current 30% of the way to target per frame,
	// settling within 5% in under 150 ms at 60 Hz.
	DefaultSmoothing = 0.3

	// snapEpsilon collapses the asymptotic tail of the exponential so a
	// parameter driven to an endpoint actually reaches it.
	snapEpsilon = 1e-4
)

// Param is one smoothed control parameter in [0,1].
type Param struct {
	target     float64
	current    float64
	hysteresis float64
	factor     float64
}

// NewParam returns a parameter starting at zero. Non-positive hysteresis or
// factor select the defaults.
func NewParam(hysteresis, factor float64) *Param {
	if hysteresis <= 0 {
		hysteresis = DefaultHysteresis
	}
	if factor <= 0 {
		factor = DefaultSmoothing
	}
	return &Param{hysteresis: hysteresis, factor: factor}
}

// Update feeds one raw channel byte and advances the smoother one frame,
// returning the new current value.
func (p *Param) Update(raw byte) float64 {
	v := float64(raw) / 255.0
	if math.Abs(v-p.target) > p.hysteresis {
		p.target = v
	}
	p.current += (p.target - p.current) * p.factor
	if math.Abs(p.current-p.target) < snapEpsilon {
		p.current = p.target
	}
	return p.current
}

// Current returns the smoothed value.
func (p *Param) Current() float64 { return p.current }

// Target returns the hysteresis-filtered target.
func (p *Param) Target() float64 { return p.target }

// Off reports whether the parameter has settled at exactly zero. Banks use
// this to emit true black instead of a near-zero residue.
func (p *Param) Off() bool { return p.target == 0 && p.current == 0 }
