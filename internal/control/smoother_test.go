package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHysteresisSuppressesSmallChanges(t *testing.T) {
	p := NewParam(0, 0)
	for i := 0; i < 50; i++ {
		p.Update(128)
	}
	target := p.Target()

	// +-4 raw counts is under the 5/255 threshold: target must not move.
	p.Update(132)
	assert.Equal(t, target, p.Target())
	p.Update(124)
	assert.Equal(t, target, p.Target())

	// +6 raw counts exceeds it: target snaps to the new value exactly.
	p.Update(134)
	assert.Equal(t, 134.0/255.0, p.Target())
}

func TestSmoothingConvergesWithin14Frames(t *testing.T) {
	for _, start := range []byte{0, 40, 200, 255} {
		p := NewParam(0, 0)
		for i := 0; i < 100; i++ {
			p.Update(start) // settle at the starting point
		}
		for i := 0; i < 14; i++ {
			p.Update(255)
		}
		assert.InDelta(t, 1.0, p.Current(), 0.01, "start=%d", start)
	}
}

func TestSmoothingStepFraction(t *testing.T) {
	p := NewParam(0, 0)
	got := p.Update(255)
	// One step from 0 toward 1.0 at factor 0.3.
	assert.InDelta(t, 0.3, got, 1e-9)
	got = p.Update(255)
	assert.InDelta(t, 0.51, got, 1e-9)
}

func TestSettlesToExactZero(t *testing.T) {
	p := NewParam(0, 0)
	for i := 0; i < 30; i++ {
		p.Update(255)
	}
	assert.False(t, p.Off())
	for i := 0; i < 60; i++ {
		p.Update(0)
	}
	assert.True(t, p.Off())
	assert.Zero(t, p.Current())
}

func TestNormalization(t *testing.T) {
	p := NewParam(0, 1.0) // factor 1: current == target
	assert.InDelta(t, 1.0, p.Update(255), 1e-9)
	assert.True(t, math.Abs(p.Update(0)-0.0) < 1e-9)
}
