package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.yaml")
	c := Default()
	c.TotalPixels = 875
	c.Banks = []Bank{
		{Name: "altar", Channel: 1, FirstPixel: 0, LastPixel: 499},
		{Name: "rail", Channel: 7, FirstPixel: 500, LastPixel: 874},
	}
	c.Destinations[0].LastPixel = 874
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 875, got.TotalPixels)
	assert.Equal(t, c.Banks, got.Banks)
	assert.Equal(t, c.Channels, got.Channels)
	require.NoError(t, got.Validate())
}

func TestLoadFillsDefaults(t *testing.T) {
	// A minimal file only overrides what it names.
	path := filepath.Join(t.TempDir(), "min.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serial:\n  port: /dev/ttyUSB1\n"), 0644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", got.Serial.Port)
	assert.Equal(t, 115200, got.Serial.Baud)
	assert.Equal(t, 60, got.FPS)
	assert.InDelta(t, 0.3, got.Smoothing.Factor, 1e-9)
}

func TestStartUniverseAtLimitValidates(t *testing.T) {
	c := Default() // 1500 pixels, 9 universes
	c.StartUniverse = 63991
	require.NoError(t, c.Validate())
}

func TestTopologyMatchesConfig(t *testing.T) {
	c := Default()
	topo, err := c.Topology()
	require.NoError(t, err)
	assert.Equal(t, c.TotalPixels, topo.TotalPixels())
	assert.Equal(t, 9, topo.NumUniverses())
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Serial.Port = "" }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"zero spacing", func(c *Config) { c.Spacing = 0 }},
		{"no banks", func(c *Config) { c.Banks = nil }},
		{"bank channel high", func(c *Config) { c.Banks[0].Channel = 513 }},
		{"bank range past end", func(c *Config) { c.Banks[0].LastPixel = c.TotalPixels }},
		{"overlapping banks", func(c *Config) {
			c.Banks = append(c.Banks, Bank{Name: "dup", Channel: 9, FirstPixel: 100, LastPixel: 200})
		}},
		{"negative param channel", func(c *Config) { c.Channels.Wind = -1 }},
		{"start universe past sACN limit", func(c *Config) { c.StartUniverse = 70000 }},
		// 1500 pixels occupy 9 universes: 63992..64000 overruns by one.
		{"universe span past sACN limit", func(c *Config) { c.StartUniverse = 63992 }},
		{"hysteresis out of range", func(c *Config) { c.Smoothing.Hysteresis = 1.5 }},
		{"zero smoothing factor", func(c *Config) { c.Smoothing.Factor = 0 }},
		{"bad flash hex", func(c *Config) { c.Color.Flashes[0].Color = "peach" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
