// Package config holds the installation description: serial input, pixel
// layout, sACN output targets, DMX channel assignments and flame tuning.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emberworks/candlefire/internal/fire"
	"github.com/emberworks/candlefire/internal/universe"
)

// MaxUniverse is the highest universe number sACN can address.
const MaxUniverse = 63999

// Serial describes the ENTTEC DMX USB Pro link.
type Serial struct {
	Port string `yaml:"port"` // e.g. /dev/ttyUSB0
	Baud int    `yaml:"baud"`
}

// Destination is one unicast sACN target and the pixel range it drives.
type Destination struct {
	Address    string `yaml:"address"`
	FirstPixel int    `yaml:"first_pixel"`
	LastPixel  int    `yaml:"last_pixel"`
}

// Bank groups a contiguous pixel range under one DMX intensity channel.
type Bank struct {
	Name       string `yaml:"name"`
	Channel    int    `yaml:"channel"` // 1-based DMX channel, intensity
	FirstPixel int    `yaml:"first_pixel"`
	LastPixel  int    `yaml:"last_pixel"`
}

// Channels maps the shared show parameters onto DMX channels. Channel 0
// means unassigned; the engine then uses the parameter's default.
type Channels struct {
	Flicker    int `yaml:"flicker"`
	ColorShift int `yaml:"color_shift"`
	Blue       int `yaml:"blue"`
	Wind       int `yaml:"wind"`
	Master     int `yaml:"master"`
}

type Smoothing struct {
	Hysteresis float64 `yaml:"hysteresis"`
	Factor     float64 `yaml:"factor"`
}

type Monitor struct {
	Addr string `yaml:"addr,omitempty"` // empty disables the monitor
}

type Config struct {
	Serial Serial `yaml:"serial"`

	TotalPixels int `yaml:"total_pixels"`

	// Spacing places a flame on every Nth pixel of a bank's range; the
	// pixels in between stay dark. 1 means every pixel burns.
	Spacing int `yaml:"spacing"`

	FPS           int    `yaml:"fps"`
	StartUniverse int    `yaml:"start_universe"`
	Multicast     bool   `yaml:"multicast"`
	BindAddr      string `yaml:"bind_addr,omitempty"`
	SourceName    string `yaml:"source_name"`

	Destinations []Destination `yaml:"destinations"`
	Banks        []Bank        `yaml:"banks"`
	Channels     Channels      `yaml:"channels"`
	Smoothing    Smoothing     `yaml:"smoothing"`

	Color fire.ColorModel `yaml:"color"`

	Monitor Monitor `yaml:"monitor,omitempty"`
}

// Default returns a single-bank, single-destination starting point with the
// stock flame tuning.
func Default() *Config {
	return &Config{
		Serial:        Serial{Port: "/dev/ttyUSB0", Baud: 115200},
		TotalPixels:   1500,
		Spacing:       1,
		FPS:           60,
		StartUniverse: 1,
		SourceName:    "candlefire",
		Destinations: []Destination{
			{Address: "192.168.4.74", FirstPixel: 0, LastPixel: 1499},
		},
		Banks: []Bank{
			{Name: "all", Channel: 1, FirstPixel: 0, LastPixel: 1499},
		},
		Channels: Channels{
			Flicker:    2,
			ColorShift: 3,
			Blue:       4,
			Wind:       5,
			Master:     6,
		},
		Smoothing: Smoothing{
			Hysteresis: 5.0 / 255.0,
			Factor:     0.3,
		},
		Color: fire.DefaultColorModel(),
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Topology derives the universe layout. It is the single derivation point:
// the transport routes and the engine's mux both come from the one result.
func (c *Config) Topology() (*universe.Topology, error) {
	dests := make([]universe.DestinationSpec, len(c.Destinations))
	for i, d := range c.Destinations {
		dests[i] = universe.DestinationSpec{
			Address:    d.Address,
			FirstPixel: d.FirstPixel,
			LastPixel:  d.LastPixel,
		}
	}
	return universe.NewTopology(c.TotalPixels, uint16(c.StartUniverse), dests, c.Multicast)
}

// Validate rejects configurations the engine cannot run. Topology-level
// checks (pixel ranges vs universes) happen in universe.NewTopology.
func (c *Config) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive")
	}
	if c.TotalPixels < 1 {
		return fmt.Errorf("total_pixels must be >= 1")
	}
	if c.Spacing < 1 {
		return fmt.Errorf("spacing must be >= 1")
	}
	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("fps %d out of range [1,240]", c.FPS)
	}
	if c.StartUniverse < 1 {
		return fmt.Errorf("start_universe must be >= 1")
	}
	universes := (c.TotalPixels + universe.PixelsPerUniverse - 1) / universe.PixelsPerUniverse
	if c.StartUniverse+universes-1 > MaxUniverse {
		return fmt.Errorf("start_universe %d with %d universes exceeds sACN universe %d",
			c.StartUniverse, universes, MaxUniverse)
	}
	if len(c.Banks) == 0 {
		return fmt.Errorf("at least one bank is required")
	}
	for i, b := range c.Banks {
		if b.Channel < 1 || b.Channel > 512 {
			return fmt.Errorf("bank %d: channel %d out of range [1,512]", i+1, b.Channel)
		}
		if b.FirstPixel < 0 || b.LastPixel >= c.TotalPixels || b.FirstPixel > b.LastPixel {
			return fmt.Errorf("bank %d: pixel range %d-%d invalid for %d pixels",
				i+1, b.FirstPixel, b.LastPixel, c.TotalPixels)
		}
		for j, other := range c.Banks[:i] {
			if b.FirstPixel <= other.LastPixel && other.FirstPixel <= b.LastPixel {
				return fmt.Errorf("bank %d overlaps bank %d", i+1, j+1)
			}
		}
	}
	for name, ch := range map[string]int{
		"flicker":     c.Channels.Flicker,
		"color_shift": c.Channels.ColorShift,
		"blue":        c.Channels.Blue,
		"wind":        c.Channels.Wind,
		"master":      c.Channels.Master,
	} {
		if ch < 0 || ch > 512 {
			return fmt.Errorf("channels.%s %d out of range [0,512]", name, ch)
		}
	}
	if c.Smoothing.Hysteresis < 0 || c.Smoothing.Hysteresis >= 1 {
		return fmt.Errorf("smoothing.hysteresis %g out of range [0,1)", c.Smoothing.Hysteresis)
	}
	if c.Smoothing.Factor <= 0 || c.Smoothing.Factor > 1 {
		return fmt.Errorf("smoothing.factor %g out of range (0,1]", c.Smoothing.Factor)
	}
	if err := c.Color.Validate(); err != nil {
		return fmt.Errorf("color: %w", err)
	}
	return nil
}
