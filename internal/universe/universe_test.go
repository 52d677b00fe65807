package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberworks/candlefire/internal/fire"
	"github.com/emberworks/candlefire/internal/transport"
)

func singleDest(total int) []DestinationSpec {
	return []DestinationSpec{{Address: "192.168.4.74", FirstPixel: 0, LastPixel: total - 1}}
}

func TestUniverseCount1500(t *testing.T) {
	topo, err := NewTopology(1500, 1, singleDest(1500), false)
	require.NoError(t, err)
	assert.Equal(t, 9, topo.NumUniverses())
	assert.Equal(t, []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9}, topo.Universes())

	// Universe 9 holds pixels 1360-1499.
	u, off, ok := topo.Locate(1360)
	require.True(t, ok)
	assert.Equal(t, uint16(9), u)
	assert.Equal(t, 0, off)

	u, off, ok = topo.Locate(1499)
	require.True(t, ok)
	assert.Equal(t, uint16(9), u)
	assert.Equal(t, 139*3, off)
}

func TestLocateBijection(t *testing.T) {
	topo, err := NewTopology(1500, 1, singleDest(1500), false)
	require.NoError(t, err)

	type slot struct {
		u   uint16
		off int
	}
	seen := make(map[slot]int, 1500)
	for px := 0; px < 1500; px++ {
		u, off, ok := topo.Locate(px)
		require.True(t, ok, "pixel %d", px)
		s := slot{u, off}
		prev, dup := seen[s]
		require.False(t, dup, "pixels %d and %d collide at universe %d offset %d", prev, px, u, off)
		seen[s] = px
	}

	_, _, ok := topo.Locate(-1)
	assert.False(t, ok)
	_, _, ok = topo.Locate(1500)
	assert.False(t, ok)
}

func TestTopologyValidation(t *testing.T) {
	_, err := NewTopology(0, 1, singleDest(1), false)
	assert.Error(t, err, "zero pixels")

	_, err = NewTopology(20000, 1, singleDest(100), false)
	assert.Error(t, err, "absurd pixel count")

	_, err = NewTopology(100, 1, []DestinationSpec{{Address: "not-an-ip", FirstPixel: 0, LastPixel: 99}}, false)
	assert.Error(t, err, "bad address")

	_, err = NewTopology(100, 1, []DestinationSpec{{Address: "10.0.0.1", FirstPixel: 50, LastPixel: 120}}, false)
	assert.Error(t, err, "range past end")

	_, err = NewTopology(1500, 1, nil, false)
	assert.Error(t, err, "no destinations")

	// Two ranges meeting inside one universe cannot be split by ownership.
	_, err = NewTopology(1500, 1, []DestinationSpec{
		{Address: "10.0.0.1", FirstPixel: 0, LastPixel: 200},
		{Address: "10.0.0.2", FirstPixel: 201, LastPixel: 1499},
	}, false)
	assert.Error(t, err, "shared boundary universe")
}

func TestDualDestinationRouting(t *testing.T) {
	// First string ends at 874, second starts at 1020: the 875-1019 gap is
	// an intentional dark region.
	topo, err := NewTopology(1500, 1, []DestinationSpec{
		{Address: "10.0.0.1", FirstPixel: 0, LastPixel: 874},
		{Address: "10.0.0.2", FirstPixel: 1020, LastPixel: 1499},
	}, false)
	require.NoError(t, err)

	routes := topo.Routes()
	require.Len(t, routes, 9)
	for _, r := range routes {
		require.Len(t, r.Destinations, 1)
		assert.False(t, r.Multicast)
		if r.Universe <= 6 { // universes 1-6 cover pixels 0-1019
			assert.Equal(t, "10.0.0.1", r.Destinations[0], "universe %d", r.Universe)
		} else {
			assert.Equal(t, "10.0.0.2", r.Destinations[0], "universe %d", r.Universe)
		}
	}
}

func TestMulticastRoutes(t *testing.T) {
	topo, err := NewTopology(340, 1, singleDest(340), true)
	require.NoError(t, err)
	for _, r := range topo.Routes() {
		assert.True(t, r.Multicast)
		assert.Empty(t, r.Destinations)
	}
}

func TestMuxWritesPixelsAtOffsets(t *testing.T) {
	topo, err := NewTopology(400, 1, singleDest(400), false)
	require.NoError(t, err)
	mux := NewMux(topo)

	mux.Render(map[int]fire.RGB{
		0:   {R: 1, G: 2, B: 3},
		169: {R: 4, G: 5, B: 6}, // last pixel of universe 1
		170: {R: 7, G: 8, B: 9}, // first pixel of universe 2
	})

	u1, ok := mux.Buffer(1)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, u1[0:3])
	assert.Equal(t, []byte{4, 5, 6}, u1[507:510])
	// The two trailing channels of a universe stay unused.
	assert.Zero(t, u1[510])
	assert.Zero(t, u1[511])

	u2, ok := mux.Buffer(2)
	require.True(t, ok)
	assert.Equal(t, []byte{7, 8, 9}, u2[0:3])
}

func TestMuxIdempotent(t *testing.T) {
	topo, err := NewTopology(400, 1, singleDest(400), false)
	require.NoError(t, err)
	mux := NewMux(topo)

	colors := map[int]fire.RGB{3: {R: 10, G: 20, B: 30}, 200: {R: 40, G: 50, B: 60}}
	mux.Render(colors)
	first, _ := mux.Buffer(1)
	firstU2, _ := mux.Buffer(2)

	mux.Render(colors)
	second, _ := mux.Buffer(1)
	secondU2, _ := mux.Buffer(2)

	assert.Equal(t, first, second)
	assert.Equal(t, firstU2, secondU2)
}

func TestMuxClearsStalePixels(t *testing.T) {
	topo, err := NewTopology(10, 1, singleDest(10), false)
	require.NoError(t, err)
	mux := NewMux(topo)

	mux.Render(map[int]fire.RGB{5: {R: 255, G: 255, B: 255}})
	mux.Render(map[int]fire.RGB{2: {R: 9, G: 9, B: 9}})

	buf, _ := mux.Buffer(1)
	assert.Zero(t, buf[15], "pixel 5 from the previous frame must be gone")
	assert.Equal(t, byte(9), buf[6])
}

func TestGapRegionStaysDark(t *testing.T) {
	topo, err := NewTopology(1500, 1, []DestinationSpec{
		{Address: "10.0.0.1", FirstPixel: 0, LastPixel: 874},
		{Address: "10.0.0.2", FirstPixel: 1020, LastPixel: 1499},
	}, false)
	require.NoError(t, err)
	mux := NewMux(topo)

	// Banks only ever target assigned pixels; render a frame lighting the
	// edges of the gap.
	for frame := 0; frame < 3; frame++ {
		mux.Render(map[int]fire.RGB{
			874:  {R: 255, G: 128, B: 0},
			1020: {R: 255, G: 128, B: 0},
		})
		for px := 875; px < 1020; px++ {
			u, off, ok := topo.Locate(px)
			require.True(t, ok)
			buf, _ := mux.Buffer(u)
			assert.Zero(t, buf[off], "pixel %d", px)
			assert.Zero(t, buf[off+1], "pixel %d", px)
			assert.Zero(t, buf[off+2], "pixel %d", px)
		}
	}
}

func TestFlushAndBlackout(t *testing.T) {
	topo, err := NewTopology(340, 1, singleDest(340), false)
	require.NoError(t, err)
	mux := NewMux(topo)
	lb := transport.NewLoopback()

	mux.Render(map[int]fire.RGB{0: {R: 200, G: 100, B: 50}})
	require.NoError(t, mux.Flush(lb))

	got, ok := lb.Last(1)
	require.True(t, ok)
	assert.Equal(t, byte(200), got[0])
	assert.Equal(t, 1, lb.Sends(1))
	assert.Equal(t, 1, lb.Sends(2))

	require.NoError(t, mux.Blackout(lb))
	got, _ = lb.Last(1)
	assert.Equal(t, transport.Frame{}, got)
	got, _ = lb.Last(2)
	assert.Equal(t, transport.Frame{}, got)
}
